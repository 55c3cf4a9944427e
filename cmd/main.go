package main

import (
	"context"
	"doc-registry/internal/app"
	"doc-registry/internal/config"
	"doc-registry/internal/ports/http"
	"doc-registry/internal/ports/http/middleware/auth"
	"doc-registry/internal/signkeys"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var (
	configFile string
	v          = config.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "doc-registry",
	Short: "Registry of document fingerprints with per-user quotas and a backup fee",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := getLogger()
		if err != nil {
			log.Fatalln("setting up the logger failed: ", err)
			return err
		}
		defer logger.Sync()

		cfg, err := config.Load(v, configFile)
		if err != nil {
			logger.Error("invalid configuration: " + err.Error())
			return err
		}

		return serve(logger, cfg)
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a transaction signing key for chain.private_key",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := signkeys.GenerateKeys()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", keys.PrivateKey.AsHex(), keys.PublicKey.AsHex())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path of the config file")

	serveCmd.Flags().String("addr", "", "listen address, overrides http.addr")
	serveCmd.Flags().Bool("chain", false, "anchor events on the validator, overrides chain.enabled")
	serveCmd.Flags().String("registrar", "", "registrar mode: open, static or directory")
	bindFlag(v, "http.addr", serveCmd, "addr")
	bindFlag(v, "chain.enabled", serveCmd, "chain")
	bindFlag(v, "registrar.mode", serveCmd, "registrar")

	rootCmd.AddCommand(serveCmd, keygenCmd)
}

func bindFlag(v *viper.Viper, key string, cmd *cobra.Command, name string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
		log.Fatalln("binding flag "+name+" failed: ", err)
	}
}

func serve(logger *zap.Logger, cfg config.Config) error {
	logger.Info("application started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to assemble the registry: " + err.Error())
		return err
	}

	validator := auth.NewTokenValidator(logger, auth.JwtTokenParams{Secret: cfg.Auth.JWTSecret})
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, bearer tokens are not verified")
	}
	ser := http.NewServer(logger, a.Registry, a.Metrics, validator, cfg.HTTP.Addr, cfg.HTTP.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(ser.Run)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := ser.Shutdown(shutdownCtx)
		if closeErr := a.Close(shutdownCtx); closeErr != nil {
			logger.Error("failed to drain the journal: " + closeErr.Error())
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("failed to run the server: " + err.Error())
		return err
	}

	logger.Info("application finished")
	return nil
}

func getLogger() (*zap.Logger, error) {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.FatalLevel),
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	config.Development = true
	config.Level.SetLevel(zap.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.WithOptions(options...), nil
}
