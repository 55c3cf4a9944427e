package app

import (
	"context"
	"doc-registry/internal/blockchain"
	"doc-registry/internal/blockchain/registryfamily"
	"doc-registry/internal/config"
	"doc-registry/internal/journal"
	"doc-registry/internal/ledger"
	"doc-registry/internal/metrics"
	"doc-registry/internal/model"
	"doc-registry/internal/registrar"
	"doc-registry/internal/registry"
	"doc-registry/internal/repository/mongodb"
	"doc-registry/internal/signkeys"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	familyCheckTimeout = 5 * time.Second
)

// App holds the registry together with its collaborators and the sinks
// its committed events are published to.
type App struct {
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Metrics  *metrics.Metrics

	journal *journal.Journal
	closers []func()
	logger  *zap.Logger
}

func NewApp(ctx context.Context, logger *zap.Logger, cfg config.Config) (*App, error) {
	a := &App{
		Ledger:  ledger.New(logger, cfg.Ledger.OpeningBalance),
		Metrics: metrics.New(),
		logger:  logger,
	}

	reg, err := newRegistrar(logger, cfg.Registrar)
	if err != nil {
		return nil, err
	}

	sinks, err := a.newSinks(ctx, cfg)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	recorders := []registry.Recorder{a.Metrics}
	if len(sinks) > 0 {
		a.journal = journal.New(logger, cfg.Journal.QueueSize, sinks...)
		recorders = append(recorders, a.journal)
		a.Metrics.RegisterGauge("docregistry_journal_dropped", "Events dropped because the journal queue was full",
			func() float64 { return float64(a.journal.Dropped()) })
		a.Metrics.RegisterGauge("docregistry_journal_failed", "Events at least one sink failed to publish",
			func() float64 { return float64(a.journal.Failed()) })
	}

	authority := registry.NewAuthorityConfig(cfg.Registry.BurnAccount).
		WithLimits(cfg.Registry.MaxDocsPerUser, cfg.Registry.BackupFee)
	a.Registry = registry.New(logger, authority, reg, a.Ledger, registry.NewUnixClock(), recorders...)

	a.Metrics.RegisterGauge("docregistry_documents", "Documents currently stored",
		func() float64 { return float64(a.Registry.GetTotalDocCount()) })

	if !cfg.Registry.Authority.IsEmpty() {
		if err := a.Registry.SetAuthorityContract(ctx, cfg.Registry.Authority, cfg.Registry.Authority); err != nil {
			_ = a.Close(ctx)
			return nil, errors.New("failed to set the configured authority: " + err.Error())
		}
	}

	logger.Info("registry assembled",
		zap.String("registrar", cfg.Registrar.Mode),
		zap.Int("sinks", len(sinks)),
		zap.Int64("maxDocsPerUser", cfg.Registry.MaxDocsPerUser),
		zap.Int64("backupFee", cfg.Registry.BackupFee))

	return a, nil
}

func newRegistrar(logger *zap.Logger, cfg config.Registrar) (registry.Registrar, error) {
	switch cfg.Mode {
	case config.RegistrarOpen:
		return registrar.Open{}, nil
	case config.RegistrarStatic:
		accounts := make([]model.Account, len(cfg.Accounts))
		for i, account := range cfg.Accounts {
			accounts[i] = model.Account(account)
		}
		return registrar.NewStatic(accounts...), nil
	case config.RegistrarDirectory:
		var tokens registrar.TokenSource = registrar.StaticToken(cfg.DirectoryToken)
		if cfg.TokenURL != "" {
			tokens = registrar.NewClientCredentials(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Scope)
		}
		directory := registrar.NewDirectory(logger, cfg.DirectoryURL, tokens)
		if cfg.CacheTTL > 0 {
			return registrar.NewCached(directory, cfg.CacheTTL), nil
		}
		return directory, nil
	default:
		return nil, errors.New("unknown registrar mode: " + cfg.Mode)
	}
}

func (a *App) newSinks(ctx context.Context, cfg config.Config) ([]journal.Sink, error) {
	var sinks []journal.Sink

	if cfg.Mongo.URI != "" {
		repo, err := mongodb.NewConnection(a.logger, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, errors.New("failed to connect to the database: " + err.Error())
		}
		a.closers = append(a.closers, repo.Disconnect)
		sinks = append(sinks, repo)
	}

	if cfg.Chain.Enabled {
		submitter, err := a.newSubmitter(ctx, cfg.Chain)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, submitter)
	}

	return sinks, nil
}

func (a *App) newSubmitter(ctx context.Context, cfg config.Chain) (*blockchain.Submitter, error) {
	var keys signkeys.UserKeys
	var err error
	if cfg.PrivateKey != "" {
		keys, err = signkeys.NewUserKeys(cfg.PrivateKey)
	} else {
		keys, err = signkeys.GenerateKeys()
	}
	if err != nil {
		return nil, err
	}
	a.logger.Info("transactions signed by " + keys.PublicKey.AsHex())

	client := blockchain.NewClient(a.logger, cfg.RestAPIAddr)

	checkCtx, cancel := context.WithTimeout(ctx, familyCheckTimeout)
	defer cancel()
	enabled, err := client.FamilyEnabled(checkCtx, registryfamily.FamilyName, registryfamily.FamilyVersion)
	if err != nil {
		a.logger.Warn("could not check the validator settings: "+err.Error(), zap.String("restAPI", cfg.RestAPIAddr))
	} else if !enabled {
		a.logger.Warn("validator does not accept the registry family, batches will be rejected",
			zap.String("family", registryfamily.FamilyName), zap.String("version", registryfamily.FamilyVersion))
	}

	return blockchain.NewSubmitter(a.logger, client, keys.GetSigner()), nil
}

// Close drains the journal and releases the sink connections.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.journal != nil {
		err = multierr.Append(err, a.journal.Close(ctx))
	}
	a.closeAll()
	return err
}

func (a *App) closeAll() {
	for _, closer := range a.closers {
		closer()
	}
	a.closers = nil
}
