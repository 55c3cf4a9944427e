package config

import (
	"doc-registry/internal/model"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = "DOCREG"

	RegistrarOpen      = "open"
	RegistrarStatic    = "static"
	RegistrarDirectory = "directory"

	defaultLocalPort      = ":8077"
	defaultDatabaseName   = "documents"
	defaultRestAPIAddr    = "localhost:8008"
	defaultRequestTimeout = 10 * time.Second
	defaultMaxDocs        = 50
	defaultBackupFee      = 500
	defaultOpeningBalance = 1000000
	defaultQueueSize      = 256
	defaultRegistrarCache = 5 * time.Minute
)

type Config struct {
	HTTP      HTTP
	Registry  Registry
	Auth      Auth
	Registrar Registrar
	Ledger    Ledger
	Mongo     Mongo
	Chain     Chain
	Journal   Journal
}

type HTTP struct {
	Addr           string
	RequestTimeout time.Duration
}

type Registry struct {
	MaxDocsPerUser int64
	BackupFee      int64
	BurnAccount    model.Account
	// applied through setAuthorityContract at startup when not empty
	Authority model.Account
}

type Auth struct {
	// empty secret means the token claims are read without verification
	JWTSecret string
}

type Registrar struct {
	Mode           string
	Accounts       []string
	DirectoryURL   string
	DirectoryToken string
	// client credentials grant, used instead of DirectoryToken when TokenURL is set
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	// registered accounts are remembered this long, zero disables the cache
	CacheTTL time.Duration
}

type Ledger struct {
	OpeningBalance int64
}

// Mongo mirror is disabled when the URI is empty.
type Mongo struct {
	URI      string
	Database string
}

type Chain struct {
	Enabled     bool
	RestAPIAddr string
	// hex encoded secp256k1 key, a fresh one is generated when empty
	PrivateKey string
}

type Journal struct {
	QueueSize int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", defaultLocalPort)
	v.SetDefault("http.request_timeout", defaultRequestTimeout)

	v.SetDefault("registry.max_docs_per_user", defaultMaxDocs)
	v.SetDefault("registry.backup_fee", defaultBackupFee)
	v.SetDefault("registry.burn_account", string(model.BurnAccount))
	v.SetDefault("registry.authority", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("registrar.mode", RegistrarOpen)
	v.SetDefault("registrar.accounts", []string{})
	v.SetDefault("registrar.directory_url", "")
	v.SetDefault("registrar.directory_token", "")
	v.SetDefault("registrar.token_url", "")
	v.SetDefault("registrar.client_id", "")
	v.SetDefault("registrar.client_secret", "")
	v.SetDefault("registrar.scope", "")
	v.SetDefault("registrar.cache_ttl", defaultRegistrarCache)

	v.SetDefault("ledger.opening_balance", defaultOpeningBalance)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", defaultDatabaseName)

	v.SetDefault("chain.enabled", false)
	v.SetDefault("chain.rest_api_addr", defaultRestAPIAddr)
	v.SetDefault("chain.private_key", "")

	v.SetDefault("journal.queue_size", defaultQueueSize)
}

// New returns a viper instance with the defaults set and environment
// overrides enabled, e.g. DOCREG_HTTP_ADDR for http.addr.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file, if one is given, and validates the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.New("failed to read the config file: " + err.Error())
		}
	}

	cfg := Config{
		HTTP: HTTP{
			Addr:           v.GetString("http.addr"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
		},
		Registry: Registry{
			MaxDocsPerUser: v.GetInt64("registry.max_docs_per_user"),
			BackupFee:      v.GetInt64("registry.backup_fee"),
			BurnAccount:    model.Account(v.GetString("registry.burn_account")),
			Authority:      model.Account(v.GetString("registry.authority")),
		},
		Auth: Auth{
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Registrar: Registrar{
			Mode:           strings.ToLower(v.GetString("registrar.mode")),
			Accounts:       v.GetStringSlice("registrar.accounts"),
			DirectoryURL:   v.GetString("registrar.directory_url"),
			DirectoryToken: v.GetString("registrar.directory_token"),
			TokenURL:       v.GetString("registrar.token_url"),
			ClientID:       v.GetString("registrar.client_id"),
			ClientSecret:   v.GetString("registrar.client_secret"),
			Scope:          v.GetString("registrar.scope"),
			CacheTTL:       v.GetDuration("registrar.cache_ttl"),
		},
		Ledger: Ledger{
			OpeningBalance: v.GetInt64("ledger.opening_balance"),
		},
		Mongo: Mongo{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Chain: Chain{
			Enabled:     v.GetBool("chain.enabled"),
			RestAPIAddr: v.GetString("chain.rest_api_addr"),
			PrivateKey:  v.GetString("chain.private_key"),
		},
		Journal: Journal{
			QueueSize: v.GetInt("journal.queue_size"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error

	if c.HTTP.Addr == "" {
		err = multierr.Append(err, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("http.request_timeout must be positive"))
	}
	if c.Registry.MaxDocsPerUser <= 0 {
		err = multierr.Append(err, errors.New("registry.max_docs_per_user must be positive"))
	}
	if c.Registry.BackupFee < 0 {
		err = multierr.Append(err, errors.New("registry.backup_fee must not be negative"))
	}
	if c.Registrar.CacheTTL < 0 {
		err = multierr.Append(err, errors.New("registrar.cache_ttl must not be negative"))
	}
	if c.Ledger.OpeningBalance < 0 {
		err = multierr.Append(err, errors.New("ledger.opening_balance must not be negative"))
	}

	switch c.Registrar.Mode {
	case RegistrarOpen, RegistrarStatic:
	case RegistrarDirectory:
		if c.Registrar.DirectoryURL == "" {
			err = multierr.Append(err, errors.New("registrar.directory_url is required in directory mode"))
		}
		if c.Registrar.TokenURL != "" && c.Registrar.ClientID == "" {
			err = multierr.Append(err, errors.New("registrar.client_id is required with registrar.token_url"))
		}
	default:
		err = multierr.Append(err, errors.New("unknown registrar.mode: "+c.Registrar.Mode))
	}

	if c.Chain.Enabled && c.Chain.RestAPIAddr == "" {
		err = multierr.Append(err, errors.New("chain.rest_api_addr is required when the chain is enabled"))
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		err = multierr.Append(err, errors.New("mongo.database must not be empty"))
	}

	return err
}
