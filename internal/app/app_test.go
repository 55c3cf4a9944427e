package app_test

import (
	"bytes"
	"context"
	"doc-registry/internal/app"
	"doc-registry/internal/config"
	"doc-registry/internal/model"
	"doc-registry/internal/registry"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadConfig(t *testing.T, values map[string]interface{}) config.Config {
	v := config.New()
	for key, value := range values {
		v.Set(key, value)
	}
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	return cfg
}

func passport(b byte) model.BackupRequest {
	return model.BackupRequest{
		Hash:           model.Hash(bytes.Repeat([]byte{b}, model.HashSize)),
		CID:            "QmTestCID",
		DocType:        model.DocTypePassport,
		Currency:       model.CurrencySTX,
		DocName:        "MyPassport",
		EncryptionType: model.EncryptionAES,
	}
}

func TestNewAppAppliesConfig(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{
		"registry.authority":         "ST2AUTH",
		"registry.max_docs_per_user": 2,
		"registry.backup_fee":        7,
		"registrar.mode":             "static",
		"registrar.accounts":         []string{"ST1ALICE"},
	})

	a, err := app.NewApp(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	snapshot := a.Registry.Config()
	assert.Equal(t, model.Account("ST2AUTH"), snapshot.Authority)
	assert.Equal(t, int64(2), snapshot.MaxDocsPerUser)
	assert.Equal(t, int64(7), snapshot.BackupFee)

	_, err = a.Registry.BackupDocument(context.Background(), "ST1ALICE", passport(1))
	require.NoError(t, err)
	_, err = a.Registry.BackupDocument(context.Background(), "ST1BOB", passport(2))
	assert.ErrorIs(t, err, registry.ErrUserNotRegistered)

	assert.Equal(t, cfg.Ledger.OpeningBalance+7, a.Ledger.Balance("ST2AUTH"))
	assert.Equal(t, cfg.Ledger.OpeningBalance-7, a.Ledger.Balance("ST1ALICE"))
}

func TestNewAppWithoutAuthority(t *testing.T) {
	a, err := app.NewApp(context.Background(), zap.NewNop(), loadConfig(t, nil))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Registry.BackupDocument(context.Background(), "ST1ALICE", passport(1))
	assert.ErrorIs(t, err, registry.ErrAuthorityNotSet)
}

func TestNewAppRejectsBurnAuthority(t *testing.T) {
	cfg := loadConfig(t, map[string]interface{}{"registry.authority": string(model.BurnAccount)})

	_, err := app.NewApp(context.Background(), zap.NewNop(), cfg)
	assert.Error(t, err)
}

type batchCounter struct {
	mu      sync.Mutex
	batches int
}

func (c *batchCounter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/batches":
		c.mu.Lock()
		c.batches++
		c.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"link": ""}`))
	case "/batch_statuses":
		w.Write([]byte(`{"data": [{"status": "COMMITTED"}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (c *batchCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

func TestNewAppPublishesToChain(t *testing.T) {
	validator := &batchCounter{}
	server := httptest.NewServer(validator)
	defer server.Close()

	cfg := loadConfig(t, map[string]interface{}{
		"registry.authority":  "ST2AUTH",
		"chain.enabled":       true,
		"chain.rest_api_addr": server.URL,
	})

	a, err := app.NewApp(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)

	_, err = a.Registry.BackupDocument(context.Background(), "ST1ALICE", passport(1))
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	// authority-set and document-backed-up
	assert.Equal(t, 2, validator.count())
}

func TestNewAppDirectoryRegistrar(t *testing.T) {
	var lookups int
	var mu sync.Mutex
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lookups++
		mu.Unlock()
		if r.URL.Path == "/users/ST1ALICE" && r.Header.Get("Authorization") == "Bearer dir-token" {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer directory.Close()

	cfg := loadConfig(t, map[string]interface{}{
		"registry.authority":        "ST2AUTH",
		"registrar.mode":            "directory",
		"registrar.directory_url":   directory.URL,
		"registrar.directory_token": "dir-token",
	})

	a, err := app.NewApp(context.Background(), zap.NewNop(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Registry.BackupDocument(context.Background(), "ST1ALICE", passport(1))
	require.NoError(t, err)
	_, err = a.Registry.BackupDocument(context.Background(), "ST1ALICE", passport(2))
	require.NoError(t, err)
	_, err = a.Registry.BackupDocument(context.Background(), "ST1BOB", passport(3))
	assert.ErrorIs(t, err, registry.ErrUserNotRegistered)

	mu.Lock()
	defer mu.Unlock()
	// the second lookup for ST1ALICE is served from the cache
	assert.Equal(t, 2, lookups)
}
