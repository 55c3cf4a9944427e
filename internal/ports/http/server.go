package http

import (
	"context"
	"doc-registry/internal/metrics"
	"doc-registry/internal/model"
	"doc-registry/internal/ports/http/middleware/auth"
	"doc-registry/internal/ports/http/middleware/cors"
	"doc-registry/internal/registry"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Registry is the set of registry operations served over HTTP.
type Registry interface {
	SetAuthorityContract(ctx context.Context, caller, account model.Account) error
	SetMaxDocsPerUser(ctx context.Context, caller model.Account, n int64) error
	SetBackupFee(ctx context.Context, caller model.Account, n int64) error
	BackupDocument(ctx context.Context, caller model.Account, req model.BackupRequest) (uint64, error)
	UpdateDocument(ctx context.Context, caller model.Account, req model.UpdateRequest) error
	DeleteDocument(ctx context.Context, caller model.Account, docID uint64) error

	GetDocument(owner model.Account, docID uint64) (model.Document, bool)
	GetDocUpdate(owner model.Account, docID uint64) (model.DocUpdate, bool)
	GetTotalDocCount() uint64
	GetUserDocCount(account model.Account) uint64
	CheckDocExistence(hash model.Hash) bool
	Config() registry.Snapshot
}

type Server struct {
	registry       Registry
	metrics        *metrics.Metrics
	auth           auth.TokenValidator
	httpServer     *http.Server
	addr           string
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewServer(logger *zap.Logger, reg Registry, m *metrics.Metrics, validator auth.TokenValidator, address string, requestTimeout time.Duration) *Server {
	ser := &Server{
		registry:       reg,
		metrics:        m,
		auth:           validator,
		addr:           address,
		requestTimeout: requestTimeout,
		logger:         logger,
	}
	ser.httpServer = &http.Server{
		Handler:           ser.Handler(),
		Addr:              address,
		ReadHeaderTimeout: requestTimeout,
	}
	return ser
}

func (ser *Server) registerHandlers(router *mux.Router) {

	router.HandleFunc("/health", healthcheck)
	if ser.metrics != nil {
		router.Handle("/metrics", ser.metrics.Handler())
	}

	api := router.PathPrefix("/api").Subrouter()

	api.Handle("/authority", ser.authenticated("authority", ser.setAuthority)).Methods(http.MethodPost)
	api.Handle("/config", ser.public("config", ser.getConfig)).Methods(http.MethodGet)
	api.Handle("/config/max-docs", ser.authenticated("config/max-docs", ser.setMaxDocs)).Methods(http.MethodPut)
	api.Handle("/config/fee", ser.authenticated("config/fee", ser.setBackupFee)).Methods(http.MethodPut)

	api.Handle("/documents", ser.authenticated("documents", ser.backupDocument)).Methods(http.MethodPost)
	api.Handle("/documents/count", ser.public("documents/count", ser.getTotalDocCount)).Methods(http.MethodGet)
	api.Handle("/documents/{docID:[0-9]+}", ser.authenticated("documents/id", ser.updateDocument)).Methods(http.MethodPut)
	api.Handle("/documents/{docID:[0-9]+}", ser.authenticated("documents/id", ser.deleteDocument)).Methods(http.MethodDelete)
	api.Handle("/documents/{owner}/{docID:[0-9]+}", ser.public("documents/owner/id", ser.getDocument)).Methods(http.MethodGet)
	api.Handle("/documents/{owner}/{docID:[0-9]+}/update", ser.public("documents/owner/id/update", ser.getDocUpdate)).Methods(http.MethodGet)

	api.Handle("/users/{account}/count", ser.public("users/count", ser.getUserDocCount)).Methods(http.MethodGet)
	api.Handle("/hashes/{hash}", ser.public("hashes", ser.checkDocExistence)).Methods(http.MethodGet)
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("all good here"))
}

// Handler returns the routed API wrapped in the CORS policy.
func (ser *Server) Handler() http.Handler {
	router := mux.NewRouter()
	ser.registerHandlers(router)

	return cors.AddCorsPolicy(router)
}

// Run serves until Shutdown is called.
func (ser *Server) Run() error {
	ser.logger.Info("http server listening", zap.String("addr", ser.addr))
	if err := ser.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ser *Server) Shutdown(ctx context.Context) error {
	return ser.httpServer.Shutdown(ctx)
}

func (ser *Server) public(route string, handler http.HandlerFunc) http.Handler {
	return ser.instrument(route, handler)
}

func (ser *Server) authenticated(route string, handler http.HandlerFunc) http.Handler {
	return ser.instrument(route, ser.auth.Authenticate(ser.withTimeout(handler)))
}

func (ser *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		ser.metrics.ObserveRequestLatency(route, time.Since(start))
	})
}

func (ser *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ser.requestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), ser.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
