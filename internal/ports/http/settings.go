package http

import (
	"context"
	"doc-registry/internal/model"
	"doc-registry/internal/ports/http/middleware/auth"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type authorityRequest struct {
	Account string `json:"account"`
}

type valueRequest struct {
	Value *int64 `json:"value"`
}

type configResponse struct {
	Authority      string `json:"authority,omitempty"`
	MaxDocsPerUser int64  `json:"maxDocsPerUser"`
	BackupFee      int64  `json:"backupFee"`
	NextDocID      uint64 `json:"nextDocID"`
	DocCount       uint64 `json:"docCount"`
}

func (ser *Server) setAuthority(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		ser.unauthenticated(w)
		return
	}

	var body authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ser.badRequest(w, "failed to decode the request: "+err.Error())
		return
	}

	account := model.Account(normalize(body.Account))
	err := ser.registry.SetAuthorityContract(r.Context(), caller, account)
	ser.metrics.IncrementOperation("setAuthorityContract", resultOf(err))
	if err != nil {
		ser.fail(w, "setAuthorityContract", err)
		return
	}

	ser.logger.Info("authority set over http", zap.String("caller", caller.String()), zap.String("account", account.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (ser *Server) setMaxDocs(w http.ResponseWriter, r *http.Request) {
	ser.setValue(w, r, "setMaxDocsPerUser", ser.registry.SetMaxDocsPerUser)
}

func (ser *Server) setBackupFee(w http.ResponseWriter, r *http.Request) {
	ser.setValue(w, r, "setBackupFee", ser.registry.SetBackupFee)
}

func (ser *Server) setValue(w http.ResponseWriter, r *http.Request, operation string, set func(ctx context.Context, caller model.Account, n int64) error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		ser.unauthenticated(w)
		return
	}

	var body valueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ser.badRequest(w, "failed to decode the request: "+err.Error())
		return
	}
	if body.Value == nil {
		ser.badRequest(w, "value is missing")
		return
	}

	err := set(r.Context(), caller, *body.Value)
	ser.metrics.IncrementOperation(operation, resultOf(err))
	if err != nil {
		ser.fail(w, operation, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ser *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	snapshot := ser.registry.Config()

	ser.respond(w, http.StatusOK, configResponse{
		Authority:      snapshot.Authority.String(),
		MaxDocsPerUser: snapshot.MaxDocsPerUser,
		BackupFee:      snapshot.BackupFee,
		NextDocID:      snapshot.NextDocID,
		DocCount:       snapshot.DocCount,
	})
}
