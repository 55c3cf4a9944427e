package http

import (
	"doc-registry/internal/ledger"
	"doc-registry/internal/registry"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var errUnauthenticated = errors.New("no caller in the request context")

type errorResponse struct {
	Code  uint32 `json:"code,omitempty"`
	Error string `json:"error"`
}

func normalize(param string) string {
	return strings.TrimSpace(param)
}

// statusOf maps a registry error code to the HTTP status it is served with.
func statusOf(err error) int {
	code, ok := registry.CodeOf(err)
	if !ok {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return http.StatusPaymentRequired
		}
		return http.StatusInternalServerError
	}

	switch code {
	case registry.ErrNotAuthorized.Code:
		return http.StatusForbidden
	case registry.ErrDocNotFound.Code:
		return http.StatusNotFound
	case registry.ErrDocAlreadyExists.Code, registry.ErrAuthorityNotSet.Code:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// resultOf is the metrics label of an operation outcome.
func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := registry.CodeOf(err); ok {
		return strconv.FormatUint(uint64(code), 10)
	}
	return "error"
}

func (ser *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	response, err := json.Marshal(body)
	if err != nil {
		ser.serverError(w, "marshalling the response failed: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		ser.logger.Error("failed to write the response: " + err.Error())
	}
}

// fail writes the registry error with its code; host failures become 500.
func (ser *Server) fail(w http.ResponseWriter, operation string, err error) {
	status := statusOf(err)
	body := errorResponse{Error: err.Error()}
	if code, ok := registry.CodeOf(err); ok {
		body.Code = uint32(code)
	}

	if status == http.StatusInternalServerError {
		ser.logger.Error(operation+" failed: "+err.Error(), zap.String("operation", operation))
	} else {
		ser.logger.Debug(operation+" rejected: "+err.Error(), zap.String("operation", operation))
	}
	ser.respond(w, status, body)
}

func (ser *Server) badRequest(w http.ResponseWriter, message string) {
	ser.logger.Warn(message)
	ser.respond(w, http.StatusBadRequest, errorResponse{Error: message})
}

func (ser *Server) unauthenticated(w http.ResponseWriter) {
	ser.logger.Warn(errUnauthenticated.Error())
	ser.respond(w, http.StatusUnauthorized, errorResponse{Error: errUnauthenticated.Error()})
}

func (ser *Server) notFound(w http.ResponseWriter, message string) {
	ser.respond(w, http.StatusNotFound, errorResponse{Code: uint32(registry.ErrDocNotFound.Code), Error: message})
}

func (ser *Server) serverError(w http.ResponseWriter, message string) {
	ser.logger.Error(message)
	w.WriteHeader(http.StatusInternalServerError)
	if _, err := w.Write([]byte(message)); err != nil {
		ser.logger.Error("failed to write a server error message: " + err.Error())
	}
}
