package auth

import (
	"context"
	"doc-registry/internal/model"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2/jwt"
)

type contextKey struct{}

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrMissingCaller = errors.New("token carries neither sub nor oid claim")
)

type JwtTokenParams struct {
	// HS256 secret; when empty the claims are read without verification
	Secret   string
	Issuer   string
	Audience string
}

type TokenValidator struct {
	JwtTokenParams
	logger *zap.Logger
}

func NewTokenValidator(logger *zap.Logger, params JwtTokenParams) TokenValidator {
	return TokenValidator{logger: logger, JwtTokenParams: params}
}

// Authenticate puts the caller account named by the bearer token into the
// request context and rejects the request with 401 when there is none.
func (t TokenValidator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			t.authError(w, ErrMissingToken)
			return
		}

		caller, err := t.callerFromToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			t.authError(w, errors.New("auth token validation: "+err.Error()))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func (t TokenValidator) authError(w http.ResponseWriter, err error) {
	t.logger.Warn(err.Error())
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(err.Error()))
}

func (t TokenValidator) callerFromToken(tokenString string) (model.Account, error) {
	token, err := jwt.ParseSigned(tokenString)
	if err != nil {
		return "", errors.New("failed to parse the auth token: " + err.Error())
	}

	var registered jwt.Claims
	var claims map[string]interface{}

	if t.Secret == "" {
		if err := token.UnsafeClaimsWithoutVerification(&registered, &claims); err != nil {
			return "", err
		}
	} else {
		if err := token.Claims([]byte(t.Secret), &registered, &claims); err != nil {
			return "", err
		}
	}

	if err := t.validateClaims(registered); err != nil {
		return "", err
	}

	if registered.Subject != "" {
		return model.Account(registered.Subject), nil
	}
	if oid, ok := claims["oid"].(string); ok && oid != "" {
		return model.Account(oid), nil
	}
	return "", ErrMissingCaller
}

func (t TokenValidator) validateClaims(claims jwt.Claims) error {
	expected := jwt.Expected{
		Issuer: t.Issuer,
		Time:   time.Now(),
	}
	if t.Audience != "" {
		expected.Audience = jwt.Audience{t.Audience}
	}
	return claims.Validate(expected)
}

func WithCaller(ctx context.Context, caller model.Account) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

func CallerFromContext(ctx context.Context) (model.Account, bool) {
	caller, ok := ctx.Value(contextKey{}).(model.Account)
	return caller, ok && !caller.IsEmpty()
}
