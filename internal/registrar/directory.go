package registrar

import (
	"context"
	"doc-registry/internal/model"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultDirectoryTimeout = 5 * time.Second

// Directory asks a remote identity directory whether an account is registered.
// GET {baseURL}/users/{account}: 2xx means registered, 404 means unknown.
// A 401 invalidates the token and the lookup is retried once.
type Directory struct {
	logger  *zap.Logger
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

func NewDirectory(logger *zap.Logger, baseURL string, tokens TokenSource) Directory {
	if tokens == nil {
		tokens = StaticToken("")
	}
	return Directory{
		logger:  logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: defaultDirectoryTimeout},
	}
}

func (d Directory) IsRegistered(ctx context.Context, account model.Account) (bool, error) {
	if account.IsEmpty() {
		return false, nil
	}

	resp, err := d.lookup(ctx, account)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		d.logger.Debug("directory refused the token, requesting a new one")
		d.tokens.Invalidate()
		if resp, err = d.lookup(ctx, account); err != nil {
			return false, err
		}
	}
	defer resp.Body.Close()

	if isResponseSuccess(resp.StatusCode) {
		return true, nil
	}
	if resp.StatusCode == http.StatusNotFound {
		d.logger.Debug("account not found in the directory", zap.String("account", account.String()))
		return false, nil
	}

	// on any other status read the body to get the error
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		responseBody = []byte("failed to read the response body: " + err.Error())
	}
	return false, errors.New("directory status code: " + resp.Status + "; body: " + string(responseBody))
}

func (d Directory) lookup(ctx context.Context, account model.Account) (*http.Response, error) {
	path := d.baseURL + "/users/" + url.PathEscape(account.String())
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	token, err := d.tokens.Token(ctx)
	if err != nil {
		return nil, errors.New("failed to get the directory token: " + err.Error())
	}
	if token != "" {
		r.Header.Add("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(r)
	if err != nil {
		return nil, errors.New("directory request failed: " + err.Error())
	}
	return resp, nil
}

func isResponseSuccess(responseCode int) bool {
	return responseCode >= 200 && responseCode < 300
}
