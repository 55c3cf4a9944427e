package registrar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// TokenSource supplies the bearer token sent to the directory.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops a token the directory refused.
	Invalidate()
}

// StaticToken is a fixed token; an empty one sends no Authorization header.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

func (StaticToken) Invalidate() {}

type tokenGuard struct {
	mu    sync.Mutex
	token string
}

// ClientCredentials obtains an app token with the OAuth2 client credentials
// grant and keeps it until the directory rejects it.
type ClientCredentials struct {
	tokenURL string
	clientID string
	secret   string
	scope    string
	client   *http.Client

	guard *tokenGuard
}

func NewClientCredentials(tokenURL, clientID, secret, scope string) ClientCredentials {
	return ClientCredentials{
		tokenURL: tokenURL,
		clientID: clientID,
		secret:   secret,
		scope:    scope,
		client:   &http.Client{Timeout: defaultDirectoryTimeout},
		guard:    &tokenGuard{},
	}
}

func (c ClientCredentials) Token(ctx context.Context) (string, error) {
	c.guard.mu.Lock()
	defer c.guard.mu.Unlock()

	if c.guard.token != "" {
		return c.guard.token, nil
	}

	token, err := c.getAppToken(ctx)
	if err != nil {
		return "", err
	}
	c.guard.token = token
	return token, nil
}

func (c ClientCredentials) Invalidate() {
	c.guard.mu.Lock()
	defer c.guard.mu.Unlock()
	c.guard.token = ""
}

func (c ClientCredentials) getAppToken(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.secret)
	if c.scope != "" {
		data.Set("scope", c.scope)
	}
	data.Set("grant_type", "client_credentials")

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	r.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(r)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.New("reading response error: " + err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("status code: " + resp.Status + "; body: " + string(responseBody))
	}

	var unmarshalled struct {
		Token string `json:"access_token"`
	}
	if err := json.Unmarshal(responseBody, &unmarshalled); err != nil {
		return "", errors.New("failed to unmarshal the response: " + err.Error())
	}
	if unmarshalled.Token == "" {
		return "", errors.New("token endpoint returned no access_token")
	}

	return unmarshalled.Token, nil
}
