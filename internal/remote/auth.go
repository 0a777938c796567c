package remote

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"lapfinder/internal/config"
)

// NewTokenSource returns a client-credentials token source for cfg, or nil
// when no credentials are configured
func NewTokenSource(ctx context.Context, cfg config.RemoteConfig) oauth2.TokenSource {
	if !cfg.HasCredentials() {
		return nil
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &loggingTokenSource{src: cc.TokenSource(ctx)}
}

// loggingTokenSource logs each time a new access token is issued
type loggingTokenSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	last string
}

func (ts *loggingTokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	tok, err := ts.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != ts.last {
		logf("obtained access token, expires %s", tok.Expiry.Format("15:04:05"))
		ts.last = tok.AccessToken
	}
	return tok, nil
}
