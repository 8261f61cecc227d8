package strava

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Strava OAuth endpoints
const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"
)

// refresh this long before the token actually expires
const expiryBuffer = 60 * time.Second

// OAuthConfig builds the oauth2 config for the app's credentials
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		Scopes: []string{"read,activity:read_all"},
	}
}

// TokenSource refreshes an expiring token and hands every new token to
// onRefresh so it can be persisted.
type TokenSource struct {
	config    *oauth2.Config
	onRefresh func(*oauth2.Token) error
	now       func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenSource creates a TokenSource. A nil clock uses time.Now.
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error, now func() time.Time) *TokenSource {
	if now == nil {
		now = time.Now
	}
	return &TokenSource{config: cfg, token: token, onRefresh: onRefresh, now: now}
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.expiring() {
		return ts.token, nil
	}

	// oauth2 would otherwise keep the old token until its own 10s expiry delta
	stale := &oauth2.Token{RefreshToken: ts.token.RefreshToken}
	fresh, err := ts.config.TokenSource(context.Background(), stale).Token()
	if err != nil {
		return nil, err
	}
	if ts.onRefresh != nil {
		if err := ts.onRefresh(fresh); err != nil {
			return nil, err
		}
	}
	ts.token = fresh
	return fresh, nil
}

func (ts *TokenSource) expiring() bool {
	if ts.token.Expiry.IsZero() {
		return ts.token.AccessToken == ""
	}
	return ts.token.Expiry.Sub(ts.now()) <= expiryBuffer
}

// StaticTokenSource wraps a long-lived access token, e.g. from STRAVA_ACCESS_TOKEN
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}
