package strava

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// CallbackPort is where the local OAuth callback listens
	CallbackPort = 8089
	// AuthTimeout bounds how long the user has to approve access
	AuthTimeout = 5 * time.Minute
)

// Authorization is a freshly granted token and the athlete it belongs to
type Authorization struct {
	Token     *oauth2.Token
	AthleteID int64
}

// Authorize runs the browser OAuth flow against a local callback server.
// prompt receives the URL the user has to open.
func Authorize(ctx context.Context, cfg *oauth2.Config, port int, prompt func(authURL string)) (*Authorization, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(state, codes, errs))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer shutdown(server)

	prompt(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return &Authorization{Token: token, AthleteID: AthleteID(token)}, nil
}

func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	fail := func(w http.ResponseWriter, status int, err error) {
		select {
		case errs <- err:
		default:
		}
		http.Error(w, err.Error(), status)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			fail(w, http.StatusBadRequest, errors.New("state mismatch"))
			return
		}
		if msg := q.Get("error"); msg != "" {
			fail(w, http.StatusBadRequest, fmt.Errorf("authorization denied: %s", msg))
			return
		}
		code := q.Get("code")
		if code == "" {
			fail(w, http.StatusBadRequest, errors.New("no code in callback"))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Connected</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1 style="color: #10B981;">Connected to Strava</h1>
<p>You can close this window and return to the terminal.</p>
</body></html>`)
		select {
		case codes <- code:
		default:
		}
	})
}

// AthleteID reads the athlete id Strava attaches to token responses
func AthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]any); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
