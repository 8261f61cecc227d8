package strava

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{"ok", "?state=s1&code=abc", http.StatusOK, "abc"},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, ""},
		{"denied", "?state=s1&error=access_denied", http.StatusBadRequest, ""},
		{"no code", "?state=s1", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", codes, errs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			select {
			case code := <-codes:
				if code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			case err := <-errs:
				if tt.wantCode != "" {
					t.Errorf("unexpected error %v", err)
				}
			}
		})
	}
}

func TestAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{
		"athlete": map[string]any{"id": float64(1234)},
	})
	if got := AthleteID(tok); got != 1234 {
		t.Errorf("AthleteID() = %d, want 1234", got)
	}
	if got := AthleteID(&oauth2.Token{}); got != 0 {
		t.Errorf("AthleteID(no extra) = %d, want 0", got)
	}
}
