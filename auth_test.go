package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newOAuthServer(t *testing.T, userinfo func(w http.ResponseWriter, r *http.Request)) *oauthProvider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		userinfo(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := newGoogleProvider("client-id", "client-secret")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"

	return p
}

func TestOAuthProviderAuthCodeURL(t *testing.T) {
	p := newGoogleProvider("client-id", "client-secret")

	raw := p.AuthCodeURL("state-1", "https://ghosts.example.com/authorize")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "https://ghosts.example.com/authorize", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Empty(t, p.config.RedirectURL, "shared config must not be mutated")
}

func TestOAuthProviderIdentify(t *testing.T) {
	p := newOAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"email":       "ann@x.com",
			"given_name":  "Ann",
			"family_name": "Lee",
			"picture":     "ignored",
		})
	})

	id, err := p.Identify(context.Background(), "good-code", "http://localhost/authorize")
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "ann@x.com", GivenName: "Ann", FamilyName: "Lee"}, id)

	_, err = p.Identify(context.Background(), "bad-code", "http://localhost/authorize")
	assert.ErrorContains(t, err, "exchanging code")
}

func TestOAuthProviderUserinfoFailures(t *testing.T) {
	noEmail := newOAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"given_name":"Ann"}`))
	})

	_, err := noEmail.Identify(context.Background(), "good-code", "http://localhost/authorize")
	require.ErrorIs(t, err, ErrNoEmail)

	broken := newOAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusServiceUnavailable)
	})

	_, err = broken.Identify(context.Background(), "good-code", "http://localhost/authorize")
	require.ErrorContains(t, err, "503")
	assert.ErrorContains(t, err, "upstream sad")
}

func TestCallbackURL(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/ghosts"

	r := httptest.NewRequest(http.MethodGet, "http://internal:8080/login", nil)
	assert.Equal(t, "http://internal:8080/ghosts/authorize", callbackURL(cfg, r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://internal:8080/ghosts/authorize", callbackURL(cfg, r))

	cfg.baseURL = "https://ghosts.example.com/"
	assert.Equal(t, "https://ghosts.example.com/ghosts/authorize", callbackURL(cfg, r))
	assert.Equal(t, "https://ghosts.example.com/ghosts/", siteURL(cfg, r))
}
