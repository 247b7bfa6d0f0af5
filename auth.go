/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

var ErrNoEmail = errors.New("identity provider returned no email")

// Identity is who the login flow says the visitor is.
type Identity struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

type identityProvider interface {
	// AuthCodeURL is where the visitor is sent to sign in.
	AuthCodeURL(state, redirectURL string) string
	// Identify exchanges the callback code for the visitor's identity.
	Identify(ctx context.Context, code, redirectURL string) (Identity, error)
}

type oauthProvider struct {
	config      oauth2.Config
	userInfoURL string
}

func newGoogleProvider(clientID, clientSecret string) *oauthProvider {
	return &oauthProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *oauthProvider) withRedirect(redirectURL string) *oauth2.Config {
	c := p.config
	c.RedirectURL = redirectURL
	return &c
}

func (p *oauthProvider) AuthCodeURL(state, redirectURL string) string {
	return p.withRedirect(redirectURL).AuthCodeURL(state)
}

func (p *oauthProvider) Identify(ctx context.Context, code, redirectURL string) (Identity, error) {
	c := p.withRedirect(redirectURL)

	token, err := c.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchanging code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}

	resp, err := c.Client(ctx, token).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Identity{}, fmt.Errorf("fetching userinfo: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("decoding userinfo: %w", err)
	}
	if id.Email == "" {
		return Identity{}, ErrNoEmail
	}

	return id, nil
}

// callbackURL is the absolute address of the /authorize route.
func callbackURL(cfg *Config, r *http.Request) string {
	if cfg.baseURL != "" {
		return strings.TrimSuffix(cfg.baseURL, "/") + cfg.prefix + "/authorize"
	}

	return requestScheme(r) + "://" + r.Host + cfg.prefix + "/authorize"
}

func requestScheme(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme
}
