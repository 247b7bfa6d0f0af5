package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Seednode/ghostly/ghosts"
	"github.com/stretchr/testify/require"
)

// fakeIdentity signs everyone in as the same person without leaving the
// test server.
type fakeIdentity struct {
	id  Identity
	err error
}

func (f *fakeIdentity) AuthCodeURL(state, redirectURL string) string {
	return redirectURL + "?" + url.Values{"code": {"letmein"}, "state": {state}}.Encode()
}

func (f *fakeIdentity) Identify(_ context.Context, code, _ string) (Identity, error) {
	if f.err != nil {
		return Identity{}, f.err
	}
	if code != "letmein" {
		return Identity{}, errors.New("bad code")
	}
	return f.id, nil
}

func testConfig() *Config {
	return &Config{
		candidates:     3,
		nameColumn:     ghosts.DefaultNameColumn,
		port:           8080,
		sessionSecret:  "test-secret",
		sessionTimeout: time.Hour,
	}
}

func newTestSite(t *testing.T, cfg *Config, names ...string) *site {
	t.Helper()

	records := make([]ghosts.Record, 0, len(names))
	for _, n := range names {
		records = append(records, ghosts.Record{Name: n})
	}

	pool, err := ghosts.New(records, ghosts.WithStrictClaims(cfg.strictClaims))
	require.NoError(t, err)

	sessions, err := newSessionCodec(cfg)
	require.NoError(t, err)

	pages, err := parsePages()
	require.NoError(t, err)

	errs := make(chan error, 64)

	return &site{
		cfg:      cfg,
		pool:     pool,
		sessions: sessions,
		identity: &fakeIdentity{id: Identity{Email: "ann@x.com", GivenName: "Ann", FamilyName: "Lee"}},
		roster:   newRosterHub(pool),
		pages:    pages,
		errs:     errs,
	}
}

// newTestClient returns a client that keeps cookies and does not follow
// redirects.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func startServer(t *testing.T, s *site) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(newRouter(s))
	t.Cleanup(srv.Close)

	return srv
}
