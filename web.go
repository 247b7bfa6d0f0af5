/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/ghostly/ghosts"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("ghostly v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func newSite(cfg *Config, errs chan<- error) (*site, error) {
	pool, err := ghosts.LoadFile(cfg.names,
		ghosts.LoadOptions{NameColumn: cfg.nameColumn},
		ghosts.WithStrictClaims(cfg.strictClaims),
	)
	if err != nil {
		return nil, err
	}

	if cfg.reservations != "" {
		holders, err := loadReservations(cfg.reservations)
		if err != nil {
			return nil, err
		}
		if err := pool.Reserve(holders); err != nil {
			return nil, err
		}
		logf(cfg, "NAMES: Reserved %d names from %s", len(holders), cfg.reservations)
	}

	sessions, err := newSessionCodec(cfg)
	if err != nil {
		return nil, err
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &site{
		cfg:      cfg,
		pool:     pool,
		sessions: sessions,
		roster:   newRosterHub(pool),
		pages:    pages,
		errs:     errs,
	}

	if cfg.googleClientID != "" {
		s.identity = newGoogleProvider(cfg.googleClientID, cfg.googleClientSecret)
	} else {
		logf(cfg, "AUTH: No google credentials configured, sign-in disabled")
	}

	logf(cfg, "NAMES: Loaded %d names from %s (%d free)", pool.Len(), cfg.names, len(pool.Free()))

	return s, nil
}

func newRouter(s *site) *httprouter.Router {
	cfg := s.cfg

	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		errorf(cfg, "PANIC: %s %s from %s: %v", r.Method, r.URL.Path, realIP(r), i)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, s.errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, s.errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, s.errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, s.errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, s.errs))

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	registerGhostNames(s, mux)

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: ghostly v%s", releaseVersion)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	errs := make(chan error, 64)

	s, err := newSite(cfg, errs)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(s),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.roster.run(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-errs:
				errorf(cfg, "SERVE: %v", err)
			}
		}
	})

	g.Go(func() error {
		var err error

		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
