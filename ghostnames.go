/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/Seednode/ghostly/ghosts"
	"github.com/julienschmidt/httprouter"
)

// site holds everything the ghost name routes share.
type site struct {
	cfg      *Config
	pool     *ghosts.Store
	sessions *sessionCodec
	identity identityProvider // nil when login is not configured
	roster   *rosterHub
	pages    *template.Template
	errs     chan<- error
}

type pageData struct {
	Title  string
	Prefix string

	Session    Session
	Taken      []ghosts.Record
	Free       []ghosts.Record
	Candidates []ghosts.Record
	First      string
	Family     string
}

func (s *site) page(title string, sess Session) pageData {
	return pageData{
		Title:   title,
		Prefix:  s.cfg.prefix,
		Session: sess,
	}
}

func (s *site) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	startTime := time.Now()

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.errs <- err
		serveError(s.cfg, w, http.StatusInternalServerError, "Server Error", "An error has occurred. Please try again.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	securityHeaders(s.cfg, w)

	written, err := w.Write(buf.Bytes())
	if err != nil {
		s.errs <- err
		return
	}

	logf(s.cfg, "SERVE: %s (%s) to %s in %s",
		name,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func (s *site) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, s.cfg.prefix+path, http.StatusSeeOther)
}

func (s *site) saveSession(w http.ResponseWriter, sess Session) bool {
	if err := s.sessions.save(w, sess); err != nil {
		s.errs <- err
		serveError(s.cfg, w, http.StatusInternalServerError, "Server Error", "An error has occurred. Please try again.")
		return false
	}
	return true
}

func (s *site) requireLogin(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if sess := s.sessions.load(r); !sess.LoggedIn() {
			s.redirect(w, r, "/login")
			return
		}
		next(w, r, p)
	}
}

func (s *site) serveIndex() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := s.page("Ghostly", s.sessions.load(r))
		data.Taken = s.pool.Taken()
		data.Free = s.pool.Free()

		s.render(w, r, "index.html", data)
	}
}

func (s *site) serveForm() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := s.sessions.load(r)

		data := s.page("Please enter your name", sess)
		data.First, data.Family = sess.ChosenFirst, sess.ChosenFamily
		if data.First == "" && data.Family == "" {
			data.First, data.Family = sess.GivenName, sess.FamilyName
		}

		s.render(w, r, "form.html", data)
	}
}

func (s *site) serveNameSelect() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			serveError(s.cfg, w, http.StatusBadRequest, "Bad Request", "Invalid form data.")
			return
		}

		sess := s.sessions.load(r)
		sess.ChosenFirst = r.PostForm.Get("first_name")
		sess.ChosenFamily = r.PostForm.Get("family_name")

		candidates, err := s.pool.Sample(s.cfg.candidates)
		if err != nil {
			logf(s.cfg, "NAMES: sampling for %s failed: %v", realIP(r), err)
			serveError(s.cfg, w, statusFor(err), "No names left", messageFor(err))
			return
		}

		if !s.saveSession(w, sess) {
			return
		}

		data := s.page("Please select your name", sess)
		data.First, data.Family = sess.ChosenFirst, sess.ChosenFamily
		data.Candidates = candidates

		s.render(w, r, "select.html", data)
	}
}

func (s *site) serveSubmit() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := r.ParseForm(); err != nil {
			serveError(s.cfg, w, http.StatusBadRequest, "Bad Request", "Invalid form data.")
			return
		}

		sess := s.sessions.load(r)
		ghostName := r.PostForm.Get("ghost_name")

		holder := ghosts.Holder{
			First:  sess.ChosenFirst,
			Family: sess.ChosenFamily,
			Email:  sess.Email,
		}

		released, ok, err := s.pool.Assign(ghostName, holder)
		if err != nil {
			logf(s.cfg, "NAMES: %q for %s refused: %v", ghostName, realIP(r), err)
			serveError(s.cfg, w, statusFor(err), "Name unavailable", messageFor(err))
			return
		}

		if ok {
			logf(s.cfg, "NAMES: Released %q from %s", released.Name, sess.Email)
		}
		logf(s.cfg, "NAMES: Claimed %q for %s", ghostName, sess.Email)

		s.roster.notify()

		sess.GhostName = ghostName
		if !s.saveSession(w, sess) {
			return
		}

		s.redirect(w, r, "/")
	}
}

func (s *site) serveLogin() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if s.identity == nil {
			serveError(s.cfg, w, http.StatusServiceUnavailable, "Login unavailable", "Sign-in has not been configured on this server.")
			return
		}

		state := s.sessions.newState(w)

		http.Redirect(w, r, s.identity.AuthCodeURL(state, callbackURL(s.cfg, r)), http.StatusFound)
	}
}

func (s *site) serveAuthorize() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if s.identity == nil {
			serveError(s.cfg, w, http.StatusServiceUnavailable, "Login unavailable", "Sign-in has not been configured on this server.")
			return
		}

		if !s.sessions.checkState(w, r) {
			serveError(s.cfg, w, http.StatusBadRequest, "Login failed", "Your sign-in attempt expired. Please try again.")
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			serveError(s.cfg, w, http.StatusBadRequest, "Login failed", "Sign-in was cancelled.")
			return
		}

		id, err := s.identity.Identify(r.Context(), code, callbackURL(s.cfg, r))
		if err != nil {
			errorf(s.cfg, "AUTH: login from %s failed: %v", realIP(r), err)
			serveError(s.cfg, w, http.StatusBadGateway, "Login failed", "We could not confirm who you are. Please try again.")
			return
		}

		sess := s.sessions.load(r)
		if sess.Email != id.Email {
			sess.Clear()
		}
		sess.Email = id.Email
		sess.GivenName = id.GivenName
		sess.FamilyName = id.FamilyName

		if !s.saveSession(w, sess) {
			return
		}

		logf(s.cfg, "AUTH: %s signed in from %s", id.Email, realIP(r))

		s.redirect(w, r, "/form")
	}
}

func (s *site) serveLogout() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := s.sessions.load(r)
		if sess.LoggedIn() {
			logf(s.cfg, "AUTH: %s signed out from %s", sess.Email, realIP(r))
		}

		s.sessions.clear(w)
		s.redirect(w, r, "/")
	}
}

func (s *site) serveNames() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(s.cfg, w)

		if err := json.NewEncoder(w).Encode(newRosterMessage(s.pool)); err != nil {
			s.errs <- err
		}
	}
}

func redirectTo(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.Redirect(w, r, cfg.prefix+path, http.StatusSeeOther)
	}
}

// registerGhostNames sets up routes so that:
//   - /              → taken and free names
//   - /form          → name form, sign-in required
//   - /name-select   → candidate names to pick from
//   - /submit        → claims the picked name
//   - /login, /authorize, /logout → sign-in flow
//   - /api/names, /ws, /qr → roster as JSON, live roster, share code
func registerGhostNames(s *site, mux *httprouter.Router) {
	prefix := s.cfg.prefix

	mux.GET(prefix+"/", s.serveIndex())

	mux.GET(prefix+"/form", s.requireLogin(s.serveForm()))

	mux.POST(prefix+"/name-select", s.serveNameSelect())
	mux.GET(prefix+"/name-select", redirectTo(s.cfg, "/form"))

	mux.POST(prefix+"/submit", s.serveSubmit())
	mux.GET(prefix+"/submit", redirectTo(s.cfg, "/"))

	mux.GET(prefix+"/login", s.serveLogin())
	mux.GET(prefix+"/authorize", s.serveAuthorize())
	mux.GET(prefix+"/logout", s.serveLogout())

	mux.GET(prefix+"/api/names", s.serveNames())
	mux.GET(prefix+"/ws", s.roster.serveWS(s.cfg))
	mux.GET(prefix+"/qr", serveQR(s.cfg, s.errs))
}
