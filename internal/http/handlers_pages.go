package http

import (
	"bytes"
	"errors"
	"net/http"

	"spendsmart/internal/core"
	applog "spendsmart/internal/log"
	"spendsmart/internal/session"
)

type pageData struct {
	Title  string
	Flash  *Flash
	UserID int64
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).ErrorContext(r.Context(),
			"Template execution failed",
			applog.NewFields().WithError(err, "").WithOperation(applog.OpRender).ToSlice()...)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", pageData{Title: "Register", Flash: consumeFlash(w, r)})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", pageData{Title: "Log in", Flash: consumeFlash(w, r)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.CurrentUser(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.render(w, r, "dashboard.html", pageData{Title: "Dashboard", Flash: consumeFlash(w, r), UserID: userID})
}

// handleRegister answers JSON clients with 201 or an error status and form
// submissions with a redirect plus flash message.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.ComponentAuth, applog.OpRegister, err)
		return
	}
	asJSON := wantsJSON(r, p)

	u, err := s.auth.Register(r.Context(), p.Get("email"), p.Raw("password"))
	if err != nil {
		if asJSON {
			writeError(w, r, applog.ComponentAuth, applog.OpRegister, err)
			return
		}
		redirectWithFlash(w, r, "/register", FlashError, registerFailureMessage(err))
		return
	}

	if asJSON {
		NewJSONResponse().
			Status(http.StatusCreated).
			Message("registration successful").
			Field("id", u.ID).
			Write(w)
		return
	}
	redirectWithFlash(w, r, "/login", FlashSuccess, "Registration successful. Please log in.")
}

func registerFailureMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrDuplicateIdentity):
		return "That email is already registered."
	case errors.Is(err, core.ErrInvalidInput):
		return "Email and password are required."
	default:
		return "Registration failed. Please try again."
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.ComponentAuth, applog.OpLogin, err)
		return
	}
	asJSON := wantsJSON(r, p)

	u, err := s.auth.Authenticate(r.Context(), p.Get("email"), p.Raw("password"))
	if err != nil {
		if asJSON {
			writeError(w, r, applog.ComponentAuth, applog.OpLogin, err)
			return
		}
		msg := "Invalid email or password."
		if StatusForError(err) == http.StatusInternalServerError {
			msg = "Login failed. Please try again."
		}
		redirectWithFlash(w, r, "/login", FlashError, msg)
		return
	}

	token, expiresAt, err := s.gate.Login(r.Context(), u.ID)
	if err != nil {
		if asJSON {
			writeError(w, r, applog.ComponentSession, applog.OpLogin, err)
			return
		}
		redirectWithFlash(w, r, "/login", FlashError, "Login failed. Please try again.")
		return
	}
	s.gate.SetCookie(w, token, expiresAt)

	if asJSON {
		NewJSONResponse().Message("login successful").Field("id", u.ID).Write(w)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.gate.Logout(r.Context(), session.Token(r.Context())); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentSession).ErrorContext(r.Context(),
			"Logout failed", applog.NewFields().WithError(err, core.ErrorKind(err)).ToSlice()...)
	}
	s.gate.ClearCookie(w)
	redirectWithFlash(w, r, "/login", FlashSuccess, "You have been logged out.")
}
