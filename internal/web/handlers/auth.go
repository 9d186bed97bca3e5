package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
)

const sessionCookie = "session_id"

type loginPage struct {
	basePage
	Email string
}

type registerPage struct {
	basePage
	Name  string
	Email string
}

func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	// Already signed in, nothing to do here.
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, ok := h.sessions.Get(c.Value); ok {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}

	flash, errMsg := bannerFrom(r)
	h.render(w, "login", loginPage{
		basePage: basePage{CSRFField: csrf.TemplateField(r), Flash: flash, Error: errMsg},
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, http.StatusBadRequest, "Invalid form data", "")
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	apiSess, err := h.api.Auth().Login(r.Context(), client.LoginParams{
		Email:    email,
		Password: password,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, client.ErrValidation) {
			status = http.StatusBadRequest
		}
		msg := "Invalid email or password"
		if !errors.Is(err, client.ErrUnauthorized) {
			msg = userMessage(err)
		}
		h.renderLoginError(w, r, status, msg, email)
		return
	}

	// A fresh credential always gets a fresh cookie. Replacing any
	// existing session id prevents fixation.
	if c, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Delete(c.Value)
	}

	b, err := h.sessions.Create(apiSess)
	if err != nil {
		h.log.Error().Err(err).Msg("create browser session")
		h.renderLoginError(w, r, http.StatusInternalServerError, "Could not create a session", email)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    b.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  b.ExpiresAt,
	})

	h.log.Info().Str("email", email).Msg("user signed in")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	w.WriteHeader(status)
	h.render(w, "login", loginPage{
		basePage: basePage{CSRFField: csrf.TemplateField(r), Error: msg},
		Email:    email,
	})
}

func (h *Handler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	flash, errMsg := bannerFrom(r)
	h.render(w, "register", registerPage{
		basePage: basePage{CSRFField: csrf.TemplateField(r), Flash: flash, Error: errMsg},
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegisterError(w, r, http.StatusBadRequest, "Invalid form data", "", "")
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")

	err := h.api.Auth().Register(r.Context(), client.RegisterParams{
		Name:     name,
		Email:    email,
		Password: r.FormValue("password"),
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, client.ErrTransport) {
			status = http.StatusBadGateway
		}
		h.renderRegisterError(w, r, status, userMessage(err), name, email)
		return
	}

	redirectMessage(w, r, "/login", "flash", "Account created. Sign in to continue.")
}

func (h *Handler) renderRegisterError(w http.ResponseWriter, r *http.Request, status int, msg, name, email string) {
	w.WriteHeader(status)
	h.render(w, "register", registerPage{
		basePage: basePage{CSRFField: csrf.TemplateField(r), Error: msg},
		Name:     name,
		Email:    email,
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if b, ok := h.sessions.Get(c.Value); ok {
			// Drop the API credential too, not just the cookie mapping.
			b.API.Clear()
		}
		h.sessions.Delete(c.Value)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
