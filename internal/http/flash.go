package http

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookieName = "spendsmart_flash"

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Message string
}

func setFlash(w http.ResponseWriter, kind FlashKind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(string(kind) + ":" + msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// consumeFlash returns the pending flash, if any, and clears it.
func consumeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || msg == "" {
		return nil
	}
	if FlashKind(kind) != FlashSuccess {
		kind = string(FlashError)
	}
	return &Flash{Kind: FlashKind(kind), Message: msg}
}

// redirectWithFlash is the response for form submissions.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to string, kind FlashKind, msg string) {
	setFlash(w, kind, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
