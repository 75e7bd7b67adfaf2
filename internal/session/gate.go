// Package session maps login sessions to user identities.
//
// A successful login issues an opaque token persisted in the sessions table
// and sent back as a cookie. Every request runs through Gate.Middleware, which
// resolves the cookie and stores the identity in the request context; handlers
// read it back with CurrentUser instead of any global state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendsmart/internal/cache"
	"spendsmart/internal/core"
	"spendsmart/internal/storage"
)

// Store is the persistence the gate needs.
type Store interface {
	CreateSession(ctx context.Context, s storage.SessionRecord) error
	GetSession(ctx context.Context, token string, now time.Time) (storage.SessionRecord, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Config struct {
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
	CacheSize    int
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		TTL:        7 * 24 * time.Hour,
		CookieName: "spendsmart_session",
		CacheSize:  1024,
		CacheTTL:   time.Minute,
	}
}

type cachedSession struct {
	userID    int64
	expiresAt time.Time
}

type Gate struct {
	store Store
	cache cache.Cache[cachedSession]
	cfg   Config
	now   func() time.Time

	// mu orders cache fills against revocations. revocations counts
	// completed logouts; a fill whose lookup overlapped one is not cached.
	mu          sync.Mutex
	revocations uint64
}

func NewGate(store Store, cfg Config) *Gate {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	return &Gate{
		store: store,
		cache: cache.NewLRUCache[cachedSession](cfg.CacheSize, cfg.CacheTTL),
		cfg:   cfg,
		now:   time.Now,
	}
}

// Login issues a new session token for userID.
func (g *Gate) Login(ctx context.Context, userID int64) (string, time.Time, error) {
	now := g.now().UTC()
	rec := storage.SessionRecord{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(g.cfg.TTL),
	}
	if err := g.store.CreateSession(ctx, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("issue session: %w", err)
	}

	slog.InfoContext(ctx, "Session issued", "user_id", userID, "expires_at", rec.ExpiresAt)
	return rec.Token, rec.ExpiresAt, nil
}

// Resolve returns the user behind token. Unknown, expired and empty tokens
// resolve to (0, false); so do storage failures, which are logged.
func (g *Gate) Resolve(ctx context.Context, token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	now := g.now()

	if cs, ok := g.cache.Get(token); ok {
		if now.Before(cs.expiresAt) {
			return cs.userID, true
		}
		g.cache.Delete(token)
	}

	g.mu.Lock()
	gen := g.revocations
	g.mu.Unlock()

	rec, err := g.lookup(ctx, token, now)
	if err != nil {
		return 0, false
	}

	g.mu.Lock()
	if g.revocations == gen {
		g.cache.Set(token, cachedSession{userID: rec.UserID, expiresAt: rec.ExpiresAt})
		g.mu.Unlock()
		return rec.UserID, true
	}
	g.mu.Unlock()

	// A logout finished while the row was being read; read it again.
	rec, err = g.lookup(ctx, token, now)
	if err != nil {
		return 0, false
	}
	return rec.UserID, true
}

func (g *Gate) lookup(ctx context.Context, token string, now time.Time) (storage.SessionRecord, error) {
	rec, err := g.store.GetSession(ctx, token, now)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		slog.ErrorContext(ctx, "Session lookup failed", "error", err)
	}
	return rec, err
}

// Logout invalidates token immediately. Logging out twice is not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := g.store.DeleteSession(ctx, token)

	g.mu.Lock()
	g.revocations++
	g.cache.Delete(token)
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	slog.InfoContext(ctx, "Session revoked")
	return nil
}

// PurgeExpired removes expired sessions from storage.
func (g *Gate) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := g.store.DeleteExpiredSessions(ctx, g.now())
	if err != nil {
		return 0, err
	}
	if c, ok := g.cache.(cache.Cleaner); ok {
		c.CleanExpired()
	}
	return n, nil
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (g *Gate) RunJanitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := g.PurgeExpired(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Expired sessions purged", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Middleware resolves the session cookie and stores the identity in the
// request context. It never rejects a request.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(g.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := withToken(r.Context(), cookie.Value)
		if userID, ok := g.Resolve(ctx, cookie.Value); ok {
			ctx = WithUser(ctx, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetCookie writes the session cookie for token.
func (g *Gate) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   g.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser.
func (g *Gate) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireUser passes the request to next only when it carries an identity;
// otherwise deny writes the response.
func RequireUser(deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAuthenticated(r.Context()) {
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
