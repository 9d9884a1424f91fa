// Package app contains the web front-end.
package app

import (
	"embed"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/meridianlaw/intake/internal/config"
	"github.com/meridianlaw/intake/internal/sec"
	"github.com/meridianlaw/intake/internal/storage"
)

//go:embed static
var staticFiles embed.FS

// publicPaths are served without authentication. Everything else
// requires a logged-in session.
var publicPaths = map[string]struct{}{
	"/":             {},
	"/index":        {},
	"/about":        {},
	"/faq":          {},
	"/login":        {},
	"/logout":       {},
	"/create-login": {},
	"/register":     {},
	"/robots.txt":   {},
}

// publicPrefixes extend the allowlist to static assets.
var publicPrefixes = []string{"/static/"}

// New creates the web front-end server.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	store storage.Store,
	sessions *sec.Sessions,
	resolver *sec.Resolver,
) (*echo.Echo, error) {
	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)

	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}
	srv.Renderer = renderer

	if cfg.DevMode {
		srv.Debug = true
		srv.Use(logRequests(logger))
	}

	srv.Use(
		middleware.Recover(),
		middleware.Secure(),
		middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup: "cookie:" + middleware.DefaultCSRFConfig.CookieName,
		}),
		middleware.RequestID(),
	)

	h, err := newHandler(logger, store, sessions, resolver)
	if err != nil {
		return nil, err
	}

	srv.Use(loadSession(sessions), requireLogin())

	h.register(srv)
	staticFS := echo.MustSubFS(staticFiles, "static")
	srv.StaticFS("/static/", staticFS)
	srv.FileFS("/robots.txt", "robots.txt", staticFS)
	return srv, nil
}

// loadSession resolves the session cookie, if any, into the request
// context. It never creates sessions; handlers do that when they have
// something to store.
func loadSession(sessions *sec.Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(sec.SessionCookie); err == nil {
				if sess, ok := sessions.Get(cookie.Value); ok {
					c.Set(sessionContextKey, sess)
				}
			}
			return next(c)
		}
	}
}

// requireLogin is the global authentication gate, evaluated once per
// request before any route handler. Allowlisted paths pass through;
// otherwise the request needs a logged-in session or it is answered with
// the login view. The original request is not queued or retried.
func requireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if _, ok := publicPaths[path]; ok {
				return next(c)
			}
			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}
			if sess, ok := currentSession(c); ok && sess.LoggedIn {
				return next(c)
			}
			return c.Render(http.StatusUnauthorized, "login", loginData{
				ErrorMessage: "Please log in to access this page",
			})
		}
	}
}

const sessionContextKey = "intake.session"

func currentSession(c echo.Context) (sec.Session, bool) {
	sess, ok := c.Get(sessionContextKey).(sec.Session)
	return sess, ok
}

func setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     sec.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sec.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(
				req.Context(),
				slog.LevelDebug,
				"request handled",
				attrs...,
			)
			return err
		}
	}
}
