// RIDS Dashboard
//
// Server-rendered panel over the RIDS REST API: sign-in, dashboard KPIs,
// leads and user administration.
//
// Setup:
//   API_URL=http://localhost:4000 go run .
//
// Optional: REDIS_URL for "remember me" sessions that survive restarts.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"rids-dashboard/config"
	"rids-dashboard/handlers"
	"rids-dashboard/middleware"
	"rids-dashboard/services"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// persistentStore is Redis when configured, otherwise process memory.
func persistentStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (services.Store, func(), error) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set; remembered sessions are kept in memory")
		return services.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return services.NewRedisStore(client, services.RememberFor), func() { client.Close() }, nil
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := newLogger(cfg)

	keys, err := services.DeriveKeys(cfg.SessionSecret)
	if err != nil {
		log.WithError(err).Fatal("derive keys")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persistent, closeStore, err := persistentStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("storage")
	}
	defer closeStore()

	cookies := sessions.NewCookieStore(keys.CookieHash, keys.CookieBlock)
	api := services.NewClient(cfg.APIURL, cfg.APITimeout)
	sm := services.NewSessionManager(cookies, persistent, services.NewMemoryStore(), cfg.SecureCookies)

	app := &handlers.App{
		API:      api,
		Catalogs: services.NewCatalogCache(api, cfg.CatalogTTL),
		Latest:   services.NewLatest(),
		Debounce: cfg.SearchDebounce,
		Log:      log,
	}
	auth := &middleware.Auth{Sessions: sm, API: api, Log: log}

	protect := csrf.Protect(keys.CSRF,
		csrf.Secure(cfg.SecureCookies),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithField("reason", csrf.FailureReason(r)).Warn("csrf rejected")
			http.Error(w, "Formulario expirado. Recarga la página.", http.StatusForbidden)
		})),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           protect(app.Routes(auth)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	log.WithFields(logrus.Fields{
		"api":  cfg.APIURL,
		"addr": srv.Addr,
		"env":  cfg.Environment,
	}).Info("RIDS dashboard listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("serve")
	}
}
