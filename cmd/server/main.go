package main

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"budgetbook/internal/auth"
	"budgetbook/internal/auth/google"
	"budgetbook/internal/config"
	"budgetbook/internal/expense"
	"budgetbook/internal/handlers"
	"budgetbook/internal/logger"
	"budgetbook/internal/session"
	"budgetbook/internal/storage"
	"budgetbook/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer db.Close()
	log.Info("database ready", slog.String("driver", cfg.Database.Driver))

	authSvc := auth.NewService(db, log, cfg.Google.RefreshProfile)
	if err := bootstrapAdmin(ctx, db, authSvc, cfg.Admin, log); err != nil {
		return err
	}

	if cfg.Session.Backend == session.BackendDB {
		n, err := db.CleanExpiredSessions(ctx)
		if err != nil {
			return errors.Wrap(err, "clean expired sessions")
		}
		log.Info("expired sessions removed", slog.Int64("count", n))
	}

	sessions, err := session.New(cfg.Session.Backend, []byte(cfg.SecretKey), db, session.Options{
		Secure:   cfg.Session.SecureCookie,
		Duration: cfg.Session.Duration,
	})
	if err != nil {
		return err
	}

	deps := handlers.Deps{
		Auth:         authSvc,
		Expenses:     expense.NewService(db, log),
		Sessions:     sessions,
		Logger:       log,
		Templates:    web.TemplatesFS,
		SecureCookie: cfg.Session.SecureCookie,
	}
	if cfg.OAuthEnabled() {
		deps.OAuth = google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
	} else {
		log.Warn("google sign-in disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set")
	}

	h, err := handlers.NewHandlers(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(h, web.StaticFS),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type userCounter interface {
	UserCount(ctx context.Context) (int, error)
}

// bootstrapAdmin creates the configured admin account when the database has no users.
func bootstrapAdmin(ctx context.Context, db userCounter, svc *auth.Service, admin config.Admin, log *slog.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}
	n, err := db.UserCount(ctx)
	if err != nil {
		return errors.Wrap(err, "count users")
	}
	if n > 0 {
		return nil
	}
	if _, err := svc.Register(ctx, "Admin", admin.Email, admin.Password); err != nil {
		return errors.Wrap(err, "create admin user")
	}
	log.Info("admin user created", slog.String("email", admin.Email))
	return nil
}

func setupRouter(h *handlers.Handlers, static fs.FS) *mux.Router {
	r := mux.NewRouter()
	r.Use(handlers.SecurityHeaders, h.Instrument)

	h.Routes(r)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(static)))

	return r
}
