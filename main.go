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

	"menu-admin/api"
	"menu-admin/bot"
	"menu-admin/config"
	"menu-admin/db"
	"menu-admin/logger"
	"menu-admin/migrations"
	"menu-admin/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		err = runServe(ctx, cfg)
	case "migrate":
		err = runMigrate(ctx, cfg)
	case "seed":
		err = runSeed(ctx, cfg)
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or seed)", cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cmd+":", err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()
	return applyMigrations(ctx)
}

func runSeed(ctx context.Context, cfg *config.Config) error {
	if err := db.Init(ctx, cfg.DB); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()
	n, err := services.Seed(ctx, services.NewPostgresStore(db.Pool))
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d menu items.\n", n)
	return nil
}

func applyMigrations(ctx context.Context) error {
	log := logger.Get()
	return migrations.Apply(ctx, db.Pool, func(name string) {
		log.Info("migration applied", "file", name)
	})
}

// openStore returns the configured store. The memory store is seeded so a
// fresh process has something to show.
func openStore(ctx context.Context, cfg *config.Config) (services.MenuStore, func(), error) {
	if cfg.DB.Store == "memory" {
		store := services.NewMemoryStore()
		if _, err := services.Seed(ctx, store); err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	if err := db.Init(ctx, cfg.DB); err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	// Set AUTO_MIGRATE=1 (or "true") to apply the schema on startup.
	if config.AutoMigrate() {
		if err := applyMigrations(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return services.NewPostgresStore(db.Pool), db.Close, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var notifier services.Notifier
	if cfg.Telegram.MessageToken != "" {
		n, err := bot.NewNotifier(cfg.Telegram.MessageToken, cfg.Telegram.AdminChatID)
		if err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
		notifier = n
	}
	menu := services.NewMenuService(store, notifier)

	if cfg.Telegram.AdderToken != "" {
		menuBot, err := bot.NewMenuBot(cfg, menu)
		if err != nil {
			return fmt.Errorf("menu bot: %w", err)
		}
		go menuBot.Start(ctx)
		log.Info("menu bot started")
	}

	auth, err := api.NewAuthenticator(cfg.Auth, cfg.HTTP.Env != "development")
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(cfg.HTTP, menu, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "store", cfg.DB.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
