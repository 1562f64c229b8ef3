package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	applog := lgr.GetLogger("app")

	cfg := config.MustLoad()

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg.Database.DSN)
	if err != nil {
		applog.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := accounts.NewRepositoryManager(db)

	provider := accounts.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("identity"))

	auth := accounts.NewAuthenticator(provider, cfg).
		WithLogger(lgr.GetLogger("auth"))

	auther, err := accounts.NewHTTPAuthenticator(auth, cfg)
	if err != nil {
		applog.Error("http authenticator setup failed", "error", err)
		os.Exit(1)
	}
	auther.Logger = lgr.GetLogger("http-auth")

	srv := newServer(cfg)

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("home", router.ViewContext{
			"title": cfg.AppName,
		})
	})

	authController := accounts.RegisterAuthRoutes(
		srv.Router(),
		accounts.WithAuthLogger(lgr.GetLogger("auth-controller")),
		accounts.WithAuthRepository(repo),
		accounts.WithHTTPAuth(auther),
		accounts.WithAuth(auth),
		accounts.WithAuthConfig(cfg),
	)

	protected := auther.ProtectedRoute(cfg, auther.MakeClientRouteAuthErrorHandler(false))

	srv.Router().Get(authController.Routes.Dashboard, authController.Dashboard, protected)

	accounts.RegisterProfileRoutes(
		srv.Router(),
		protected,
		accounts.WithProfileLogger(lgr.GetLogger("profile-controller")),
		accounts.WithProfileRepository(repo),
		accounts.WithProfileHTTPAuth(auther),
		accounts.WithProfileConfig(cfg),
	)

	go func() {
		if err := srv.Serve(cfg.Address()); err != nil {
			applog.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	applog.Info("accounts server listening", "address", cfg.Address())

	waitExitSignal()

	if err := srv.Shutdown(ctx); err != nil {
		applog.Error("server shutdown failed", "error", err)
	}
}

func newServer(cfg *config.Config) router.Server[*fiber.App] {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}

	engine := django.NewFileSystem(http.FS(views), ".html")
	engine.Reload(cfg.Debug)

	return router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:           cfg.AppName,
			UnescapePath:      true,
			EnablePrintRoutes: cfg.Debug,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// runMigrations applies the embedded SQL files in lexical order. The
// statements are idempotent so re-running on boot is safe.
func runMigrations(ctx context.Context, db *bun.DB) error {
	dir := "data/sql/migrations"

	entries, err := fs.ReadDir(accounts.GetMigrationsFS(), dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(accounts.GetMigrationsFS(), dir+"/"+name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}

	return nil
}

func waitExitSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
