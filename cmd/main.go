package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/auth"
	"YcrudAPI/internal/config"
	"YcrudAPI/internal/crud"
	"YcrudAPI/internal/db"
	"YcrudAPI/internal/handler"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/query"
	"YcrudAPI/internal/resolver"
	"YcrudAPI/internal/router"
	"YcrudAPI/internal/store"
)

func main() {
	debugFlag := flag.Bool("d", false, "enable debug logging")
	migrateFlag := flag.Bool("migrate", false, "apply migrations from MIGRATIONS_DIR before serving")
	flag.Parse()

	cfg := config.LoadConfig()
	if err := logger.Init("."); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	logger.SetDebug(*debugFlag)
	ctx := context.Background()

	if *migrateFlag {
		if cfg.MigrationsDir == "" {
			fatal("migrate_failed", fmt.Errorf("MIGRATIONS_DIR is not set"))
		}
		if err := db.Migrate(cfg.DB.Driver, cfg.DB.DSN, cfg.MigrationsDir); err != nil {
			fatal("migrate_failed", err)
		}
	}

	conn, err := db.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		fatal("db_init_failed", err)
	}
	defer conn.Close()
	dialect, err := store.DialectFor(cfg.DB.Driver)
	if err != nil {
		fatal("db_init_failed", err)
	}

	// Registry, then artifacts, then bindings; any failure aborts boot.
	registry, err := model.InitRegistry(cfg.ModelsDir)
	if err != nil {
		fatal("registry_init_failed", err)
	}
	logger.Info("models_initialized", map[string]any{"entities": len(registry.Entities())})

	catalog := artifact.NewCatalog()
	if err := artifact.RegisterDeclared(catalog, registry); err != nil {
		fatal("artifacts_init_failed", err)
	}
	res := resolver.New(registry, catalog)
	if err := res.Warm(cfg.APIVersions); err != nil {
		fatal("resolver_init_failed", err)
	}

	storeOpts := []store.Option{}
	rdb, err := db.OpenRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		logger.Warn("count_cache_disabled", map[string]any{"error": err.Error()})
	} else if rdb != nil {
		defer rdb.Close()
		counts := store.NewCountCache(rdb, cfg.Redis.CountTTL)
		// counts cached by a previous process may predate its writes
		if err := counts.Flush(ctx, ""); err != nil {
			logger.Warn("count_cache_flush_failed", map[string]any{"error": err.Error()})
		}
		storeOpts = append(storeOpts, store.WithCountCache(counts))
		logger.Info("count_cache_enabled", map[string]any{"addr": cfg.Redis.Addr})
	}

	var validator *auth.JWTValidator
	if cfg.Auth.Enabled {
		validator, err = auth.NewJWTValidator(cfg.Auth.JWT)
		if err != nil {
			fatal("auth_init_failed", err)
		}
		logger.Info("auth_enabled", map[string]any{"type": cfg.Auth.JWT.ValidationType})
	}

	svc := crud.NewService(
		registry,
		res,
		query.NewCompiler(cfg.Query.DefaultLimit, cfg.Query.MaxLimit),
		store.New(conn, dialect, storeOpts...),
	)
	routes := router.InitRoutes(handler.New(registry, svc, cfg.Auth.TenantClaim), cfg, validator)

	logger.Info("server_start", map[string]any{"port": cfg.Port})
	log.Printf("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, routes); err != nil {
		fatal("server_error", err)
	}
}

func fatal(event string, err error) {
	logger.Error(event, map[string]any{"error": err.Error()})
	fmt.Fprintf(os.Stderr, "%s: %v\n", event, err)
	os.Exit(1)
}
