// Command fhirengine-server is the CLI entry point: serve starts the HTTP
// boundary over the core engine, reset (re)generates the schema. The
// tenant subcommand of earlier EHR servers this project descends from is
// dropped along with the schema-per-tenant mechanism it managed — this
// engine isolates tenants with a per-project column instead.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/ehr/fhirengine/internal/config"
	"github.com/ehr/fhirengine/internal/fhir/bundle"
	"github.com/ehr/fhirengine/internal/fhir/httpapi"
	"github.com/ehr/fhirengine/internal/fhir/meta"
	"github.com/ehr/fhirengine/internal/fhir/repo"
	"github.com/ehr/fhirengine/internal/fhir/schema"
	"github.com/ehr/fhirengine/internal/fhir/search"
	"github.com/ehr/fhirengine/internal/fhir/validate"
	"github.com/ehr/fhirengine/internal/platform/db"
	"github.com/ehr/fhirengine/internal/platform/logging"
	"github.com/ehr/fhirengine/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhirengine-server",
		Short: "FHIR R4 persistence and query engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(resetCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FHIR HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Synthesize and (re)apply the schema for the registered resource types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset()
		},
	}
}

// buildRegistries seeds the two metadata registries (component A). A real
// deployment indexes the full FHIR R4 StructureDefinition and
// SearchParameter bundles plus a platform overlay here; this engine ships
// the hand-maintained snapshot of internal/fhir/meta/seed.go, which is
// "enough of a snapshot" to drive schema synthesis, indexing, and search
// end to end for the resource types it covers (§4.1).
func buildRegistries() (*meta.ProfileRegistry, *meta.SearchParameterRegistry) {
	profiles := meta.NewProfileRegistry()
	meta.RegisterBaseProfiles(profiles)
	params := meta.NewSearchParameterRegistry()
	meta.RegisterBaseSearchParameters(params)
	return profiles, params
}

func runReset() error {
	logger := logging.New("production")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns,
		IdleTimeout: cfg.DBIdleTimeout, ConnTimeout: cfg.DBConnTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	profiles, params := buildRegistries()
	tableSets := schema.BuildAll(profiles, params)

	sets := make([]schema.ResourceTableSet, 0, len(tableSets))
	for _, set := range tableSets {
		sets = append(sets, set)
	}

	result, err := schema.ApplyAll(ctx, pool, sets)
	if err != nil {
		logger.Error().Err(err).Int("applied", result.Applied).Int("skipped", result.Skipped).Msg("schema reset failed")
		return err
	}
	logger.Info().Int("applied", result.Applied).Int("skipped", result.Skipped).Msg("schema reset complete")
	return nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(cfg.Env)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolConfig{
		MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns,
		IdleTimeout: cfg.DBIdleTimeout, ConnTimeout: cfg.DBConnTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	profiles, params := buildRegistries()
	tables := schema.BuildAll(profiles, params)

	compiler := search.NewCompiler(tables)

	var cache *repo.Cache
	if cfg.CacheEnabled {
		cache = repo.NewCache(cfg.CacheMaxSize)
	} else {
		cache = repo.NewCache(0)
	}

	store := repo.NewStore(pool, tables, profiles, cache, compiler)
	bundleSearcher := &search.BundleSearcher{Compiler: compiler, Pool: pool, BaseURL: cfg.BaseURL}
	processor := bundle.NewProcessor(pool, store, bundleSearcher)
	validator := validate.NewStructuralValidator(profiles)

	handler := &httpapi.Handler{
		Store:     store,
		Compiler:  compiler,
		Processor: processor,
		Validator: validator,
		Profiles:  profiles,
		Params:    params,
		BaseURL:   cfg.BaseURL,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if cfg.AuthEnabled {
		e.Use(middleware.Auth(middleware.AuthConfig{
			Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "If-Match", "If-None-Exist", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Msg("starting server")
	return e.Start(addr)
}
