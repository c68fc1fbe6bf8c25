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

	"github.com/ariebrainware/cml-tracker/config"
	"github.com/ariebrainware/cml-tracker/endpoint"
	"github.com/ariebrainware/cml-tracker/middleware"
	"github.com/ariebrainware/cml-tracker/model"
	"github.com/ariebrainware/cml-tracker/session"
	"github.com/ariebrainware/cml-tracker/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cml-tracker",
		Short: "CML patient tracking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(resetRateLimitCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed the TKI medication catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dbs, err := bootstrap()
			if err != nil {
				return err
			}
			if err := migrate(dbs.Service); err != nil {
				return err
			}
			fmt.Println("Migration completed.")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or update the administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" {
				return errors.New("--username is required")
			}
			hash, err := util.HashNewPassword(password)
			if err != nil {
				return err
			}
			_, dbs, err := bootstrap()
			if err != nil {
				return err
			}
			if err := model.UpsertAdmin(dbs.Service, username, hash); err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			fmt.Printf("Admin %q is ready.\n", username)
			return nil
		},
	}
	cmd.Flags().String("username", "admin", "Admin username")
	cmd.Flags().String("password", "", "Admin password (min 6 characters)")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <plain>",
		Short: "Print a bcrypt hash for manual provisioning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := util.HashNewPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func resetRateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-rate-limit",
		Short: "Clear the redis rate limit counter of a client on an endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ip, _ := cmd.Flags().GetString("ip")
			path, _ := cmd.Flags().GetString("endpoint")
			if ip == "" {
				return errors.New("--ip is required")
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rdb, err := config.ConnectRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if rdb == nil {
				return errors.New("REDIS_ADDR is not configured; the in-process limiter resets on restart")
			}
			defer rdb.Close()
			if err := middleware.ResetRateLimit(cmd.Context(), rdb, ip, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rate limit cleared for %s on %s.\n", ip, path)
			return nil
		},
	}
	cmd.Flags().String("ip", "", "Client IP address")
	cmd.Flags().String("endpoint", "/api/patient/login", "Request path of the limited endpoint")
	return cmd
}

// bootstrap loads configuration, sets up logging and opens both database tiers.
func bootstrap() (*config.Config, config.Databases, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, config.Databases{}, fmt.Errorf("load config: %w", err)
	}
	util.InitLogger(cfg.AppEnv, cfg.LogLevel)

	dbs, err := config.ConnectDatabases(cfg)
	if err != nil {
		return nil, config.Databases{}, err
	}
	return cfg, dbs, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := model.SeedTKIMedications(db); err != nil {
		return fmt.Errorf("seed tki medications: %w", err)
	}
	return nil
}

// newSessionRepository picks the session backend named in the configuration.
func newSessionRepository(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (session.Repository, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryRepository(), nil
	case config.SessionBackendRedis:
		if rdb == nil {
			return nil, errors.New("SESSION_BACKEND=redis requires REDIS_ADDR")
		}
		return session.NewRedisRepository(rdb), nil
	case config.SessionBackendCookie:
		return session.NewCookieRepository(cfg.SessionSecret), nil
	default:
		return session.NewDatabaseRepository(db), nil
	}
}

// newRouter assembles middleware and routes.
func newRouter(cfg *config.Config, dbs config.Databases, sessions *session.Manager, rdb *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(*util.Logger()))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.LocaleRedirect())
	r.Use(middleware.LocaleNegotiation(cfg.DefaultLocale))
	r.Use(middleware.DatabaseMiddleware(dbs.Public, dbs.Service))
	r.Use(middleware.SessionMiddleware(sessions, cfg.CookieSecure))
	r.Use(middleware.EndpointCallLogger())

	limiterCfg := middleware.RateLimitConfig{Limit: cfg.RateLimit, Window: cfg.RateWindow}
	if rdb != nil {
		limiterCfg.Redis = rdb
	}
	endpoint.RegisterRoutes(r, endpoint.RouteConfig{
		AppName:           cfg.AppName,
		Port:              cfg.AppPort,
		CredentialLimiter: middleware.RateLimiter(limiterCfg),
	})
	return r
}

func runServer() error {
	cfg, dbs, err := bootstrap()
	if err != nil {
		return err
	}
	logger := util.Logger()
	gin.SetMode(cfg.GinMode)

	if cfg.IsTest() {
		// The in-memory test database starts empty.
		if err := migrate(dbs.Service); err != nil {
			return err
		}
	}

	ctx := context.Background()
	rdb, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to in-process state")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		logger.Info().Err(err).Msg("geoip disabled")
	}
	defer util.CloseGeoIP()
	util.SetSecurityLoggerDB(dbs.Service)

	repo, err := newSessionRepository(cfg, dbs.Service, rdb)
	if err != nil {
		return err
	}
	sessions := session.NewManager(repo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           newRouter(cfg, dbs, sessions, rdb),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("session_backend", cfg.SessionBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
