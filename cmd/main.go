package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-item-tracker/docs"
	"github.com/sbilibin2017/gw-item-tracker/internal/handlers"
	"github.com/sbilibin2017/gw-item-tracker/internal/hasher"
	"github.com/sbilibin2017/gw-item-tracker/internal/health"
	"github.com/sbilibin2017/gw-item-tracker/internal/jwt"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/middlewares"
	"github.com/sbilibin2017/gw-item-tracker/internal/repositories"
	"github.com/sbilibin2017/gw-item-tracker/internal/services"
	"github.com/sbilibin2017/gw-item-tracker/internal/sessions"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config holds every setting read from the environment.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string
	GRPCPort string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	SessionSecretKey    string
	SessionExp          time.Duration
	SessionCookieSecure bool

	JWTSecretKey string
	JWTExp       time.Duration

	HasherWorkers int

	KafkaBrokers []string
	KafkaTopic   string
}

// @title gw-item-tracker API
// @version 1.0.0
// @description Multi-tenant item tracker with per-user items
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Version: %s\nCommit: %s\nBuild: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file, if present, and
// returns the application configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) int {
		if err != nil {
			return 0
		}
		var n int
		if n, err = strconv.Atoi(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return n
	}
	getBool := func(key, defaultValue string) bool {
		if err != nil {
			return false
		}
		var b bool
		if b, err = strconv.ParseBool(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return b
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.GRPCPort = getEnv("GRPC_PORT", "50051")

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGPort = getInt("POSTGRES_PORT", "5432")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	cfg.PGMaxOpenConns = getInt("POSTGRES_MAX_OPEN_CONNS", "16")
	cfg.PGMaxIdleConns = getInt("POSTGRES_MAX_IDLE_CONNS", "8")

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPort = getInt("REDIS_PORT", "6379")
	cfg.RedisDB = getInt("REDIS_DB", "0")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisPoolSize = getInt("REDIS_POOL_SIZE", "10")
	cfg.RedisMinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", "2")

	// Session config
	cfg.SessionSecretKey = getEnv("SESSION_SECRET_KEY", "my_session_secret_key")
	cfg.SessionExp = time.Duration(getInt("SESSION_EXP_SECOND", "86400")) * time.Second
	cfg.SessionCookieSecure = getBool("SESSION_COOKIE_SECURE", "false")

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	cfg.JWTExp = time.Duration(getInt("JWT_EXP_SECOND", "3600")) * time.Second

	cfg.HasherWorkers = getInt("HASHER_WORKERS", "4")

	// Kafka config, publishing is disabled without brokers
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "item-events")

	return cfg, err
}

// app groups the services the router is built from.
type app struct {
	auth     *services.AuthService
	identity *services.IdentityService
	items    *services.ItemService
	tokens   *jwt.JWT
	sessions *sessions.Manager
	renderer *handlers.Renderer
}

// newRouter mounts the web pages, the JSON API and the swagger UI.
func newRouter(a app, swaggerURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)
	r.Use(a.sessions.Middleware)

	// Web pages
	r.Get("/", handlers.NewIndexHandler())
	r.Get("/logout", handlers.NewLogoutHandler(a.sessions))

	login := handlers.NewLoginPageHandler(a.auth, a.sessions, a.renderer)
	register := handlers.NewRegisterPageHandler(a.auth, a.sessions, a.renderer)
	r.Get("/login", login)
	r.Post("/login", login)
	r.Get("/register", register)
	r.Post("/register", register)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.SessionAuth(a.identity, a.sessions))

		newItem := handlers.NewCreateItemPageHandler(a.items, a.sessions, a.renderer)
		editItem := handlers.NewEditItemPageHandler(a.items, a.items, a.sessions, a.renderer)

		r.Get("/dashboard", handlers.NewDashboardHandler(a.items, a.renderer))
		r.Get("/items/new", newItem)
		r.Post("/items/new", newItem)
		r.Get("/items/{id}/edit", editItem)
		r.Post("/items/{id}/edit", editItem)
		r.Post("/items/{id}/delete", handlers.NewDeleteItemPageHandler(a.items, a.sessions))
	})

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", handlers.NewRegisterHandler(a.auth))
		r.Post("/auth/login", handlers.NewLoginHandler(a.auth))

		r.Group(func(r chi.Router) {
			r.Use(middlewares.BearerAuth(a.tokens, a.identity))

			r.Get("/items", handlers.NewListItemsHandler(a.items))
			r.Post("/items", handlers.NewCreateItemHandler(a.items))
			r.Get("/items/{id}", handlers.NewGetItemHandler(a.items))
			r.Put("/items/{id}", handlers.NewUpdateItemHandler(a.items))
			r.Delete("/items/{id}", handlers.NewDeleteItemHandler(a.items))
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	return r
}

// run initializes the logger, PostgreSQL, Redis, Kafka and both servers,
// then blocks until a shutdown signal arrives.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infow("Logger initialized", "level", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	logger.Log.Infow("Connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := repositories.Migrate(ctx, db.DB); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close()

	// Kafka writer for item events
	var kafkaWriter services.KafkaWriter
	if len(cfg.KafkaBrokers) > 0 {
		w := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
		defer w.Close()
		kafkaWriter = w
		logger.Log.Infow("Kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Initialize repositories
	docStore := repositories.NewDocumentStore(db)
	userRepo := repositories.NewUserRepository(docStore)
	itemRepo := repositories.NewItemRepository(docStore)
	sessionRepo := repositories.NewSessionRepository(rdb, cfg.SessionExp)

	// Initialize services
	pwHasher := hasher.New(cfg.HasherWorkers)
	defer pwHasher.Close()
	tokens := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey), jwt.WithExpiration(cfg.JWTExp))

	sessionManager := sessions.NewManager(sessionRepo, cfg.SessionSecretKey,
		sessions.WithMaxAge(cfg.SessionExp),
		sessions.WithSecure(cfg.SessionCookieSecure),
	)
	renderer, err := handlers.NewRenderer(sessionManager)
	if err != nil {
		return err
	}

	a := app{
		auth:     services.NewAuthService(userRepo, pwHasher, tokens),
		identity: services.NewIdentityService(userRepo, tokens),
		items:    services.NewItemService(itemRepo, kafkaWriter),
		tokens:   tokens,
		sessions: sessionManager,
		renderer: renderer,
	}

	docs.SwaggerInfo.Host = net.JoinHostPort(cfg.AppHost, cfg.AppPort)
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.AppHost, cfg.AppPort),
		Handler:           newRouter(a, fmt.Sprintf("http://%s/swagger/doc.json", docs.SwaggerInfo.Host)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health service
	checker := health.NewChecker(15*time.Second, map[string]health.CheckFunc{
		"postgres": docStore.Ping,
		"redis":    sessionRepo.Ping,
	})
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, checker.Server())

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.AppHost, cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}

	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go checker.Run(ctxShutdown)

	return serve(ctxShutdown, srv, grpcServer, lis)
}

// serve runs both servers until ctx is done or either one fails. Both
// servers are stopped before it returns.
func serve(ctx context.Context, srv *http.Server, grpcServer *grpc.Server, lis net.Listener) error {
	errChan := make(chan error, 2)

	go func() {
		logger.Log.Infow("gRPC health server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()

	go func() {
		logger.Log.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received, stopping servers...")
	case serveErr = <-errChan:
		logger.Log.Errorw("Server failed, stopping servers...", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}
	if serveErr != nil {
		grpcServer.Stop()
		return serveErr
	}
	grpcServer.GracefulStop()

	logger.Log.Info("Servers stopped gracefully")
	return nil
}
