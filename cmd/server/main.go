package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/jmolina/divvy/internal/auth"
	"github.com/jmolina/divvy/internal/middleware"
	"github.com/jmolina/divvy/internal/service"
	"github.com/jmolina/divvy/internal/storage/sqlite"
	"github.com/jmolina/divvy/pkg/logging"
)

const devSecret = "dev-secret-change-me"

type config struct {
	Addr      string        `env:"ADDR" envDefault:":8080"`
	DBPath    string        `env:"DB_PATH" envDefault:"./data/divvy.db"`
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

func main() {
	logging.Setup()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("Failed to parse configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == devSecret {
		slog.Warn("JWT_SECRET not set, using the development secret")
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager).Routes(mux)

	api := http.NewServeMux()
	service.NewLedgerService(store).Routes(api)
	mux.Handle("/api/v1/", middleware.RequireAuth(jwtManager)(api))

	handler := middleware.Metrics(middleware.Logging(corsMiddleware(mux)))

	// HTTP/2 without TLS, so clients can multiplex locally
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
