package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/practice-engine/internal/auth"
	"github.com/gokatarajesh/practice-engine/internal/config"
	"github.com/gokatarajesh/practice-engine/internal/logging"
	"github.com/gokatarajesh/practice-engine/internal/practice"
	httperrors "github.com/gokatarajesh/practice-engine/pkg/http/errors"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// Deps carries what NewHTTPServer mounts. Nil handlers are skipped.
type Deps struct {
	Tokens     auth.TokenValidator
	Practice   *practice.HTTPHandlers
	PracticeWS http.HandlerFunc
	Pingers    []Pinger
}

// NewWSUpgrader only accepts upgrades from the configured CORS origins.
// Requests without an Origin header (non-browser clients) are allowed.
func NewWSUpgrader(cors config.CORS) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cors.AllowedOrigins, origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// NewHTTPServer wires health, metrics, the practice API and the practice WebSocket.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Deps) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		for _, ping := range deps.Pingers {
			if err := ping(r.Context()); err != nil {
				logger := logging.FromContext(r.Context())
				logger.Error().Err(err).Msg("dependency ping failed")
				httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "A backing service is unreachable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if deps.Practice != nil && deps.Tokens != nil {
		authn := auth.AuthMiddleware(deps.Tokens, logger)
		deps.Practice.Register(mux, func(h http.Handler) http.Handler {
			return authn(auth.RequireAuth(h))
		})
	}

	if deps.PracticeWS != nil {
		mux.HandleFunc("GET /ws/practice", deps.PracticeWS)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: recoverPanic(requestLogger(logger, cors(cfg.CORS, mux))),
	}
}

// PingPostgres and PingRedis adapt the clients to Pinger.
func PingPostgres(pool *pgxpool.Pool) Pinger {
	return pool.Ping
}

func PingRedis(client *redis.Client) Pinger {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
