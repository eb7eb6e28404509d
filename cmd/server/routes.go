package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/typerace/internal/config"
	"github.com/jason-s-yu/typerace/internal/handlers"
	"github.com/jason-s-yu/typerace/internal/middleware"
	"github.com/jason-s-yu/typerace/internal/race"
	"github.com/sirupsen/logrus"
)

// routes mounts the websocket gateway and the read-only room API.
// ctx bounds every websocket connection's lifetime.
func routes(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, hub *handlers.Hub, registry *race.Registry, gateway *handlers.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handlers.HealthHandler(registry))

	r.Group(func(r chi.Router) {
		r.Use(middleware.LogMiddleware(logger))

		r.Get("/ws", handlers.RaceWSHandler(ctx, logger, hub, gateway, handlers.WSOptions{
			OriginPatterns: cfg.AllowedOrigins,
			SendBuffer:     cfg.WSSendBuffer,
			MsgRate:        cfg.WSMsgRate,
			MsgBurst:       cfg.WSMsgBurst,
		}))

		r.Route("/rooms", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: corsOrigins(cfg.AllowedOrigins),
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
			r.Get("/", handlers.ListRoomsHandler(registry))
			r.Get("/{roomId}", handlers.GetRoomHandler(registry))
		})
	})
	return r
}

// corsOrigins turns websocket host patterns ("example.com", "*.example.org")
// into CORS origins for both schemes.
func corsOrigins(hosts []string) []string {
	var out []string
	for _, h := range hosts {
		if h == "*" {
			return []string{"*"}
		}
		if strings.Contains(h, "://") {
			out = append(out, h)
			continue
		}
		out = append(out, "https://"+h, "http://"+h)
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
