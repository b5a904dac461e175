package api

import (
	"context"
	"log"
	"strings"

	"routeopt/internal/auth"
	"routeopt/internal/config"
	"routeopt/internal/solver"
	"routeopt/internal/store"
	"routeopt/internal/webhooks"
)

type Server struct {
	Cfg    *config.Config
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
}

// NewServer wires the server's collaborators. Without a DATABASE_URL the
// in-memory store is used; without a REDIS_URL the in-memory broker is used.
func NewServer(cfg *config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			log.Printf("schema ensure failed: %v", err)
		}
		s = pg
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Cfg:    cfg,
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Auth:   auth.NewVerifier(cfg.Auth.Mode, cfg.Auth.HMACSecret),
		Broker: broker,
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Cfg.Webhooks.MaxAttempts)
}

func (s *Server) solverOptions() solver.Options {
	return solver.Options{
		MaxJobs:       s.Cfg.Solver.MaxJobs,
		MaxVehicles:   s.Cfg.Solver.MaxVehicles,
		MaxPartitions: s.Cfg.Solver.MaxPartitions,
		Workers:       s.Cfg.Solver.Workers,
	}
}
