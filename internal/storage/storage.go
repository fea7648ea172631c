// Package storage aggregates the infrastructure clients of the pipeline:
// MySQL for candidate and document rows, MinIO for the two blob buckets,
// RabbitMQ for upload events and Redis for the text dedup cache.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jeffersson-hub/apiTruthtalent/internal/config"
	"github.com/Jeffersson-hub/apiTruthtalent/internal/logger"
)

// Storage bundles all storage clients. Optional components (RabbitMQ,
// Redis) stay nil when unconfigured; the pipeline degrades accordingly.
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage initializes every configured component. MinIO and MySQL are
// required; a failure there is fatal. RabbitMQ and Redis initialize only
// when configured and log a warning on failure.
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &Storage{}
	var initErrors []string

	var err error
	s.MinIO, err = NewMinIO(&cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("initializing minio: %w", err)
	}

	s.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("initializing mysql: %w", err)
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("initializing rabbitmq failed, queue worker unavailable")
			initErrors = append(initErrors, fmt.Sprintf("rabbitmq: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("initializing redis failed, text dedup disabled")
			initErrors = append(initErrors, fmt.Sprintf("redis: %v", err))
		}
	}

	if len(initErrors) > 0 {
		logger.Warn().Str("components", strings.Join(initErrors, "; ")).Msg("some storage components unavailable")
	}
	return s, nil
}

// Close shuts down every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Error().Err(err).Msg("closing rabbitmq failed")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Error().Err(err).Msg("closing mysql failed")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Error().Err(err).Msg("closing redis failed")
		}
	}
	// MinIO's client needs no explicit close.
}
