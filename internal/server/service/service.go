// Package service composes storage, the change pipeline and the optional
// backends (cache, events, search, notifications) behind one API surface.
package service

import (
	"fmt"
	"time"

	"amendtrail/internal/changelog"
	"amendtrail/internal/server/cache"
	"amendtrail/internal/server/config"
	"amendtrail/internal/server/events"
	"amendtrail/internal/server/notify"
	"amendtrail/internal/server/search"
	"amendtrail/internal/server/storage"

	"go.uber.org/zap"
)

// Service represents the server service
type Service struct {
	config    *config.Config
	storage   storage.Storage
	cache     *cache.Cache
	publisher *events.Publisher
	index     *search.Index
	notifier  *notify.Manager
	logger    *zap.Logger

	excluded  map[string]struct{}
	startTime time.Time
}

// NewService creates new service instance
func NewService(cfg *config.Config, store storage.Storage, logger *zap.Logger) (*Service, error) {
	notifier, err := notify.NewManager(&cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	svc := &Service{
		config:    cfg,
		storage:   store,
		notifier:  notifier,
		logger:    logger,
		excluded:  excludedFields(cfg.Display.ExcludedFields),
		startTime: time.Now(),
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(&cfg.Cache, logger)
		if err != nil {
			logger.Warn("Cache unavailable, continuing without it", zap.Error(err))
		} else {
			svc.cache = c
		}
	}

	if cfg.Events.Enabled {
		p, err := events.NewPublisher(&cfg.Events, logger)
		if err != nil {
			logger.Warn("Event publisher unavailable, continuing without it", zap.Error(err))
		} else {
			svc.publisher = p
		}
	}

	if cfg.Search.Enabled {
		idx, err := search.New(&cfg.Search, logger)
		if err != nil {
			logger.Warn("Search index unavailable, continuing without it", zap.Error(err))
		} else {
			svc.index = idx
		}
	}

	return svc, nil
}

// excludedFields builds the filter exclusion set from configuration.
// An empty list keeps the built-in bookkeeping exclusions.
func excludedFields(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// displayOptions returns the pipeline options for one request
func (s *Service) displayOptions(locale string) changelog.Options {
	if locale == "" {
		locale = s.config.Display.Locale
	}
	return changelog.Options{
		ExcludedFields: s.excluded,
		Locale:         locale,
	}
}

// Stop stops the service and cleanup resources
func (s *Service) Stop() error {
	if err := s.notifier.Stop(); err != nil {
		s.logger.Error("Failed to stop notifier", zap.Error(err))
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	return s.storage.Close()
}
