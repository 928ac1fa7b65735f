package service

import (
	"context"
	"fmt"
	"time"

	"amendtrail/internal/changelog"
	"amendtrail/internal/server/cache"
	"amendtrail/internal/server/storage"
	"amendtrail/internal/types"
	"amendtrail/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AmendmentQuery represents amendment query parameters
type AmendmentQuery struct {
	EntityIDs  []string
	EntityType types.EntityType
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// RecordAmendment validates and persists a new amendment, then fans it out
// to the cache, event stream, search index and notifiers.
func (s *Service) RecordAmendment(ctx context.Context, record *types.AmendmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.AmendedAt.IsZero() {
		record.AmendedAt = time.Now().UTC()
	}
	record.CreatedAt = time.Now().UTC()

	if err := validator.New().Struct(record); err != nil {
		return fmt.Errorf("invalid amendment: %w", err)
	}

	if err := s.storage.SaveAmendment(ctx, record); err != nil {
		return fmt.Errorf("failed to save amendment: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateEntity(ctx, record.EntityID)
	}

	// Downstream fan-out is best-effort and never fails the write
	if s.publisher != nil {
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.publisher.PublishRecorded(pctx, record); err != nil {
				s.logger.Warn("Failed to publish amendment event",
					zap.String("amendment_id", record.ID),
					zap.Error(err))
			}
		}()
	}

	if s.index != nil {
		go func() {
			ictx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.index.IndexAmendment(ictx, record); err != nil {
				s.logger.Warn("Failed to index amendment",
					zap.String("amendment_id", record.ID),
					zap.Error(err))
			}
		}()
	}

	if s.notifier.IsEnabled() {
		opts := s.displayOptions("")
		changes := changelog.FilterRealChanges(record.Changes, opts.ExcludedFields)
		presenter := changelog.NewPresenter(opts.Locale)

		presented := make([]types.PresentedChange, 0, len(changes))
		for _, c := range changes {
			presented = append(presented, presenter.Present(c))
		}
		s.notifier.NotifyAmendment(record, presented)
	}

	return nil
}

// GetAmendment returns one amendment by ID
func (s *Service) GetAmendment(ctx context.Context, id string) (*types.AmendmentRecord, error) {
	return s.storage.GetAmendment(ctx, id)
}

// GetAmendments returns raw amendments matching the query
func (s *Service) GetAmendments(ctx context.Context, query AmendmentQuery) ([]*types.AmendmentRecord, error) {
	return s.storage.GetAmendments(ctx, &storage.AmendmentQuery{
		EntityIDs:  query.EntityIDs,
		EntityType: query.EntityType,
		StartTime:  query.StartTime,
		EndTime:    query.EndTime,
		Limit:      query.Limit,
	}, storage.QueryOptions{})
}

// GetDisplayList returns the display-ready history for amendments matching
// the query, rendered for the given locale.
func (s *Service) GetDisplayList(ctx context.Context, query AmendmentQuery, locale string) ([]types.DisplayEntry, error) {
	records, err := s.GetAmendments(ctx, query)
	if err != nil {
		return nil, err
	}
	return changelog.BuildDisplayList(records, s.displayOptions(locale)), nil
}

// GetEntityAmendments returns the raw amendment log for one entity
func (s *Service) GetEntityAmendments(ctx context.Context, entityID string, limit int) ([]*types.AmendmentRecord, error) {
	return s.storage.GetEntityAmendments(ctx, entityID, limit)
}

// GetEntityDisplayList returns the display-ready history for one entity.
// Results are cached per entity and locale when the cache is available.
func (s *Service) GetEntityDisplayList(ctx context.Context, entityID, locale string) ([]types.DisplayEntry, error) {
	var key string
	if s.cache != nil {
		key = cache.DisplayKey(entityID, locale)
		if entries, ok := s.cache.GetDisplayList(ctx, key); ok {
			return entries, nil
		}
	}

	records, err := s.storage.GetEntityAmendments(ctx, entityID, 0)
	if err != nil {
		return nil, err
	}

	entries := changelog.BuildDisplayList(records, s.displayOptions(locale))

	if s.cache != nil {
		s.cache.SetDisplayList(ctx, key, entries)
	}
	return entries, nil
}

// SearchAmendments runs a full-text search over indexed amendments
func (s *Service) SearchAmendments(ctx context.Context, query string, limit int) ([]*types.AmendmentRecord, error) {
	if s.index == nil {
		return nil, types.ErrSearchDisabled
	}

	results, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	records := make([]*types.AmendmentRecord, 0, len(results))
	for _, r := range results {
		records = append(records, r.Record)
	}
	return records, nil
}
