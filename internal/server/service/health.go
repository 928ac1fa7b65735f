package service

import (
	"context"
	"time"

	"amendtrail/internal/version"
)

// HealthStatus represents the service health report
type HealthStatus struct {
	Healthy   bool           `json:"healthy"`
	Version   string         `json:"version"`
	Uptime    string         `json:"uptime"`
	Timestamp time.Time      `json:"timestamp"`
	Details   []HealthDetail `json:"details,omitempty"`
}

// HealthDetail represents a health detail
type HealthDetail struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck performs a health check against every configured backend
func (s *Service) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Healthy:   true,
		Version:   version.GetInfo().Version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	}

	if err := s.storage.Ping(ctx); err != nil {
		status.Healthy = false
		status.Details = append(status.Details, HealthDetail{
			Component: "storage",
			Status:    "unhealthy",
			Error:     err.Error(),
		})
	} else {
		status.Details = append(status.Details, HealthDetail{
			Component: "storage",
			Status:    "healthy",
		})
	}

	if s.notifier.IsEnabled() {
		if err := s.notifier.Health(ctx); err != nil {
			// Notification failures never make the service unhealthy
			status.Details = append(status.Details, HealthDetail{
				Component: "notify",
				Status:    "unhealthy",
				Error:     err.Error(),
			})
		} else {
			status.Details = append(status.Details, HealthDetail{
				Component: "notify",
				Status:    "healthy",
			})
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			// Cache failures degrade performance but not correctness
			status.Details = append(status.Details, HealthDetail{
				Component: "cache",
				Status:    "unhealthy",
				Error:     err.Error(),
			})
		} else {
			status.Details = append(status.Details, HealthDetail{
				Component: "cache",
				Status:    "healthy",
			})
		}
	}

	return status
}
