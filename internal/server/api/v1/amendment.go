package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"amendtrail/internal/server/api/response"
	"amendtrail/internal/server/service"
	"amendtrail/internal/types"
	"amendtrail/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// recordAmendment handles saving a new amendment record
func (api *API) recordAmendment(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var record types.AmendmentRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		api.logger.Error("Invalid amendment data",
			zap.Error(err),
			zap.String("client_ip", c.ClientIP()))
		resp.BadRequest(fmt.Errorf("invalid amendment format: %v", err))
		return
	}

	if err := api.service.RecordAmendment(ctx, &record); err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled amendment save request",
				zap.String("entity_id", record.EntityID))
			return
		}

		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			resp.ValidationError(err)
			return
		}

		api.logger.Error("Failed to save amendment",
			zap.Error(err),
			zap.String("entity_id", record.EntityID))
		resp.InternalError(errors.New("failed to save amendment"))
		return
	}

	resp.Created(gin.H{"id": record.ID})
}

// getAmendments handles retrieving raw amendment records
func (api *API) getAmendments(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	query, ok := api.bindAmendmentQuery(c, resp)
	if !ok {
		return
	}

	records, err := api.service.GetAmendments(ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled amendments request")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			resp.Error(http.StatusGatewayTimeout, errors.New("request timeout"))
			return
		}

		api.logger.Error("Failed to get amendments", zap.Error(err))
		resp.InternalError(errors.New("failed to get amendments"))
		return
	}

	resp.Success(records)
}

// getDisplayList handles retrieving the rendered change history
func (api *API) getDisplayList(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	query, ok := api.bindAmendmentQuery(c, resp)
	if !ok {
		return
	}

	entries, err := api.service.GetDisplayList(ctx, query, c.Query("locale"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled display list request")
			return
		}

		api.logger.Error("Failed to build display list", zap.Error(err))
		resp.InternalError(errors.New("failed to build display list"))
		return
	}

	resp.Success(entries)
}

// getAmendment handles retrieving one amendment by ID
func (api *API) getAmendment(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	id := c.Param("id")
	if id == "" {
		resp.BadRequest(errors.New("amendment id is required"))
		return
	}

	record, err := api.service.GetAmendment(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled amendment request",
				zap.String("amendment_id", id))
			return
		}

		if errors.Is(err, types.ErrAmendmentNotFound) {
			resp.NotFound(errors.New("amendment not found"))
			return
		}

		api.logger.Error("Failed to get amendment",
			zap.Error(err),
			zap.String("amendment_id", id))
		resp.InternalError(errors.New("failed to get amendment"))
		return
	}

	resp.Success(record)
}

// getEntityAmendments handles retrieving the raw log for one entity
func (api *API) getEntityAmendments(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	entityID := c.Param("id")
	if entityID == "" {
		resp.BadRequest(errors.New("entity id is required"))
		return
	}

	limit := bindLimit(c)

	records, err := api.service.GetEntityAmendments(ctx, entityID, limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled entity amendments request",
				zap.String("entity_id", entityID))
			return
		}

		api.logger.Error("Failed to get entity amendments",
			zap.Error(err),
			zap.String("entity_id", entityID))
		resp.InternalError(errors.New("failed to get entity amendments"))
		return
	}

	resp.Success(records)
}

// getEntityDisplayList handles retrieving the rendered history for one entity
func (api *API) getEntityDisplayList(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	entityID := c.Param("id")
	if entityID == "" {
		resp.BadRequest(errors.New("entity id is required"))
		return
	}

	entries, err := api.service.GetEntityDisplayList(ctx, entityID, c.Query("locale"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled entity display request",
				zap.String("entity_id", entityID))
			return
		}

		api.logger.Error("Failed to build entity display list",
			zap.Error(err),
			zap.String("entity_id", entityID))
		resp.InternalError(errors.New("failed to build entity display list"))
		return
	}

	resp.Success(entries)
}

// searchAmendments handles full-text search over amendments
func (api *API) searchAmendments(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	query := c.Query("q")
	if query == "" {
		resp.BadRequest(errors.New("q is required"))
		return
	}

	records, err := api.service.SearchAmendments(ctx, query, bindLimit(c))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled search request")
			return
		}

		if errors.Is(err, types.ErrSearchDisabled) {
			resp.Error(http.StatusServiceUnavailable, errors.New("search is not configured"))
			return
		}

		api.logger.Error("Failed to search amendments",
			zap.Error(err),
			zap.String("query", query))
		resp.InternalError(errors.New("failed to search amendments"))
		return
	}

	resp.Success(records)
}

// bindAmendmentQuery parses the shared query parameters for range endpoints.
// It reports the error through resp and returns ok=false on failure.
func (api *API) bindAmendmentQuery(c *gin.Context, resp *response.Handler) (service.AmendmentQuery, bool) {
	var query struct {
		EntityIDs    []string `form:"entity_ids"`
		EntityType   string   `form:"entity_type"`
		StartTimeStr string   `form:"start_time" binding:"required"`
		EndTimeStr   string   `form:"end_time" binding:"required"`
		Limit        int      `form:"limit"`
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		api.logger.Error("Invalid query parameters",
			zap.Error(err),
			zap.String("client_ip", c.ClientIP()))
		resp.BadRequest(errors.New("start_time and end_time are required"))
		return service.AmendmentQuery{}, false
	}

	startTime, err := utils.ParseTime(query.StartTimeStr)
	if err != nil {
		resp.BadRequest(fmt.Errorf("invalid start_time format: %v", err))
		return service.AmendmentQuery{}, false
	}

	endTime, err := utils.ParseTime(query.EndTimeStr)
	if err != nil {
		resp.BadRequest(fmt.Errorf("invalid end_time format: %v", err))
		return service.AmendmentQuery{}, false
	}

	if endTime.Before(startTime) {
		resp.BadRequest(errors.New("end_time must be after start_time"))
		return service.AmendmentQuery{}, false
	}

	if query.Limit <= 0 {
		query.Limit = 1000
	} else if query.Limit > 10000 {
		query.Limit = 10000
	}

	return service.AmendmentQuery{
		EntityIDs:  query.EntityIDs,
		EntityType: types.EntityType(query.EntityType),
		StartTime:  startTime,
		EndTime:    endTime,
		Limit:      query.Limit,
	}, true
}

// bindLimit parses the optional limit query parameter
func bindLimit(c *gin.Context) int {
	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		return 0
	}
	if query.Limit < 0 {
		return 0
	}
	return query.Limit
}
