package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/gradebridge/internal/apperr"
	"github.com/lshigami/gradebridge/internal/dto"
)

// RespondError writes err as a dto.ErrorResponse with the status of its kind.
// Batch errors also list the message of every failed user.
func RespondError(ctx *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	resp := dto.ErrorResponse{Error: err.Error()}

	var batchErr *apperr.BatchError
	if errors.As(err, &batchErr) {
		resp.Failures = make(map[string]string, len(batchErr.Failures))
		for user, failure := range batchErr.Failures {
			resp.Failures[user] = failure.Error()
		}
		resp.Error = batchErr.Operation + " failed for some users"
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("kind", string(apperr.KindOf(err))).Int("status", status).Str("path", ctx.FullPath()).Msg("Request failed")

	ctx.AbortWithStatusJSON(status, resp)
}

// MalformedBody reports a request body that could not be bound.
func MalformedBody(ctx *gin.Context, err error) {
	RespondError(ctx, apperr.Wrap(apperr.KindMalformedBody, err, "invalid request body"))
}

// Health godoc
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
