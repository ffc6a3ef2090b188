package handlers

import (
	"errors"
	"net/http"

	"example.com/supplychain/services/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the error body shape for every endpoint. Required is
// populated for validation failures so clients can tell "bad input" apart
// from "already exists".
type ErrorResponse struct {
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
	Required []string `json:"required,omitempty"`
}

// writeError maps domain errors onto the HTTP status contract:
// 400 validation, 404 not found, 409 uniqueness conflict, 503 transient
// external failure, 500 anything else (no internal detail leaked).
func writeError(c *gin.Context, log *logrus.Logger, err error) {
	switch {
	case service.IsValidation(err):
		ve := err.(*service.ValidationError)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:  ve.Message,
			Code:     "VALIDATION_ERROR",
			Required: ve.Fields,
		})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Shipment not found",
			Code:    "NOT_FOUND",
		})
	case service.IsConflict(err):
		ce := err.(*service.ConflictError)
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Duplicate " + ce.Field,
			Code:    "CONFLICT",
		})
	default:
		var transient *service.TransientExternalError
		if errors.As(err, &transient) {
			log.WithError(err).Warn("Transient external failure")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Upstream temporarily unavailable",
				Code:    "SERVICE_UNAVAILABLE",
			})
			return
		}
		log.WithError(err).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
			Code:    "INTERNAL_ERROR",
		})
	}
}
