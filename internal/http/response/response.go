package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cch"
	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cgtmodel"
	errs "github.com/cgtbrain/cgt-brain-backend/internal/pkg/errors"
)

// Every JSON body carries a top-level success flag. Payload keys sit
// beside it, so clients never unwrap a nested data object.
func OK(c *gin.Context, payload gin.H) {
	JSON(c, http.StatusOK, payload)
}

func Created(c *gin.Context, payload gin.H) {
	JSON(c, http.StatusCreated, payload)
}

func JSON(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// Error maps an error to its HTTP status and writes the failure
// envelope. Unrecognized errors become a 500.
func Error(c *gin.Context, err error) {
	Fail(c, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, cch.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	var cchErr *cch.UpstreamError
	if errors.As(err, &cchErr) {
		return http.StatusBadGateway
	}
	var modelErr *cgtmodel.UpstreamError
	if errors.As(err, &modelErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
