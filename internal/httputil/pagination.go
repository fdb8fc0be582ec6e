package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/edibox/internal/errors"
)

// Pagination defaults shared by every listing endpoint.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ParsePagination parses the offset and limit query parameters. Offset defaults to 0
// and limit to DefaultLimit; limit cannot exceed MaxLimit. Invalid values are reported
// as a validation error.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, apperrors.NewValidationError(apperrors.Problem{
			Field:   "offset",
			Message: "must be a non-negative integer",
		})
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < 1 || limit > MaxLimit {
		return 0, 0, apperrors.NewValidationError(apperrors.Problem{
			Field:   "limit",
			Message: "must be between 1 and 100",
		})
	}

	return offset, limit, nil
}
