// Package http provides HTTP handlers for the transaction lifecycle and the EDI tooling endpoints.
package http

import (
	"context"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/edibox/internal/errors"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
)

// ActorHeader lets callers name themselves in the history log. The request id is used otherwise.
const ActorHeader = "X-Actor"

// requestContext returns the request context carrying the history actor.
func requestContext(c *gin.Context) context.Context {
	actor := strings.TrimSpace(c.GetHeader(ActorHeader))
	if actor == "" {
		actor = requestid.Get(c)
	}
	if actor == "" {
		return c.Request.Context()
	}
	return transactionDomain.WithActor(c.Request.Context(), actor)
}

// parseID reads the :id path parameter.
func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(apperrors.Problem{
			Field:   "id",
			Message: "must be a valid UUID",
		})
	}
	return id, nil
}
