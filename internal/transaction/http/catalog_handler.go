package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/edibox/internal/httputil"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/http/dto"
)

// AllFolderStatsHandler returns the stats of every stage in lifecycle order.
// GET /v1/folders - Returns 200 OK.
func (h *TransactionHandler) AllFolderStatsHandler(c *gin.Context) {
	stats, err := h.lifecycle.AllFolderStats(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.FolderStatsListResponse{Data: stats})
}

// FolderStatsHandler returns the stats of one stage.
// GET /v1/folders/:stage/stats - Returns 200 OK.
func (h *TransactionHandler) FolderStatsHandler(c *gin.Context) {
	stage, err := transactionDomain.ParseStage(c.Param("stage"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	stats, err := h.lifecycle.FolderStats(c.Request.Context(), stage)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// PartnersHandler lists distinct partners with counts and last activity.
// GET /v1/partners - Returns 200 OK.
func (h *TransactionHandler) PartnersHandler(c *gin.Context) {
	partners, err := h.lifecycle.Partners(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.PartnersResponse{Data: partners})
}

// DocumentTypesHandler lists known and stored document types with counts.
// GET /v1/document-types - Returns 200 OK.
func (h *TransactionHandler) DocumentTypesHandler(c *gin.Context) {
	types, err := h.lifecycle.DocumentTypes(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DocumentTypesResponse{Data: types})
}
