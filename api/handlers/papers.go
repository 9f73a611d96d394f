package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/catalog"
)

type PaperResponse struct {
	Paper catalog.Record `json:"paper"`
}

func handlePaper(service SearchService, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			logger.Warn("invalid paper id", "id", c.Param("id"))
			c.Abort()
			writeErrors(c, http.StatusUnprocessableEntity, "paper id must be an integer")
			return
		}

		paper, ok := service.Paper(id)
		if !ok {
			c.Abort()
			writeErrors(c, http.StatusNotFound, "paper not found")
			return
		}

		writeResponse(c, PaperResponse{Paper: paper}, http.StatusOK)
	}
}
