package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/lookup"
	"github.com/meghashyamc/paperdex/validation"
)

type LinkResolver interface {
	Resolve(ctx context.Context, title string, author string) lookup.Link
}

type LookupRequest struct {
	Title  string `form:"title" json:"title" validate:"required,not_blank,max=1000"`
	Author string `form:"author" json:"author" validate:"max=200"`
}

func SetupLookup(router *gin.Engine, logger logger.Logger, resolver LinkResolver, validator *validation.Validator) {
	router.GET("/lookup", handleLookup(resolver, logger, validator))
}

func handleLookup(resolver LinkResolver, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := LookupRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from lookup request", "err", err.Error())
			c.Abort()
			writeErrors(c, http.StatusUnprocessableEntity, "failed to extract request query parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate lookup request", "err", err.Error())
			c.Abort()
			writeErrors(c, http.StatusNotAcceptable, err.Error())
			return
		}

		writeResponse(c, resolver.Resolve(c.Request.Context(), request.Title, request.Author), http.StatusOK)
	}
}
