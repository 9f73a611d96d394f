package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/api/handlers"
	"github.com/meghashyamc/paperdex/db/kvdb"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/metrics"
	"github.com/meghashyamc/paperdex/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDependencies struct {
	logger          logger.Logger
	searchService   handlers.SearchService
	resolver        handlers.LinkResolver
	validator       *validation.Validator
	buildMetadata   *kvdb.BuildMetadata
	defaultPageSize int
}

func setupRoutes(router *gin.Engine, deps routeDependencies) {
	router.GET("/health", health(deps.buildMetadata))
	router.GET("/", root())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.SetupSearch(router, deps.logger, deps.searchService, deps.validator, deps.defaultPageSize)
	handlers.SetupLookup(router, deps.logger, deps.resolver, deps.validator)

}

func health(buildMetadata *kvdb.BuildMetadata) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if buildMetadata != nil {
			body["build_id"] = buildMetadata.BuildID
			body["record_count"] = buildMetadata.RecordCount
		}
		c.JSON(http.StatusOK, body)
	}
}

func root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "paperdex papers API. POST /search to query, GET /schema for fields and facets, GET /health for status.",
		})
	}
}

func newRouter(logger logger.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.Middleware())

	return router
}
