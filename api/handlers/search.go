package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/catalog"
	"github.com/meghashyamc/paperdex/services/search"
	"github.com/meghashyamc/paperdex/validation"
)

// SearchService is the read-only catalog the search routes serve.
type SearchService interface {
	Search(ctx context.Context, request search.Request) (*search.Response, error)
	Paper(id int64) (catalog.Record, bool)
	Schema() catalog.Schema
}

type SearchRequest struct {
	Query     string                  `json:"query" validate:"max=1000"`
	Filters   map[string]FilterValues `json:"filters"`
	Page      *int                    `json:"page" validate:"omitempty,min=1"`
	PageSize  *int                    `json:"page_size" validate:"omitempty,min=1"`
	SortBy    string                  `json:"sort_by" validate:"max=200"`
	SortOrder string                  `json:"sort_order" validate:"valid_sort_order"`
	Seed      string                  `json:"seed" validate:"valid_seed,max=200"`
}

func (r *SearchRequest) toServiceRequest(defaultPageSize int) search.Request {
	request := search.Request{
		Query:     r.Query,
		Page:      1,
		PageSize:  defaultPageSize,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
		Seed:      r.Seed,
	}
	if r.Page != nil {
		request.Page = *r.Page
	}
	if r.PageSize != nil {
		request.PageSize = *r.PageSize
	}
	if len(r.Filters) > 0 {
		request.Filters = make(map[string][]string, len(r.Filters))
		for field, values := range r.Filters {
			request.Filters[field] = values
		}
	}
	return request
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service SearchService, validator *validation.Validator, defaultPageSize int) {
	searchHandler := handleSearch(service, logger, validator, defaultPageSize)
	schemaHandler := handleSchema(service)

	router.POST("/search", searchHandler)
	router.GET("/schema", schemaHandler)

	papers := router.Group("/papers")
	papers.POST("/search", searchHandler)
	papers.GET("/schema", schemaHandler)
	papers.GET("/:id", handlePaper(service, logger))
}

func handleSearch(service SearchService, logger logger.Logger, validator *validation.Validator, defaultPageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		// an empty body asks for the first page with every default
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
				logger.Warn("could not extract expected params from search request", "err", err.Error())
				c.Abort()
				writeErrors(c, http.StatusUnprocessableEntity, "failed to extract request body parameters")
				return
			}
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			c.Abort()
			writeErrors(c, http.StatusNotAcceptable, err.Error())
			return
		}

		results, err := service.Search(c.Request.Context(), request.toServiceRequest(defaultPageSize))
		if err != nil {
			if errors.Is(err, search.ErrInvalidRequest) {
				c.Abort()
				writeErrors(c, http.StatusNotAcceptable, err.Error())
				return
			}
			logger.Error("search failed", "err", err.Error())
			c.Abort()
			writeErrors(c, http.StatusInternalServerError, "search failed")
			return
		}

		writeResponse(c, results, http.StatusOK)
	}
}

func handleSchema(service SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeResponse(c, service.Schema(), http.StatusOK)
	}
}
