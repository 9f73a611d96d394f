package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/paperdex/config"
	"github.com/meghashyamc/paperdex/db/kvdb"
	"github.com/meghashyamc/paperdex/db/searchdb"
	"github.com/meghashyamc/paperdex/logger"
	"github.com/meghashyamc/paperdex/services/ingest"
	"github.com/meghashyamc/paperdex/services/lookup"
	"github.com/meghashyamc/paperdex/services/search"
	"github.com/meghashyamc/paperdex/validation"
)

type server struct {
	cfg           *config.Config
	router        *gin.Engine
	httpServer    *http.Server
	kvdb          kvdb.DB
	searchdb      searchdb.DB
	searchService *search.Service
	resolver      *lookup.Resolver
	buildMetadata *kvdb.BuildMetadata
	validator     *validation.Validator
	logger        logger.Logger
}

// Run serves the catalog until ctx is cancelled or the process is
// interrupted, then shuts the HTTP server down gracefully.
func Run(ctx context.Context, cfg *config.Config, logger logger.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger,
	}
	if err := s.setupDependencies(); err != nil {
		s.closeStores()
		return err
	}
	s.setupRouter()
	serveErrC := s.setupHTTPServer()

	return s.setupGracefulShutdown(ctx, serveErrC)
}

func (s *server) setupDependencies() error {
	kvDB, err := kvdb.New(s.logger, s.cfg.GetKVDBPath())
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.kvdb = kvDB

	searchDB, err := searchdb.New(s.logger, s.cfg.GetIndexPath())
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		return err
	}
	s.searchdb = searchDB

	s.buildMetadata, err = ingest.LastBuild(s.kvdb)
	if err != nil {
		s.logger.Error("error reading build metadata", "err", err.Error())
		return err
	}
	if s.buildMetadata == nil {
		s.logger.Warn("no index build found, serving an empty catalog", "storage_path", s.cfg.GetStoragePath())
	} else {
		s.logger.Info("serving index build", "build_id", s.buildMetadata.BuildID, "built_at", s.buildMetadata.BuiltAt, "record_count", s.buildMetadata.RecordCount)
	}

	paperCatalog, err := ingest.LoadCatalog(s.kvdb, s.cfg.GetFacetLimits())
	if err != nil {
		s.logger.Error("error loading catalog", "err", err.Error())
		return err
	}
	s.searchService, err = search.New(s.logger, paperCatalog, s.searchdb, search.Options{
		MaxPageSize:    s.cfg.GetMaxPageSize(),
		DefaultSortBy:  s.cfg.GetDefaultSortBy(),
		MatchCacheSize: s.cfg.GetMatchCacheSize(),
	})
	if err != nil {
		s.logger.Error("error creating search service", "err", err.Error())
		return err
	}

	s.resolver = lookup.New(s.logger, s.kvdb, lookup.Options{
		BaseURL:       s.cfg.GetLookupBaseURL(),
		Timeout:       s.cfg.GetLookupTimeout(),
		RatePerSecond: s.cfg.GetLookupRate(),
	})

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	return nil

}

func (s *server) setupRouter() {
	router := newRouter(s.logger)

	setupRoutes(router, routeDependencies{
		logger:          s.logger,
		searchService:   s.searchService,
		resolver:        s.resolver,
		validator:       s.validator,
		buildMetadata:   s.buildMetadata,
		defaultPageSize: s.cfg.GetDefaultPageSize(),
	})

	s.router = router
}

func (s *server) setupHTTPServer() <-chan error {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer

	serveErrC := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped unexpectedly", "err", err.Error())
			serveErrC <- err
		}
		close(serveErrC)
	}()
	return serveErrC
}

func (s *server) setupGracefulShutdown(ctx context.Context, serveErrC <-chan error) error {
	defer s.closeStores()

	select {
	case err := <-serveErrC:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err)
		return err
	}
	s.logger.Info("shut down http server successfully")

	return nil
}

func (s *server) closeStores() {
	if s.searchdb != nil {
		s.searchdb.Close()
	}
	if s.kvdb != nil {
		s.kvdb.Close()
	}
}
