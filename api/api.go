// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api provides the JSON HTTP surface over the registries. It is a
// thin collaborator: callers supply their own address with each request
// and the registries enforce the owner capability and trust membership at
// the moment of the call. There is no session or role concept here.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veritrust-io/veritrust/registry"
)

type ApiConfig struct {
	Logger        *slog.Logger
	Trust         *registry.TrustRegistry
	Articles      *registry.ArticleRegistry
	ListenAddress string
}

type Api struct {
	config ApiConfig
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

func NewApi(cfg ApiConfig) *Api {
	a := &Api{
		config: cfg,
		logger: cfg.Logger,
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(a.requestLogger())
	a.registerRoutes(router)
	a.router = router
	return a
}

// Router returns the underlying HTTP handler, mainly for tests
func (a *Api) Router() http.Handler {
	return a.router
}

// Start begins serving the API in the background
func (a *Api) Start() error {
	if a.config.ListenAddress == "" {
		return errors.New("no listen address configured")
	}
	a.server = &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.router,
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.logger.Info(
		"starting API listener",
		"component", "api",
		"address", a.config.ListenAddress,
	)
	go func() {
		if err := a.server.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API listener failed",
				"component", "api",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the API listener
func (a *Api) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *Api) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", a.handleHealth)
	v1 := router.Group("/v1")
	{
		v1.POST("/articles", a.handleSubmit)
		v1.GET("/articles/:hash", a.handleGetArticle)
		v1.POST("/articles/:hash/votes", a.handleVote)
		v1.GET("/articles/:hash/voters/:address", a.handleHasVoted)
		v1.GET("/publishers/:address", a.handleIsTrusted)
		v1.POST("/publishers", a.handleAddPublisher)
		v1.DELETE("/publishers/:address", a.handleRemovePublisher)
		v1.GET("/params", a.handleGetParams)
		v1.PUT("/params", a.handleSetParams)
		v1.POST("/fingerprint", a.handleFingerprint)
	}
}

func (a *Api) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Debug(
			"request",
			"component", "api",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (a *Api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorStatus maps registry rejections onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, registry.ErrDuplicateSubmission),
		errors.Is(err, registry.ErrDuplicateVote),
		errors.Is(err, registry.ErrAlreadyFinalized),
		errors.Is(err, registry.ErrAlreadyTrusted),
		errors.Is(err, registry.ErrNotTrusted):
		return http.StatusConflict
	case errors.Is(err, registry.ErrZeroAddress),
		errors.Is(err, registry.ErrInvalidFingerprint),
		errors.Is(err, registry.ErrInvalidParams):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *Api) abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"request failed",
			"component", "api",
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
