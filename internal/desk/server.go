// Package desk exposes the reservation pipelines and the book catalog over HTTP.
package desk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const claimsContextKey = "auth_claims"

// Defaults names the accounts used when a request omits them.
type Defaults struct {
	Wallet string
	ATM    string
	Volume string
}

// Dependencies are the collaborators the desk serves.
type Dependencies struct {
	Logger   *zap.Logger
	Executor *workflow.Executor
	Reporter *workflow.Reporter
	Store    workflow.ResourceStore
	Flows    workflow.Flows
	Defaults Defaults
	Books    *catalog.Service
	Metrics  http.Handler
}

// Run serves the desk until ctx is cancelled.
func Run(ctx context.Context, cfg Config, dependencies Dependencies) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	router, err := NewRouter(cfg, dependencies)
	if err != nil {
		return err
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("frontdesk listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter validates cfg and builds the gin engine.
func NewRouter(cfg Config, dependencies Dependencies) (*gin.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handler, err := newHTTPHandler(cfg, dependencies)
	if err != nil {
		return nil, err
	}
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     cfg.SessionIssuer,
		CookieName: cfg.SessionCookieName,
	})
	if err != nil {
		return nil, fmt.Errorf("session validator: %w", err)
	}
	return setupRouter(cfg, handler, validator), nil
}

func setupRouter(cfg Config, handler *httpHandler, validator *sessionvalidator.Validator) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if handler.metrics != nil {
		router.GET("/metrics", gin.WrapH(handler.metrics))
	}

	api := router.Group("/api")
	api.POST("/orders", handler.handleOrder)
	api.POST("/loans", handler.handleLoan)
	api.POST("/returns", handler.handleReturn)
	api.POST("/withdrawals", handler.handleWithdrawal)
	api.POST("/deposits", handler.handleDeposit)
	api.POST("/logins", handler.handleLogin)
	api.POST("/backups", handler.handleBackup)
	api.GET("/resources/:id", handler.handleResource)

	books := api.Group("/books")
	books.GET("", handler.handleListBooks)
	books.POST("", handler.handleAddBook)
	books.GET("/:id", handler.handleGetBook)
	books.PATCH("/:id", handler.handleEditBook)
	books.DELETE("/:id", handler.handleDeleteBook)
	books.POST("/:id/borrow", handler.handleBorrowBook)
	books.POST("/:id/return", handler.handleReturnBook)

	session := api.Group("/session")
	session.Use(validator.GinMiddleware(claimsContextKey))
	session.GET("", handler.handleSession)

	return router
}

type httpHandler struct {
	logger   *zap.Logger
	executor *workflow.Executor
	reporter *workflow.Reporter
	store    workflow.ResourceStore
	flows    workflow.Flows
	defaults Defaults
	books    *catalog.Service
	metrics  http.Handler
	sessions *sessionIssuer
}

func newHTTPHandler(cfg Config, dependencies Dependencies) (*httpHandler, error) {
	if dependencies.Store == nil {
		return nil, fmt.Errorf("resource store is required")
	}
	handler := &httpHandler{
		logger:   dependencies.Logger,
		executor: dependencies.Executor,
		reporter: dependencies.Reporter,
		store:    dependencies.Store,
		flows:    dependencies.Flows,
		defaults: dependencies.Defaults,
		books:    dependencies.Books,
		metrics:  dependencies.Metrics,
		sessions: newSessionIssuer(cfg),
	}
	if handler.logger == nil {
		handler.logger = zap.NewNop()
	}
	if handler.executor == nil {
		handler.executor = workflow.NewExecutor()
	}
	if handler.reporter == nil {
		handler.reporter = workflow.NewReporter()
	}
	return handler, nil
}

func (handler *httpHandler) handleSession(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorUnauthorized, "missing session"))
		return
	}
	var expires int64
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Unix()
	}
	ctx.JSON(http.StatusOK, gin.H{
		"user_id": claims.GetUserID(),
		"display": claims.GetUserDisplayName(),
		"expires": expires,
	})
}

func (handler *httpHandler) handleResource(ctx *gin.Context) {
	id, err := workflow.NewResourceID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"id":       id.String(),
		"quantity": handler.store.Get(id),
	})
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		ctx.JSON(status, errorResponse(code, "internal error"))
		return
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}
