package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/arneor/vault-api/handlers"
	"github.com/arneor/vault-api/middleware"
	"github.com/arneor/vault-api/routes"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

const version = "1.0.0"

// NewServeCommand starts the HTTP API.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return runServer(ctx, a)
		},
	}
}

func runServer(ctx context.Context, a *app) error {
	if a.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ws := handlers.NewWSHandler()
	defer ws.Close()
	a.ledger.Subscribe(ws.Broadcast)

	refresher := services.NewRefresher(a.ledger, a.cfg.RefreshInterval, ws.Broadcast)
	go refresher.Run(ctx)

	limiter := middleware.NewRateLimiter(a.cfg.RateLimitPerMinute, time.Minute)
	go limiter.Cleanup(ctx)

	router := newRouter(a, ws, limiter)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.LogStartup("Vault API", version, a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(a *app, ws *handlers.WSHandler, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	allowedOrigins := []string{a.cfg.FrontendURL}
	log.Printf("🌍 CORS: Allowing origins:")
	for _, origin := range allowedOrigins {
		log.Printf("   - %s", origin)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.LogAPIRequest(c.Request.Method, c.Request.URL.Path, middleware.GetUserID(c),
			c.Writer.Status(), time.Since(start).String())
	})

	router.Use(limiter.Middleware())

	h := handlers.NewHandler(a.ledger, a.auth, handlers.Catalog{
		IncomeCategories:  a.cfg.IncomeCategories,
		ExpenseCategories: a.cfg.ExpenseCategories,
		PaymentMethods:    a.cfg.PaymentMethods,
	})
	authHandler := handlers.NewAuthHandler(a.auth, a.ledger)
	adminHandler := handlers.NewAdminHandler(h, a.audit)
	categorizationHandler := handlers.NewCategorizationHandler(h)

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, authHandler)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(a.auth))
		{
			routes.SetupSessionRoutes(protected, authHandler, ws)
			routes.SetupLedgerRoutes(protected, h)
			routes.SetupCategorizationRoutes(protected, categorizationHandler)
			routes.SetupAnalyticsRoutes(protected, h)
			routes.SetupAdminRoutes(protected, adminHandler)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		ok, _ := a.auth.Status()
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"version":       version,
			"time":          a.ledger.Now().Format(time.RFC3339),
			"offline":       a.cfg.IsOffline(),
			"authenticated": ok,
			"clients":       ws.Sessions(),
		})
	})

	return router
}
