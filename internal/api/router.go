package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfund/pooling/internal/api/handler"
	"github.com/openfund/pooling/internal/api/middleware"
	"github.com/openfund/pooling/internal/config"
	"github.com/openfund/pooling/internal/repository"
	"github.com/openfund/pooling/internal/service"
	"github.com/openfund/pooling/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	PoolSvc     *service.PoolService
	ContribSvc  *service.ContributionService
	DistribSvc  *service.DistributionService
	ClaimSvc    *service.ClaimService
	RecoverySvc *service.RecoveryService
	WalletRepo  *repository.WalletRepository
	Hub         *ws.Hub
	Cfg         *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	identityH := handler.NewIdentityHandler(deps.Cfg)
	poolH := handler.NewPoolHandler(deps.PoolSvc, deps.DistribSvc, deps.RecoverySvc)
	contribH := handler.NewContributionHandler(deps.ContribSvc)
	claimH := handler.NewClaimHandler(deps.ClaimSvc)
	walletH := handler.NewWalletHandler(deps.WalletRepo, deps.Cfg)

	// ── Auth middleware (shared) ──────────────────────────────────────────────
	authMW := middleware.PrincipalMiddleware([]byte(deps.Cfg.JWT.Secret))

	// ── Rate limiters ─────────────────────────────────────────────────────────
	identityRL := middleware.RateLimitMiddleware(10) // token minting
	writeRL := middleware.RateLimitMiddleware(30)    // money-moving endpoints

	api := r.Group("/api")
	{
		// ── Identity (public, strict rate limit) ─────────────────────────────
		identity := api.Group("/identity")
		identity.Use(identityRL)
		{
			identity.POST("/token", identityH.IssueToken)
		}

		// ── Pools (public reads) ─────────────────────────────────────────────
		pools := api.Group("/pools")
		{
			pools.GET("", poolH.List)
			pools.GET("/:id", poolH.GetByID)
			pools.GET("/:id/contributions", poolH.Contributions)

			// Permissionless: any caller may trigger the abandonment check.
			pools.POST("/:id/check-inactivity", poolH.CheckInactivity)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(authMW)
		{
			authed.GET("/me", identityH.Me)

			authedPools := authed.Group("/pools")
			authedPools.Use(writeRL)
			{
				authedPools.POST("", poolH.Create)
				authedPools.POST("/:id/close", poolH.Close)
				authedPools.POST("/:id/report-return", poolH.ReportReturn)
				authedPools.POST("/:id/contributions", contribH.Contribute)
				authedPools.GET("/:id/contributions/my", contribH.GetMine)
				authedPools.POST("/:id/claim", claimH.Claim)
			}

			authed.GET("/contributions/my", contribH.GetMyContributions)

			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
				wallet.POST("/deposit", walletH.Deposit)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// With no configured origins all origins are allowed; otherwise only the
// configured list is.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if len(allowed) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
