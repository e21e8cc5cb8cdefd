package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"

	"github.com/TomKlotzPro/openbite/config"
	"github.com/TomKlotzPro/openbite/controllers"
	"github.com/TomKlotzPro/openbite/middleware"
	"github.com/TomKlotzPro/openbite/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, blogs *controllers.BlogController) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log and panic recovery go to their own rolling file.
	gl := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", utils.MetricsHandler())

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	api := r.Group("/api/v1")

	public := api.Group("/blogs")
	public.GET("", blogs.ListBlogs)
	public.GET("/slug/:slug", blogs.GetBySlug)
	public.GET("/:id", blogs.GetByID)

	protected := api.Group("/blogs")
	protected.Use(middleware.AuthRequired(cfg.JWTSecret), limiter.Middleware())
	protected.GET("/mine", blogs.ListMine)
	protected.POST("", blogs.Create)
	protected.PUT("/:id", blogs.Update)
	protected.DELETE("/:id", blogs.Delete)
	protected.PUT("/:id/upvotes", blogs.ToggleUpvote)
	protected.POST("/comments", blogs.AddComment)
	protected.PUT("/comments", blogs.ReplaceComments)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "api route not found")
	})

	return r
}
