package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/zaqqye/scholarship_backend/internal/config"
	"github.com/zaqqye/scholarship_backend/internal/controllers"
	"github.com/zaqqye/scholarship_backend/internal/database"
	"github.com/zaqqye/scholarship_backend/internal/identity"
	"github.com/zaqqye/scholarship_backend/internal/middleware"
	"github.com/zaqqye/scholarship_backend/internal/scholarship"
	"github.com/zaqqye/scholarship_backend/internal/ws"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Engine    *scholarship.Engine
	Store     *database.ScholarshipStore
	Outbox    *database.Outbox
	Hubs      *ws.Hubs
	Validator identity.Validator
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func Register(r *gin.Engine, d Deps) {
	cfg := d.Config
	authCtrl := &controllers.AuthController{
		DB:            d.DB,
		Validator:     d.Validator,
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshJWTSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}
	scholarshipCtrl := &controllers.ScholarshipController{Engine: d.Engine}
	adminCtrl := &controllers.AdminController{Store: d.Store, Outbox: d.Outbox}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), authCtrl.Login)
		auth.POST("/refresh", loginLimiter.Middleware(), authCtrl.Refresh)
	}

	// Reads are open to any caller
	public := r.Group("/api/v1/scholarship")
	{
		public.GET("/students/:address", scholarshipCtrl.GetStudent)
		public.GET("/config", scholarshipCtrl.GetConfig)
		public.POST("/query", scholarshipCtrl.Query)
	}

	// Protected
	authMW := middleware.AuthMiddleware(d.DB, middleware.AuthConfig{JWTSecret: cfg.JWTSecret})
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/logout", authCtrl.Logout)

		sch := api.Group("/scholarship")
		{
			sch.POST("/instantiate", scholarshipCtrl.Instantiate)
			// Admin checks happen inside the engine so the error codes match
			// the message form.
			sch.POST("/students", scholarshipCtrl.RegisterStudent)
			sch.POST("/students/:address/approve", scholarshipCtrl.ApproveStudent)
			sch.POST("/claim", scholarshipCtrl.Claim)
			sch.POST("/execute", scholarshipCtrl.Execute)
		}

		admin := api.Group("/admin", middleware.RequireAdmin(d.Engine, cfg.OperatorAddress))
		{
			admin.GET("/students", adminCtrl.ListStudents)
			admin.GET("/payments", adminCtrl.ListPayments)
			admin.POST("/accounts", authCtrl.CreateAccount)
		}
	}

	realtime := r.Group("/ws", authMW)
	{
		realtime.GET("/audit", middleware.RequireAdmin(d.Engine, ""), ws.AuditHandler(d.Hubs))
		realtime.GET("/student", ws.StudentHandler(d.Hubs))
	}
}
