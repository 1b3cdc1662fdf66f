package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/handler"
	internalmiddleware "github.com/noah-isme/summercamp-api/internal/middleware"
	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/service"
	"github.com/noah-isme/summercamp-api/pkg/config"
	"github.com/noah-isme/summercamp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/summercamp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/summercamp-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Classes      *handler.ClassHandler
	Users        *handler.UserHandler
	Reservations *handler.ReservationHandler
	Enrollments  *handler.EnrollmentHandler
	Payments     *handler.PaymentHandler
	Settlements  *handler.SettlementHandler
	Metrics      *handler.MetricsHandler
}

// Deps carries everything the router needs besides handlers.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Verifier service.IdentityVerifier
	Gate     internalmiddleware.Authorizer
	Audit    internalmiddleware.AuditStore
	Metrics  *service.MetricsService
}

// New builds the gin engine with the full route table.
func New(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(deps.Metrics))
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.GET("/classes", h.Classes.List)

	authed := api.Group("")
	authed.Use(internalmiddleware.Authenticate(deps.Verifier))

	require := func(caps ...models.Capability) gin.HandlerFunc {
		return internalmiddleware.Require(deps.Gate, caps...)
	}
	audit := func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	classes := authed.Group("/classes")
	classes.GET("/:id", require(models.CapabilityAuthenticated), h.Classes.Get)
	classes.POST("", require(models.CapabilityInstructor), h.Classes.Create)
	classes.PATCH("/:id", require(models.CapabilityInstructor), h.Classes.Update)
	classes.PATCH("/:id/status", require(models.CapabilityAdmin), audit(models.AuditActionClassStatus, "classes"), h.Classes.UpdateStatus)
	classes.PATCH("/:id/feedback", require(models.CapabilityAdmin), audit(models.AuditActionClassReview, "classes"), h.Classes.UpdateFeedback)

	authed.GET("/instructors/:email/classes", require(models.CapabilityInstructor, models.CapabilitySelfOrAdmin), h.Classes.ListByInstructor)

	users := authed.Group("/users")
	users.GET("", require(models.CapabilityAdmin), h.Users.List)
	users.PUT("/:email", require(models.CapabilitySelfOrAdmin), h.Users.SaveProfile)
	users.GET("/:email/role", require(models.CapabilitySelfOrAdmin), h.Users.Role)
	users.GET("/:email/reservations", require(models.CapabilitySelfOrAdmin), h.Reservations.ListByStudent)
	users.GET("/:email/enrollments", require(models.CapabilitySelfOrAdmin), h.Enrollments.ListByStudent)
	users.GET("/:email/payments", require(models.CapabilitySelfOrAdmin), h.Payments.History)
	users.GET("/:email/payments/export", require(models.CapabilitySelfOrAdmin), h.Payments.Export)

	authed.PATCH("/users/:id/role", require(models.CapabilityAdmin), audit(models.AuditActionRoleChange, "users"), h.Users.ChangeRole)

	reservations := authed.Group("/reservations")
	reservations.POST("", require(models.CapabilityAuthenticated), h.Reservations.Create)
	reservations.DELETE("/:id", require(models.CapabilityStudent), h.Reservations.Cancel)

	authed.POST("/settlements", require(models.CapabilityAuthenticated), h.Settlements.Settle)

	authed.GET("/admin/metrics", require(models.CapabilityAdmin), h.Metrics.Summary)

	return r
}
