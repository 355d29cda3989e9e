package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"homecare-booking/internal/handler/api"
	"homecare-booking/internal/handler/middleware"
	"homecare-booking/internal/infra/broker"
	"homecare-booking/internal/outbox"
	"homecare-booking/internal/pkg/config"
	"homecare-booking/internal/pkg/jwt"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	bookingHandler *api.BookingHandler,
	operatorHandler *api.OperatorHandler,
	authMiddleware *middleware.AuthMiddleware,
	pool *pgxpool.Pool,
	publisher *broker.Publisher,
	dispatcher *outbox.Dispatcher,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, bookingHandler, operatorHandler, authMiddleware, pool, publisher, dispatcher)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	bookingHandler *api.BookingHandler,
	operatorHandler *api.OperatorHandler,
	authMiddleware *middleware.AuthMiddleware,
	pool *pgxpool.Pool,
	publisher *broker.Publisher,
	dispatcher *outbox.Dispatcher,
) {
	engine.GET("/health", healthCheck(pool, publisher, dispatcher))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		bookings := apiGroup.Group("/bookings")
		bookings.Use(authMiddleware.RequireAuth())
		{
			addRoutes(bookings, []route{
				{Method: http.MethodPost, Path: "", Handler: bookingHandler.CreateBooking},
				{Method: http.MethodGet, Path: "", Handler: bookingHandler.ListUpcomingBookings},
				{Method: http.MethodGet, Path: "/:id", Handler: bookingHandler.GetBooking},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: bookingHandler.CancelBooking},
				{Method: http.MethodPost, Path: "/:id/review", Handler: bookingHandler.ReviewBooking},
			})
		}

		operator := apiGroup.Group("/operator/bookings")
		operator.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(jwt.RoleOperator))
		{
			addRoutes(operator, []route{
				{Method: http.MethodGet, Path: "/:id", Handler: operatorHandler.GetBooking},
				{Method: http.MethodPost, Path: "/:id/search", Handler: operatorHandler.StartSearch},
				{Method: http.MethodPost, Path: "/:id/assign", Handler: operatorHandler.AssignCaregiver},
				{Method: http.MethodPost, Path: "/:id/confirm", Handler: operatorHandler.ConfirmBooking},
				{Method: http.MethodPost, Path: "/:id/complete", Handler: operatorHandler.CompleteBooking},
				{Method: http.MethodPost, Path: "/:id/no-show", Handler: operatorHandler.MarkNoShow},
			})
		}
	}
}

// @Summary Health check
// @Description Report service, broker and outbox health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]any
// @Router /health [get]
func healthCheck(pool *pgxpool.Pool, publisher *broker.Publisher, dispatcher *outbox.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		brokerState := string(publisher.Supervisor().State())

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		database := "ok"
		if err := pool.Ping(pingCtx); err != nil {
			database = "unreachable"
		}

		pending, err := dispatcher.Pending(c.Request.Context())
		outboxStatus := gin.H{"pending": pending}
		if err != nil {
			outboxStatus = gin.H{"error": "backlog unavailable"}
		}

		status := "ok"
		if !publisher.Healthy() || database != "ok" {
			status = "degraded"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   status,
			"database": database,
			"broker":   brokerState,
			"outbox":   outboxStatus,
		})
	}
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
