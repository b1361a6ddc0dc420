package api

import (
	"github.com/gin-contrib/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"tikozetu/cmd/middleware"
	"tikozetu/internal/model"
	"tikozetu/internal/service"
	"tikozetu/internal/session"
)

type Routers struct {
	Service    service.Service
	Sessions   session.Store
	CookieName string
	StaticDir  string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(middleware.MetricsMiddleware())
	app.Use(cors.Default())
	app.Use(middleware.SessionMiddleware(r.Sessions, r.CookieName))

	apiGroup := app.Group("/v1")

	apiGroup.POST("/auth/register", r.Service.Register)
	apiGroup.POST("/auth/login", r.Service.Login)
	apiGroup.POST("/auth/logout", r.Service.Logout)
	apiGroup.GET("/auth/profile", middleware.RequireAuth(), r.Service.Profile)

	apiGroup.GET("/events", r.Service.GetAllEvents)
	apiGroup.GET("/events/:id/payment-info", r.Service.GetEventPaymentInfo)
	apiGroup.POST("/events", middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin), r.Service.CreateEvent)

	ticketGroup := apiGroup.Group("", middleware.RequireAuth())
	ticketGroup.POST("/events/:id/book", r.Service.BookTicket)
	ticketGroup.GET("/tickets", r.Service.GetMyTickets)
	ticketGroup.POST("/tickets/:id/payment", r.Service.SubmitPayment)

	organizerGroup := apiGroup.Group("/organizer", middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))
	organizerGroup.GET("/payments/pending", r.Service.GetPendingPayments)
	organizerGroup.POST("/payments/:id/confirm", r.Service.ConfirmPayment)
	organizerGroup.POST("/payments/:id/reject", r.Service.RejectPayment)
	organizerGroup.GET("/dashboard", r.Service.GetDashboard)

	app.GET("/metrics", func(c *ginext.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})
	app.Static("/static", r.StaticDir)

	return app
}
