package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"slotwise/internal/app"
	"slotwise/internal/config"
	"slotwise/internal/server"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("init migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	migrator.Close()

	connections := app.NewConnectionStore(pool)
	calendar := app.NewGoogleCalendar(app.GoogleCalendarSettings{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, connections, logger)
	if calendar == nil {
		logger.Warn("Google Calendar not configured, external busy time disabled")
	}

	appInstance := app.New(pool, calendar, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// OAuth2 callback and the public booking surface stay outside auth.
	router.GET("/oauth2callback", appInstance.CalendarCallbackHandler)

	api := router.Group("/api")
	{
		api.GET("/slots", appInstance.GetSlotsHandler)
		api.GET("/users/:id/event-types/:slug", appInstance.GetEventTypeBySlugHandler)
		api.POST("/bookings", appInstance.CreateBookingHandler)
		api.PUT("/bookings/:id/cancel", appInstance.CancelBookingHandler)
		api.PUT("/bookings/:id/reschedule", appInstance.RescheduleBookingHandler)

		host := api.Group("")
		host.Use(app.AuthMiddleware(cfg.StaticTokens, cfg.JWTSecret))
		{
			users := host.Group("/users")
			{
				users.GET("/:id/availability", appInstance.ListAvailabilityHandler)
				users.POST("/:id/availability", appInstance.SetAvailabilityHandler)
				users.GET("/:id/overrides", appInstance.ListOverridesHandler)
				users.POST("/:id/overrides", appInstance.CreateOverrideHandler)
				users.GET("/:id/event-types", appInstance.ListEventTypesHandler)
				users.POST("/:id/event-types", appInstance.CreateEventTypeHandler)
				users.GET("/:id/bookings", appInstance.ListBookingsHandler)
			}
			host.DELETE("/overrides/:id", appInstance.DeleteOverrideHandler)
			host.GET("/event-types/:id", appInstance.GetEventTypeHandler)
			host.PUT("/event-types/:id", appInstance.UpdateEventTypeHandler)
			host.DELETE("/event-types/:id", appInstance.DeleteEventTypeHandler)
			host.GET("/calendar/auth", appInstance.CalendarAuthHandler)
			host.DELETE("/calendar", appInstance.CalendarDisconnectHandler)
		}
	}

	if err := server.Run(router, cfg.Addr()); err != nil {
		logger.Fatal("http server", zap.Error(err))
	}
}
