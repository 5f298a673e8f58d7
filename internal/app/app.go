package app

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"slotwise/internal/availability"
)

// App wires the stores, the availability engine, and the booking write path
// behind the HTTP handlers.
type App struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger

	Rules      *RuleStore
	Overrides  *OverrideStore
	EventTypes *EventTypeStore
	Bookings   BookingStore
	Calendar   *GoogleCalendar

	Resolver   *availability.Resolver
	BookingSvc *BookingService

	now func() time.Time
}

// New assembles the application. calendar may be nil when Google OAuth is
// not configured; the engine then runs on internal bookings alone.
func New(pool *pgxpool.Pool, calendar *GoogleCalendar, logger *zap.Logger) *App {
	rules := NewRuleStore(pool)
	overrides := NewOverrideStore(pool)
	eventTypes := NewEventTypeStore(pool)
	bookings := NewPGBookingStore(pool)

	// *GoogleCalendar is passed through an interface; a typed nil must stay
	// a plain nil so the aggregator and booking service skip it.
	var external availability.ExternalCalendar
	var sync CalendarSync
	if calendar != nil {
		external = calendar
		sync = calendar
	}

	busy := availability.NewBusyAggregator(bookings, external, logger)
	resolver := availability.NewResolver(eventTypes, rules, overrides, busy, time.Now, logger)
	notifier := LogNotifier{Logger: logger}
	bookingSvc := NewBookingService(bookings, eventTypes, sync, notifier, time.Now, logger)

	return &App{
		DB:         pool,
		Logger:     logger,
		Rules:      rules,
		Overrides:  overrides,
		EventTypes: eventTypes,
		Bookings:   bookings,
		Calendar:   calendar,
		Resolver:   resolver,
		BookingSvc: bookingSvc,
		now:        time.Now,
	}
}
