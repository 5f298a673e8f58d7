package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"slotwise/internal/availability"
)

// ConnectionStore persists per-host external calendar credentials. One
// connection per (user, provider).
type ConnectionStore struct {
	pool *pgxpool.Pool
}

func NewConnectionStore(pool *pgxpool.Pool) *ConnectionStore {
	return &ConnectionStore{pool: pool}
}

func (s *ConnectionStore) Save(ctx context.Context, c *CalendarConnection) error {
	q := `INSERT INTO calendar_connections (id, user_id, provider, access_token, refresh_token, token_expires_at, calendar_id)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
	      ON CONFLICT (user_id, provider)
	      DO UPDATE SET access_token=EXCLUDED.access_token,
	                    refresh_token=EXCLUDED.refresh_token,
	                    token_expires_at=EXCLUDED.token_expires_at,
	                    calendar_id=EXCLUDED.calendar_id
	      RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q, c.UserID, c.Provider, c.AccessToken, c.RefreshToken,
		c.TokenExpiresAt, c.CalendarID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("save calendar connection: %w", err)
	}
	return nil
}

// GetByUser returns nil when the host has no connection for the provider.
func (s *ConnectionStore) GetByUser(ctx context.Context, userID, provider string) (*CalendarConnection, error) {
	q := `SELECT id, user_id, provider, access_token, refresh_token, token_expires_at, calendar_id, created_at
	      FROM calendar_connections WHERE user_id=$1 AND provider=$2`
	var c CalendarConnection
	var calendarID *string
	err := s.pool.QueryRow(ctx, q, userID, provider).Scan(&c.ID, &c.UserID, &c.Provider,
		&c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &calendarID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar connection: %w", err)
	}
	if calendarID != nil {
		c.CalendarID = *calendarID
	}
	return &c, nil
}

func (s *ConnectionStore) Delete(ctx context.Context, userID, provider string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM calendar_connections WHERE user_id=$1 AND provider=$2`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete calendar connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("calendar connection: %w", ErrNotFound)
	}
	return nil
}

// GoogleCalendarSettings carries the OAuth client credentials.
type GoogleCalendarSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (s GoogleCalendarSettings) configured() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RedirectURL != ""
}

// GoogleCalendar is the Google implementation of the external calendar:
// OAuth connect, FreeBusy lookups for slot computation, and event creation
// after a booking commits.
type GoogleCalendar struct {
	config      *oauth2.Config
	connections *ConnectionStore
	logger      *zap.Logger
}

// NewGoogleCalendar returns nil when the OAuth client is not configured;
// callers treat a nil calendar as "no external source".
func NewGoogleCalendar(settings GoogleCalendarSettings, connections *ConnectionStore, logger *zap.Logger) *GoogleCalendar {
	if !settings.configured() {
		return nil
	}
	return &GoogleCalendar{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Scopes: []string{
				calendar.CalendarReadonlyScope,
				calendar.CalendarEventsScope,
			},
			Endpoint: google.Endpoint,
		},
		connections: connections,
		logger:      logger,
	}
}

// AuthURL starts the OAuth flow for a host. The user id rides in the state
// parameter and comes back on the callback.
func (g *GoogleCalendar) AuthURL(userID string) string {
	state := fmt.Sprintf("user:%s:%d", userID, time.Now().Unix())
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code and persists the tokens
// for the host encoded in state.
func (g *GoogleCalendar) HandleCallback(ctx context.Context, code, state string) (*CalendarConnection, error) {
	userID, err := userIDFromState(state)
	if err != nil {
		return nil, err
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	conn := &CalendarConnection{
		UserID:         userID,
		Provider:       "google",
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}
	if err := g.connections.Save(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func userIDFromState(state string) (string, error) {
	parts := strings.Split(state, ":")
	if len(parts) != 3 || parts[0] != "user" || parts[1] == "" {
		return "", invalidf("state", "malformed oauth state")
	}
	return parts[1], nil
}

// BusyIntervals satisfies availability.ExternalCalendar via the FreeBusy
// API. Hosts without a connection contribute no intervals.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, userID string, from, to time.Time) ([]availability.Interval, error) {
	conn, err := g.connections.GetByUser(ctx, userID, "google")
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, nil
	}

	srv, err := g.service(ctx, conn)
	if err != nil {
		return nil, err
	}

	calendarID := conn.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	resp, err := srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	var out []availability.Interval
	for _, cal := range resp.Calendars {
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				continue
			}
			out = append(out, availability.Interval{Start: start, End: end})
		}
	}
	return out, nil
}

// CreateEvent mirrors a committed booking into the host's calendar and
// returns the created event id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, b *Booking, et *EventType) (string, error) {
	conn, err := g.connections.GetByUser(ctx, b.UserID, "google")
	if err != nil {
		return "", err
	}
	if conn == nil {
		return "", nil
	}

	srv, err := g.service(ctx, conn)
	if err != nil {
		return "", err
	}

	description := fmt.Sprintf("Meeting with %s (%s)", b.AttendeeName, b.AttendeeEmail)
	if b.AttendeeNotes != "" {
		description += "\n\nNotes: " + b.AttendeeNotes
	}
	description += "\n\nBooking ID: " + b.ID

	event := &calendar.Event{
		Summary:     fmt.Sprintf("%s with %s", et.Name, b.AttendeeName),
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: b.StartTime.Format(time.RFC3339),
			TimeZone: b.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: b.EndTime.Format(time.RFC3339),
			TimeZone: b.Timezone,
		},
		Attendees: []*calendar.EventAttendee{{Email: b.AttendeeEmail}},
	}

	calendarID := conn.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	created, err := srv.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

// service builds a Calendar client whose token source refreshes expired
// access tokens transparently.
func (g *GoogleCalendar) service(ctx context.Context, conn *CalendarConnection) (*calendar.Service, error) {
	token := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiresAt,
	}
	ts := g.config.TokenSource(ctx, token)
	srv, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}
