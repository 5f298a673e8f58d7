package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotwise/internal/availability"
)

// respondError maps the error taxonomy to status codes. Expected business
// outcomes get their own codes; anything else is a generic 500 with the
// detail kept server-side.
func (a *App) respondError(c *gin.Context, err error) {
	switch {
	case IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound), errors.Is(err, availability.ErrEventTypeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "hint": "re-fetch availability and pick another slot"})
	default:
		a.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// GET /api/slots?date=YYYY-MM-DD&event_type_id=...&timezone=...
func (a *App) GetSlotsHandler(c *gin.Context) {
	dateStr := c.Query("date")
	eventTypeID := c.Query("event_type_id")
	timezone := c.DefaultQuery("timezone", "UTC")
	if dateStr == "" || eventTypeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date and event_type_id required"})
		return
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timezone"})
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (YYYY-MM-DD)"})
		return
	}

	slots, err := a.Resolver.Resolve(c.Request.Context(), eventTypeID, date)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type createBookingReq struct {
	EventTypeID   string `json:"event_type_id" binding:"required"`
	AttendeeName  string `json:"attendee_name" binding:"required"`
	AttendeeEmail string `json:"attendee_email" binding:"required,email"`
	AttendeeNotes string `json:"attendee_notes"`
	StartTime     string `json:"start_time" binding:"required"` // RFC3339
	Timezone      string `json:"timezone"`
}

// POST /api/bookings (public)
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time (RFC3339)"})
		return
	}

	booking, err := a.BookingSvc.Book(c.Request.Context(), BookingRequest{
		EventTypeID:   req.EventTypeID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		AttendeeNotes: req.AttendeeNotes,
		StartTime:     start,
		Timezone:      req.Timezone,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// PUT /api/bookings/:id/cancel
func (a *App) CancelBookingHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	// body is optional
	_ = c.BindJSON(&req)

	booking, err := a.BookingSvc.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// PUT /api/bookings/:id/reschedule
func (a *App) RescheduleBookingHandler(c *gin.Context) {
	var req struct {
		StartTime string `json:"start_time" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time (RFC3339)"})
		return
	}

	booking, err := a.BookingSvc.Reschedule(c.Request.Context(), c.Param("id"), start)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GET /api/users/:id/bookings?status=confirmed&upcoming=true
func (a *App) ListBookingsHandler(c *gin.Context) {
	status := BookingStatus(c.DefaultQuery("status", string(BookingStatusConfirmed)))
	if status != BookingStatusConfirmed && status != BookingStatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be confirmed or cancelled"})
		return
	}

	var after *time.Time
	if c.Query("upcoming") == "true" {
		now := a.now()
		after = &now
	}

	bookings, err := a.Bookings.List(c.Request.Context(), c.Param("id"), status, after)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/users/:id/availability
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	rules, err := a.Rules.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": rules})
}

// POST /api/users/:id/availability
// Body is the complete weekly rule set; semantics are full replace.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	var req struct {
		Availability []AvailabilityRule `json:"availability"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules, err := a.Rules.Replace(c.Request.Context(), c.Param("id"), req.Availability)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": rules})
}

type overrideReq struct {
	Date        string  `json:"date"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	IsAvailable *bool   `json:"is_available" binding:"required"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
}

// POST /api/users/:id/overrides
// Accepts a single date or a {start_date, end_date} range; the range form
// expands to one override per day.
func (a *App) CreateOverrideHandler(c *gin.Context) {
	userID := c.Param("id")
	var req overrideReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	today := truncateToDate(a.now())

	if req.StartDate != "" || req.EndDate != "" {
		from, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date (YYYY-MM-DD)"})
			return
		}
		to, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date (YYYY-MM-DD)"})
			return
		}
		if to.Before(from) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
			return
		}
		if to.Before(today) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot set overrides in the past"})
			return
		}

		count, err := a.Overrides.UpsertRange(c.Request.Context(), userID, from, to, *req.IsAvailable)
		if err != nil {
			a.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date (YYYY-MM-DD)"})
		return
	}
	if date.Before(today) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot set overrides in the past"})
		return
	}

	override := &DateOverride{
		UserID:      userID,
		Date:        date,
		IsAvailable: *req.IsAvailable,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	if err := a.Overrides.Upsert(c.Request.Context(), override); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date_override": override})
}

// GET /api/users/:id/overrides?start_date=...&end_date=...
func (a *App) ListOverridesHandler(c *gin.Context) {
	var from, to *time.Time
	if s := c.Query("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		from = &t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		to = &t
	}

	overrides, err := a.Overrides.ListByUser(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date_overrides": overrides})
}

// DELETE /api/overrides/:id?user_id=...
func (a *App) DeleteOverrideHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if err := a.Overrides.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type eventTypeReq struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
	Duration    int    `json:"duration" binding:"required"`
	Color       string `json:"color"`
	Location    string `json:"location"`
	MeetingLink string `json:"meeting_link"`
	IsActive    *bool  `json:"is_active"`
}

// POST /api/users/:id/event-types
func (a *App) CreateEventTypeHandler(c *gin.Context) {
	var req eventTypeReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	et := &EventType{
		UserID:      c.Param("id"),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Duration:    req.Duration,
		Color:       req.Color,
		Location:    req.Location,
		MeetingLink: req.MeetingLink,
		IsActive:    active,
	}
	if err := a.EventTypes.Create(c.Request.Context(), et); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_type": et})
}

// GET /api/users/:id/event-types
func (a *App) ListEventTypesHandler(c *gin.Context) {
	eventTypes, err := a.EventTypes.ListByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_types": eventTypes})
}

// GET /api/users/:id/event-types/:slug (public)
// Resolves the booking-page identity; inactive event types are not exposed.
func (a *App) GetEventTypeBySlugHandler(c *gin.Context) {
	et, err := a.EventTypes.GetBySlug(c.Request.Context(), c.Param("id"), c.Param("slug"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if et == nil || !et.IsActive {
		c.JSON(http.StatusNotFound, gin.H{"error": "event type not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_type": et})
}

// GET /api/event-types/:id
func (a *App) GetEventTypeHandler(c *gin.Context) {
	et, err := a.EventTypes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if et == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event type not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_type": et})
}

// PUT /api/event-types/:id?user_id=...
func (a *App) UpdateEventTypeHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	var req eventTypeReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	et := &EventType{
		ID:          c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Duration:    req.Duration,
		Color:       req.Color,
		Location:    req.Location,
		MeetingLink: req.MeetingLink,
		IsActive:    active,
	}
	if err := a.EventTypes.Update(c.Request.Context(), et); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_type": et})
}

// DELETE /api/event-types/:id?user_id=...
func (a *App) DeleteEventTypeHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if err := a.EventTypes.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/calendar/auth?user_id=...
func (a *App) CalendarAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": a.Calendar.AuthURL(userID)})
}

// GET /oauth2callback
func (a *App) CalendarCallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	conn, err := a.Calendar.HandleCallback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "user_id": conn.UserID})
}

// DELETE /api/calendar?user_id=...
func (a *App) CalendarDisconnectHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}
	if err := a.Calendar.connections.Delete(c.Request.Context(), userID, "google"); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
