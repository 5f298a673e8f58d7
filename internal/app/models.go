package app

import "time"

type AvailabilityRule struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type DateOverride struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Date        time.Time `json:"date"`
	IsAvailable bool      `json:"is_available"`
	StartTime   *string   `json:"start_time,omitempty"`
	EndTime     *string   `json:"end_time,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type EventType struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Duration    int       `json:"duration"`
	Color       string    `json:"color,omitempty"`
	Location    string    `json:"location,omitempty"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID                 string        `json:"id"`
	EventTypeID        string        `json:"event_type_id"`
	UserID             string        `json:"user_id"`
	AttendeeName       string        `json:"attendee_name"`
	AttendeeEmail      string        `json:"attendee_email"`
	AttendeeNotes      string        `json:"attendee_notes,omitempty"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Timezone           string        `json:"timezone"`
	Status             BookingStatus `json:"status"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	GoogleEventID      string        `json:"google_event_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at,omitempty"`
	UpdatedAt          time.Time     `json:"updated_at,omitempty"`
}

type CalendarConnection struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Provider       string    `json:"provider"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`
	CalendarID     string    `json:"calendar_id,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
