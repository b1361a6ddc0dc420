package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

const (
	TicketUnpaid  = "unpaid"
	TicketPending = "pending"
	TicketPaid    = "paid"
)

const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentRejected  = "rejected"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID          int64           `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Date        time.Time       `db:"date" json:"date"`
	Location    string          `db:"location" json:"location"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Capacity    int             `db:"capacity" json:"capacity"`
	OrganizerID int64           `db:"organizer_id" json:"organizer_id"`
	ImageURL    string          `db:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// EventPayment holds the manual payment instructions shown to attendees.
// One row per event, created together with the event.
type EventPayment struct {
	ID                  int64  `db:"id" json:"id"`
	EventID             int64  `db:"event_id" json:"event_id"`
	TillNumber          string `db:"till_number" json:"till_number"`
	PaymentName         string `db:"payment_name" json:"payment_name"`
	PaymentInstructions string `db:"payment_instructions" json:"payment_instructions"`
}

type Ticket struct {
	ID               int64           `db:"id" json:"id"`
	EventID          int64           `db:"event_id" json:"event_id"`
	AttendeeID       int64           `db:"attendee_id" json:"attendee_id"`
	Quantity         int             `db:"quantity" json:"quantity"`
	TotalPrice       decimal.Decimal `db:"total_price" json:"total_price"`
	BookingReference string          `db:"booking_reference" json:"booking_reference"`
	QRCodePath       string          `db:"qr_code_path" json:"qr_code_path,omitempty"`
	IsCheckedIn      bool            `db:"is_checked_in" json:"is_checked_in"`
	PaymentStatus    string          `db:"payment_status" json:"payment_status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

type Payment struct {
	ID               int64           `db:"id" json:"id"`
	TicketID         int64           `db:"ticket_id" json:"ticket_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	ConfirmedAt      *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

type EventWithOrganizer struct {
	Event
	OrganizerName string `json:"organizer"`
}

type TicketWithEvent struct {
	Ticket
	EventTitle    string    `json:"event_title"`
	EventDate     time.Time `json:"event_date"`
	EventLocation string    `json:"event_location"`
}

type PendingPayment struct {
	PaymentID        int64           `json:"payment_id"`
	TicketID         int64           `json:"ticket_id"`
	EventTitle       string          `json:"event_title"`
	AttendeeName     string          `json:"attendee_name"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentDetails joins a payment with its ticket, event and attendee.
// Confirm/reject load it once to authorize the acting organizer and to
// build the QR payload and the notification message.
type PaymentDetails struct {
	Payment
	BookingReference string `json:"booking_reference"`
	Quantity         int    `json:"quantity"`
	TicketStatus     string `json:"ticket_status"`
	EventID          int64  `json:"event_id"`
	EventTitle       string `json:"event_title"`
	OrganizerID      int64  `json:"organizer_id"`
	AttendeeID       int64  `json:"attendee_id"`
	AttendeeEmail    string `json:"attendee_email"`
}

type DashboardEvent struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Date            time.Time       `json:"date"`
	TotalTickets    int             `json:"total_tickets"`
	PaidTickets     int             `json:"paid_tickets"`
	PendingPayments int             `json:"pending_payments"`
	Revenue         decimal.Decimal `json:"revenue"`
}
