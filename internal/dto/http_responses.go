package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	Unauthenticated = "UNAUTHENTICATED"
	Forbidden       = "FORBIDDEN"

	EmailExists       = "EMAIL_EXISTS"
	InvalidCredential = "INVALID_CREDENTIALS"

	EventNotFound       = "EVENT_NOT_FOUND"
	EventFull           = "EVENT_FULL"
	PaymentInfoNotFound = "PAYMENT_INFO_NOT_FOUND"
	TicketNotFound      = "TICKET_NOT_FOUND"
	TicketAlreadyPaid   = "TICKET_ALREADY_PAID"
	PaymentNotFound     = "PAYMENT_NOT_FOUND"
	PaymentNotPending   = "PAYMENT_NOT_PENDING"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=attendee organizer admin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CreateEventRequest struct {
	Title               string          `json:"title" validate:"required,max=200"`
	Description         string          `json:"description" validate:"required"`
	Category            string          `json:"category" validate:"required,max=50"`
	Date                time.Time       `json:"date" validate:"required,future"`
	Location            string          `json:"location" validate:"required,max=200"`
	Price               decimal.Decimal `json:"price" validate:"required"`
	Capacity            int             `json:"capacity" validate:"required,positive"`
	TillNumber          string          `json:"till_number" validate:"required,max=20"`
	PaymentName         string          `json:"payment_name" validate:"required,max=100"`
	PaymentInstructions string          `json:"payment_instructions"`
	ImageURL            string          `json:"image_url" validate:"omitempty,url"`
}

type EventResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	Price       decimal.Decimal `json:"price"`
	Capacity    int             `json:"capacity"`
	ImageURL    string          `json:"image_url,omitempty"`
	Organizer   string          `json:"organizer,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type EventPaymentResponse struct {
	TillNumber          string `json:"till_number"`
	PaymentName         string `json:"payment_name"`
	PaymentInstructions string `json:"payment_instructions"`
}

type BookTicketRequest struct {
	Quantity int `json:"quantity" validate:"omitempty,positive"`
}

type BookTicketResponse struct {
	TicketID         int64           `json:"ticket_id"`
	BookingReference string          `json:"booking_reference"`
	EventTitle       string          `json:"event_title"`
	Quantity         int             `json:"quantity"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	PaymentStatus    string          `json:"payment_status"`
}

type SubmitPaymentRequest struct {
	PaymentMethod    string `json:"payment_method" validate:"omitempty,max=50"`
	PaymentReference string `json:"payment_reference" validate:"omitempty,max=100"`
}

type SubmitPaymentResponse struct {
	PaymentID     int64           `json:"payment_id"`
	TicketID      int64           `json:"ticket_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
}

type PendingPaymentResponse struct {
	PaymentID        int64           `json:"payment_id"`
	TicketID         int64           `json:"ticket_id"`
	EventTitle       string          `json:"event_title"`
	AttendeeName     string          `json:"attendee_name"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	CreatedAt        time.Time       `json:"created_at"`
}

type PaymentDecisionResponse struct {
	PaymentID        int64  `json:"payment_id"`
	Status           string `json:"status"`
	BookingReference string `json:"booking_reference"`
	PaymentStatus    string `json:"payment_status"`
	QRCodePath       string `json:"qr_code_path,omitempty"`
}

type TicketResponse struct {
	ID               int64           `json:"id"`
	EventTitle       string          `json:"event_title"`
	EventDate        time.Time       `json:"event_date"`
	EventLocation    string          `json:"event_location"`
	Quantity         int             `json:"quantity"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	BookingReference string          `json:"booking_reference"`
	PaymentStatus    string          `json:"payment_status"`
	QRCodePath       string          `json:"qr_code_path,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type DashboardEventResponse struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Date            time.Time       `json:"date"`
	TotalTickets    int             `json:"total_tickets"`
	PaidTickets     int             `json:"paid_tickets"`
	PendingPayments int             `json:"pending_payments"`
	Revenue         decimal.Decimal `json:"revenue"`
}

// PaymentNotification is the message published to RabbitMQ after a payment
// changes state; the consumer worker turns it into an attendee email.
type PaymentNotification struct {
	PaymentID        int64  `json:"payment_id"`
	TicketID         int64  `json:"ticket_id"`
	Status           string `json:"status"`
	EventTitle       string `json:"event_title"`
	BookingReference string `json:"booking_reference"`
	AttendeeEmail    string `json:"attendee_email"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func UnauthenticatedError(c *ginext.Context, desc string) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: Unauthenticated,
			Desc: desc,
		},
	})
}

func ForbiddenError(c *ginext.Context, desc string) {
	c.JSON(401, Response{
		Status: "error",
		Error: &Error{
			Code: Forbidden,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func ConflictError(c *ginext.Context, code, desc string) {
	c.JSON(409, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
