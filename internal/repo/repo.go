package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"tikozetu/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrEventNotFound      = errors.New("event not found")
	ErrEventFull          = errors.New("event is full")
	ErrPaymentInfoMissing = errors.New("payment info not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrTicketAlreadyPaid  = errors.New("ticket already paid")
	ErrDuplicateReference = errors.New("duplicate booking reference")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentNotPending  = errors.New("payment is not pending")
)

type Repository interface {
	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	CreateEventTx(ctx context.Context, e *model.Event, p *model.EventPayment) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.EventWithOrganizer, error)
	GetEventPayment(ctx context.Context, eventID int64) (*model.EventPayment, error)

	BookTicketTx(ctx context.Context, t *model.Ticket) (int64, error)
	GetTicketsByAttendee(ctx context.Context, attendeeID int64) ([]model.TicketWithEvent, error)

	SubmitPaymentTx(ctx context.Context, ticketID, attendeeID int64, method, reference string) (*model.Payment, error)
	GetPaymentDetails(ctx context.Context, paymentID int64) (*model.PaymentDetails, error)
	GetPendingPaymentsByOrganizer(ctx context.Context, organizerID int64) ([]model.PendingPayment, error)
	ConfirmPaymentTx(ctx context.Context, paymentID int64, qrCodePath string) (time.Time, error)
	RejectPaymentTx(ctx context.Context, paymentID int64) error

	GetOrganizerDashboard(ctx context.Context, organizerID int64) ([]model.DashboardEvent, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraint
}

func (r *repository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	row := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.PasswordHash, u.Role)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return u.ID, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`
	row := r.db.QueryRowContext(ctx, query, email)

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

func (r *repository) CreateEventTx(ctx context.Context, e *model.Event, p *model.EventPayment) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO events (title, description, category, date, location, price, capacity, organizer_id, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, e.Title, e.Description, e.Category, e.Date, e.Location, e.Price, e.Capacity, e.OrganizerID, e.ImageURL).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO event_payments (event_id, till_number, payment_name, payment_instructions)
		VALUES ($1, $2, $3, $4)
	`, id, p.TillNumber, p.PaymentName, p.PaymentInstructions)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to insert event payment info: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `
		SELECT id, title, description, category, date, location, price, capacity, organizer_id, image_url, created_at
		FROM events WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var e model.Event
	if err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Location,
		&e.Price, &e.Capacity, &e.OrganizerID, &e.ImageURL, &e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.EventWithOrganizer, error) {
	query := `
		SELECT e.id, e.title, e.description, e.category, e.date, e.location,
		       e.price, e.capacity, e.organizer_id, e.image_url, e.created_at,
		       u.name
		FROM events e
		JOIN users u ON u.id = e.organizer_id
		ORDER BY e.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.EventWithOrganizer
	for rows.Next() {
		var e model.EventWithOrganizer
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Location,
			&e.Price, &e.Capacity, &e.OrganizerID, &e.ImageURL, &e.CreatedAt,
			&e.OrganizerName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

func (r *repository) GetEventPayment(ctx context.Context, eventID int64) (*model.EventPayment, error) {
	query := `
		SELECT id, event_id, till_number, payment_name, payment_instructions
		FROM event_payments WHERE event_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, eventID)

	var p model.EventPayment
	if err := row.Scan(&p.ID, &p.EventID, &p.TillNumber, &p.PaymentName, &p.PaymentInstructions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentInfoMissing
		}
		return nil, fmt.Errorf("failed to get event payment info: %w", err)
	}
	return &p, nil
}

// BookTicketTx inserts a ticket while holding a row lock on the event, so
// the capacity check and the insert see a consistent count. A unique
// violation on booking_reference surfaces as ErrDuplicateReference for the
// caller's retry loop.
func (r *repository) BookTicketTx(ctx context.Context, t *model.Ticket) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var capacity int
	err = tx.QueryRowContext(ctx, `
		SELECT capacity FROM events WHERE id = $1 FOR UPDATE
	`, t.EventID).Scan(&capacity)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to lock event: %w", err)
	}

	var booked int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM tickets WHERE event_id = $1
	`, t.EventID).Scan(&booked)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to count booked tickets: %w", err)
	}

	if booked+t.Quantity > capacity {
		_ = tx.Rollback()
		return 0, ErrEventFull
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO tickets (event_id, attendee_id, quantity, total_price, booking_reference, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, t.EventID, t.AttendeeID, t.Quantity, t.TotalPrice, t.BookingReference, t.PaymentStatus).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err, "tickets_booking_reference_key") {
			return 0, ErrDuplicateReference
		}
		return 0, fmt.Errorf("failed to insert ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.ID = id
	return id, nil
}

func (r *repository) GetTicketsByAttendee(ctx context.Context, attendeeID int64) ([]model.TicketWithEvent, error) {
	query := `
		SELECT t.id, t.event_id, t.attendee_id, t.quantity, t.total_price,
		       t.booking_reference, t.qr_code_path, t.is_checked_in, t.payment_status, t.created_at,
		       e.title, e.date, e.location
		FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.attendee_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.TicketWithEvent
	for rows.Next() {
		var t model.TicketWithEvent
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.AttendeeID, &t.Quantity, &t.TotalPrice,
			&t.BookingReference, &t.QRCodePath, &t.IsCheckedIn, &t.PaymentStatus, &t.CreatedAt,
			&t.EventTitle, &t.EventDate, &t.EventLocation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// SubmitPaymentTx records a payment proof and moves the ticket to pending
// within one transaction. The attendee filter doubles as the ownership
// check: a ticket that exists but belongs to someone else reads as not
// found, so ticket existence never leaks across accounts.
func (r *repository) SubmitPaymentTx(ctx context.Context, ticketID, attendeeID int64, method, reference string) (*model.Payment, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var payment model.Payment
	var ticketStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT total_price, payment_status FROM tickets
		WHERE id = $1 AND attendee_id = $2
		FOR UPDATE
	`, ticketID, attendeeID).Scan(&payment.Amount, &ticketStatus)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}

	if ticketStatus == model.TicketPaid {
		_ = tx.Rollback()
		return nil, ErrTicketAlreadyPaid
	}

	payment.TicketID = ticketID
	payment.PaymentMethod = method
	payment.PaymentReference = reference
	payment.Status = model.PaymentPending

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (ticket_id, amount, payment_method, payment_reference, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, payment.TicketID, payment.Amount, payment.PaymentMethod, payment.PaymentReference, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets SET payment_status = $1 WHERE id = $2
	`, model.TicketPending, ticketID)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &payment, nil
}

func (r *repository) GetPaymentDetails(ctx context.Context, paymentID int64) (*model.PaymentDetails, error) {
	query := `
		SELECT p.id, p.ticket_id, p.amount, p.payment_method, p.payment_reference, p.status, p.created_at, p.confirmed_at,
		       t.booking_reference, t.quantity, t.payment_status,
		       e.id, e.title, e.organizer_id,
		       u.id, u.email
		FROM payments p
		JOIN tickets t ON t.id = p.ticket_id
		JOIN events e ON e.id = t.event_id
		JOIN users u ON u.id = t.attendee_id
		WHERE p.id = $1
	`
	row := r.db.QueryRowContext(ctx, query, paymentID)

	var d model.PaymentDetails
	if err := row.Scan(
		&d.ID, &d.TicketID, &d.Amount, &d.PaymentMethod, &d.PaymentReference, &d.Status, &d.CreatedAt, &d.ConfirmedAt,
		&d.BookingReference, &d.Quantity, &d.TicketStatus,
		&d.EventID, &d.EventTitle, &d.OrganizerID,
		&d.AttendeeID, &d.AttendeeEmail,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment details: %w", err)
	}
	return &d, nil
}

func (r *repository) GetPendingPaymentsByOrganizer(ctx context.Context, organizerID int64) ([]model.PendingPayment, error) {
	query := `
		SELECT p.id, p.ticket_id, p.amount, p.payment_method, p.payment_reference, p.created_at,
		       e.title, u.name
		FROM payments p
		JOIN tickets t ON t.id = p.ticket_id
		JOIN events e ON e.id = t.event_id
		JOIN users u ON u.id = t.attendee_id
		WHERE e.organizer_id = $1 AND p.status = $2
		ORDER BY p.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, organizerID, model.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending payments: %w", err)
	}
	defer rows.Close()

	var payments []model.PendingPayment
	for rows.Next() {
		var p model.PendingPayment
		if err := rows.Scan(
			&p.PaymentID, &p.TicketID, &p.Amount, &p.PaymentMethod, &p.PaymentReference, &p.CreatedAt,
			&p.EventTitle, &p.AttendeeName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending payment: %w", err)
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// ConfirmPaymentTx flips a pending payment to confirmed and its ticket to
// paid, storing the already-rendered QR path, in one commit. The pending
// check runs under the row lock, so concurrent confirms cannot
// double-apply.
func (r *repository) ConfirmPaymentTx(ctx context.Context, paymentID int64, qrCodePath string) (time.Time, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var status string
	var ticketID int64
	err = tx.QueryRowContext(ctx, `
		SELECT status, ticket_id FROM payments WHERE id = $1 FOR UPDATE
	`, paymentID).Scan(&status, &ticketID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrPaymentNotFound
		}
		return time.Time{}, fmt.Errorf("failed to lock payment: %w", err)
	}

	if status != model.PaymentPending {
		_ = tx.Rollback()
		return time.Time{}, ErrPaymentNotPending
	}

	confirmedAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = $1, confirmed_at = $2 WHERE id = $3
	`, model.PaymentConfirmed, confirmedAt, paymentID)
	if err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("failed to confirm payment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets SET payment_status = $1, qr_code_path = $2 WHERE id = $3
	`, model.TicketPaid, qrCodePath, ticketID)
	if err != nil {
		_ = tx.Rollback()
		return time.Time{}, fmt.Errorf("failed to mark ticket paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return confirmedAt, nil
}

func (r *repository) RejectPaymentTx(ctx context.Context, paymentID int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var status string
	var ticketID int64
	err = tx.QueryRowContext(ctx, `
		SELECT status, ticket_id FROM payments WHERE id = $1 FOR UPDATE
	`, paymentID).Scan(&status, &ticketID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to lock payment: %w", err)
	}

	if status != model.PaymentPending {
		_ = tx.Rollback()
		return ErrPaymentNotPending
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = $1 WHERE id = $2
	`, model.PaymentRejected, paymentID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to reject payment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tickets SET payment_status = $1 WHERE id = $2
	`, model.TicketUnpaid, ticketID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to revert ticket status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *repository) GetOrganizerDashboard(ctx context.Context, organizerID int64) ([]model.DashboardEvent, error) {
	query := `
		SELECT e.id, e.title, e.date,
		       COALESCE(SUM(t.quantity), 0),
		       COALESCE(SUM(t.quantity) FILTER (WHERE t.payment_status = 'paid'), 0),
		       COALESCE((
		           SELECT COUNT(*) FROM payments p
		           JOIN tickets pt ON pt.id = p.ticket_id
		           WHERE pt.event_id = e.id AND p.status = 'pending'
		       ), 0),
		       COALESCE(SUM(t.total_price) FILTER (WHERE t.payment_status = 'paid'), 0)
		FROM events e
		LEFT JOIN tickets t ON t.event_id = e.id
		WHERE e.organizer_id = $1
		GROUP BY e.id, e.title, e.date
		ORDER BY e.date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	defer rows.Close()

	var events []model.DashboardEvent
	for rows.Next() {
		var d model.DashboardEvent
		if err := rows.Scan(
			&d.ID, &d.Title, &d.Date,
			&d.TotalTickets, &d.PaidTickets, &d.PendingPayments, &d.Revenue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
		}
		events = append(events, d)
	}

	return events, rows.Err()
}
