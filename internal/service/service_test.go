package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tikozetu/internal/dto"
	"tikozetu/internal/model"
	"tikozetu/internal/repo"
	"tikozetu/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRepo is an in-memory Repository tracking the state transitions the
// handlers drive. It mirrors the SQL layer's sentinel errors.
type fakeRepo struct {
	users    map[int64]*model.User
	byEmail  map[string]*model.User
	events   map[int64]*model.Event
	eventPay map[int64]*model.EventPayment
	tickets  map[int64]*model.Ticket
	payments map[int64]*model.Payment

	nextID       int64
	usedRefs     map[string]bool
	failRefs     map[string]bool
	confirmCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    map[int64]*model.User{},
		byEmail:  map[string]*model.User{},
		events:   map[int64]*model.Event{},
		eventPay: map[int64]*model.EventPayment{},
		tickets:  map[int64]*model.Ticket{},
		payments: map[int64]*model.Payment{},
		usedRefs: map[string]bool{},
		failRefs: map[string]bool{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return 0, repo.ErrDuplicateEmail
	}
	u.ID = f.id()
	f.users[u.ID] = u
	f.byEmail[u.Email] = u
	return u.ID, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) CreateEventTx(_ context.Context, e *model.Event, p *model.EventPayment) (int64, error) {
	e.ID = f.id()
	f.events[e.ID] = e
	p.EventID = e.ID
	f.eventPay[e.ID] = p
	return e.ID, nil
}

func (f *fakeRepo) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeRepo) GetAllEvents(_ context.Context) ([]model.EventWithOrganizer, error) {
	out := make([]model.EventWithOrganizer, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, model.EventWithOrganizer{Event: *e})
	}
	return out, nil
}

func (f *fakeRepo) GetEventPayment(_ context.Context, eventID int64) (*model.EventPayment, error) {
	p, ok := f.eventPay[eventID]
	if !ok {
		return nil, repo.ErrPaymentInfoMissing
	}
	return p, nil
}

func (f *fakeRepo) BookTicketTx(_ context.Context, t *model.Ticket) (int64, error) {
	if f.failRefs[t.BookingReference] || f.usedRefs[t.BookingReference] {
		return 0, repo.ErrDuplicateReference
	}
	e, ok := f.events[t.EventID]
	if !ok {
		return 0, repo.ErrEventNotFound
	}
	booked := 0
	for _, existing := range f.tickets {
		if existing.EventID == t.EventID {
			booked += existing.Quantity
		}
	}
	if booked+t.Quantity > e.Capacity {
		return 0, repo.ErrEventFull
	}
	t.ID = f.id()
	f.usedRefs[t.BookingReference] = true
	f.tickets[t.ID] = t
	return t.ID, nil
}

func (f *fakeRepo) GetTicketsByAttendee(_ context.Context, attendeeID int64) ([]model.TicketWithEvent, error) {
	var out []model.TicketWithEvent
	for _, t := range f.tickets {
		if t.AttendeeID != attendeeID {
			continue
		}
		item := model.TicketWithEvent{Ticket: *t}
		if e, ok := f.events[t.EventID]; ok {
			item.EventTitle = e.Title
			item.EventDate = e.Date
			item.EventLocation = e.Location
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepo) SubmitPaymentTx(_ context.Context, ticketID, attendeeID int64, method, reference string) (*model.Payment, error) {
	t, ok := f.tickets[ticketID]
	if !ok || t.AttendeeID != attendeeID {
		return nil, repo.ErrTicketNotFound
	}
	if t.PaymentStatus == model.TicketPaid {
		return nil, repo.ErrTicketAlreadyPaid
	}
	p := &model.Payment{
		ID:               f.id(),
		TicketID:         ticketID,
		Amount:           t.TotalPrice,
		PaymentMethod:    method,
		PaymentReference: reference,
		Status:           model.PaymentPending,
		CreatedAt:        time.Now(),
	}
	f.payments[p.ID] = p
	t.PaymentStatus = model.TicketPending
	return p, nil
}

func (f *fakeRepo) GetPaymentDetails(_ context.Context, paymentID int64) (*model.PaymentDetails, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, repo.ErrPaymentNotFound
	}
	t := f.tickets[p.TicketID]
	e := f.events[t.EventID]
	var email string
	if u, ok := f.users[t.AttendeeID]; ok {
		email = u.Email
	}
	return &model.PaymentDetails{
		Payment:          *p,
		BookingReference: t.BookingReference,
		Quantity:         t.Quantity,
		TicketStatus:     t.PaymentStatus,
		EventID:          e.ID,
		EventTitle:       e.Title,
		OrganizerID:      e.OrganizerID,
		AttendeeID:       t.AttendeeID,
		AttendeeEmail:    email,
	}, nil
}

func (f *fakeRepo) GetPendingPaymentsByOrganizer(_ context.Context, organizerID int64) ([]model.PendingPayment, error) {
	var out []model.PendingPayment
	for _, p := range f.payments {
		if p.Status != model.PaymentPending {
			continue
		}
		t := f.tickets[p.TicketID]
		e := f.events[t.EventID]
		if e.OrganizerID != organizerID {
			continue
		}
		out = append(out, model.PendingPayment{
			PaymentID:  p.ID,
			TicketID:   p.TicketID,
			EventTitle: e.Title,
			Amount:     p.Amount,
		})
	}
	return out, nil
}

func (f *fakeRepo) ConfirmPaymentTx(_ context.Context, paymentID int64, qrCodePath string) (time.Time, error) {
	f.confirmCalls++
	p, ok := f.payments[paymentID]
	if !ok {
		return time.Time{}, repo.ErrPaymentNotFound
	}
	if p.Status != model.PaymentPending {
		return time.Time{}, repo.ErrPaymentNotPending
	}
	now := time.Now()
	p.Status = model.PaymentConfirmed
	p.ConfirmedAt = &now
	t := f.tickets[p.TicketID]
	t.PaymentStatus = model.TicketPaid
	t.QRCodePath = qrCodePath
	return now, nil
}

func (f *fakeRepo) RejectPaymentTx(_ context.Context, paymentID int64) error {
	p, ok := f.payments[paymentID]
	if !ok {
		return repo.ErrPaymentNotFound
	}
	if p.Status != model.PaymentPending {
		return repo.ErrPaymentNotPending
	}
	p.Status = model.PaymentRejected
	f.tickets[p.TicketID].PaymentStatus = model.TicketUnpaid
	return nil
}

func (f *fakeRepo) GetOrganizerDashboard(_ context.Context, organizerID int64) ([]model.DashboardEvent, error) {
	var out []model.DashboardEvent
	for _, e := range f.events {
		if e.OrganizerID != organizerID {
			continue
		}
		row := model.DashboardEvent{ID: e.ID, Title: e.Title, Date: e.Date, Revenue: decimal.Zero}
		for _, t := range f.tickets {
			if t.EventID != e.ID {
				continue
			}
			row.TotalTickets += t.Quantity
			if t.PaymentStatus == model.TicketPaid {
				row.PaidTickets += t.Quantity
				row.Revenue = row.Revenue.Add(t.TotalPrice)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeRepo) MigrateUp(string) error   { return nil }
func (f *fakeRepo) MigrateDown(string) error { return nil }

type fakePublisher struct {
	messages [][]byte
}

func (f *fakePublisher) Publish(message []byte) error {
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakePublisher) lastNotification(t *testing.T) dto.PaymentNotification {
	t.Helper()
	require.NotEmpty(t, f.messages)
	var n dto.PaymentNotification
	require.NoError(t, json.Unmarshal(f.messages[len(f.messages)-1], &n))
	return n
}

type fakeSessions struct {
	store map[string]session.Auth
	next  int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{store: map[string]session.Auth{}}
}

func (f *fakeSessions) Create(_ context.Context, auth session.Auth) (string, error) {
	f.next++
	token := fmt.Sprintf("token-%d", f.next)
	f.store[token] = auth
	return token, nil
}

func (f *fakeSessions) Get(_ context.Context, token string) (*session.Auth, error) {
	auth, ok := f.store[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	return &auth, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	delete(f.store, token)
	return nil
}

type fakeQR struct {
	payloads []string
	err      error
}

func (f *fakeQR) Generate(payload, bookingReference string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, payload)
	return "static/qrcodes/" + bookingReference + ".png", nil
}

type fixture struct {
	repo     *fakeRepo
	rbt      *fakePublisher
	sessions *fakeSessions
	qr       *fakeQR
	svc      *service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	f := &fixture{
		repo:     newFakeRepo(),
		rbt:      &fakePublisher{},
		sessions: newFakeSessions(),
		qr:       &fakeQR{},
	}
	svc := NewService(f.repo, &log, f.rbt, f.sessions, f.qr, Options{
		AppID:      "TikoZetu",
		CookieName: session.CookieName,
		SessionTTL: time.Hour,
	})
	f.svc = svc.(*service)
	return f
}

func (f *fixture) addUser(t *testing.T, name, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	_, err = f.repo.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (f *fixture) addEvent(t *testing.T, organizerID int64, price string, capacity int) *model.Event {
	t.Helper()
	e := &model.Event{
		Title:       "Nairobi Jazz Night",
		Description: "Live jazz",
		Category:    "music",
		Date:        time.Now().Add(48 * time.Hour),
		Location:    "Nairobi",
		Price:       decimal.RequireFromString(price),
		Capacity:    capacity,
		OrganizerID: organizerID,
	}
	_, err := f.repo.CreateEventTx(context.Background(), e, &model.EventPayment{
		TillNumber:  "123456",
		PaymentName: "Jazz Events Ltd",
	})
	require.NoError(t, err)
	return e
}

func newRequest(t *testing.T, method string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(method, "/", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func asAuth(c *gin.Context, u *model.User) {
	c.Set(session.ContextKey, &session.Auth{UserID: u.ID, Name: u.Name, Role: u.Role})
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Error  *dto.Error      `json:"error"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return dto.Response{Status: envelope.Status, Error: envelope.Error}
}

func TestRegisterDefaultsToAttendee(t *testing.T) {
	f := newFixture(t)
	c, w := newRequest(t, http.MethodPost, dto.RegisterRequest{
		Name:     "Amina",
		Email:    "amina@example.com",
		Password: "secret123",
	})

	f.svc.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var user dto.UserResponse
	decodeResponse(t, w, &user)
	assert.Equal(t, model.RoleAttendee, user.Role)

	stored := f.repo.byEmail["amina@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)

	c, w := newRequest(t, http.MethodPost, dto.RegisterRequest{
		Name:     "Other",
		Email:    "amina@example.com",
		Password: "different1",
	})

	f.svc.Register(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.EmailExists, resp.Error.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)

	c, w := newRequest(t, http.MethodPost, dto.LoginRequest{
		Email:    "amina@example.com",
		Password: "wrongpass",
	})

	f.svc.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.sessions.store)
}

func TestLoginCreatesSession(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleOrganizer)

	c, w := newRequest(t, http.MethodPost, dto.LoginRequest{
		Email:    "amina@example.com",
		Password: "secret123",
	})

	f.svc.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.sessions.store, 1)
	for _, auth := range f.sessions.store {
		assert.Equal(t, u.ID, auth.UserID)
		assert.Equal(t, model.RoleOrganizer, auth.Role)
	}
	assert.Contains(t, w.Header().Get("Set-Cookie"), session.CookieName+"=")
}

func TestBookTicketComputesTotalPrice(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "250.50", 100)

	c, w := newRequest(t, http.MethodPost, dto.BookTicketRequest{Quantity: 3})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(event.ID)}}
	asAuth(c, attendee)

	f.svc.BookTicket(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.BookTicketResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.TotalPrice.Equal(decimal.RequireFromString("751.50")),
		"total price %s", resp.TotalPrice)
	assert.Equal(t, model.TicketUnpaid, resp.PaymentStatus)
	assert.Len(t, resp.BookingReference, 10)

	stored := f.repo.tickets[resp.TicketID]
	require.NotNil(t, stored)
	assert.True(t, stored.TotalPrice.Equal(decimal.RequireFromString("751.50")))
}

func TestBookTicketDefaultsQuantityToOne(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(event.ID)}}
	asAuth(c, attendee)

	f.svc.BookTicket(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.BookTicketResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, 1, resp.Quantity)
}

func TestBookTicketEventFull(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 2)

	c, w := newRequest(t, http.MethodPost, dto.BookTicketRequest{Quantity: 3})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(event.ID)}}
	asAuth(c, attendee)

	f.svc.BookTicket(c)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.EventFull, resp.Error.Code)
	assert.Empty(t, f.repo.tickets)
}

func TestBookTicketRetriesReferenceCollision(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)

	refs := []string{"COLLIDE001", "FRESH00002"}
	f.repo.failRefs["COLLIDE001"] = true
	f.svc.newRef = func() (string, error) {
		ref := refs[0]
		if len(refs) > 1 {
			refs = refs[1:]
		}
		return ref, nil
	}

	c, w := newRequest(t, http.MethodPost, dto.BookTicketRequest{Quantity: 1})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(event.ID)}}
	asAuth(c, attendee)

	f.svc.BookTicket(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.BookTicketResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, "FRESH00002", resp.BookingReference)
}

func TestBookTicketGivesUpAfterExhaustedRetries(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)

	f.repo.failRefs["COLLIDE001"] = true
	f.svc.newRef = func() (string, error) { return "COLLIDE001", nil }

	c, w := newRequest(t, http.MethodPost, dto.BookTicketRequest{Quantity: 1})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(event.ID)}}
	asAuth(c, attendee)

	f.svc.BookTicket(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.repo.tickets)
}

// bookTicket seeds a reserved ticket directly through the repo, skipping
// the HTTP layer.
func (f *fixture) bookTicket(t *testing.T, event *model.Event, attendee *model.User, quantity int, ref string) *model.Ticket {
	t.Helper()
	ticket := &model.Ticket{
		EventID:          event.ID,
		AttendeeID:       attendee.ID,
		Quantity:         quantity,
		TotalPrice:       event.Price.Mul(decimal.NewFromInt(int64(quantity))),
		BookingReference: ref,
		PaymentStatus:    model.TicketUnpaid,
	}
	_, err := f.repo.BookTicketTx(context.Background(), ticket)
	require.NoError(t, err)
	return ticket
}

func (f *fixture) submitPayment(t *testing.T, ticket *model.Ticket, attendee *model.User) *model.Payment {
	t.Helper()
	p, err := f.repo.SubmitPaymentTx(context.Background(), ticket.ID, attendee.ID, "MPESA", "QFC12345")
	require.NoError(t, err)
	return p
}

func TestSubmitPaymentMarksTicketPending(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 2, "ABCDEF0001")

	c, w := newRequest(t, http.MethodPost, dto.SubmitPaymentRequest{PaymentReference: "QFC12345"})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(ticket.ID)}}
	asAuth(c, attendee)

	f.svc.SubmitPayment(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.SubmitPaymentResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, model.PaymentPending, resp.Status)
	assert.Equal(t, model.TicketPending, resp.PaymentStatus)
	assert.Equal(t, model.TicketPending, ticket.PaymentStatus)

	n := f.rbt.lastNotification(t)
	assert.Equal(t, model.PaymentPending, n.Status)
	assert.Equal(t, "amina@example.com", n.AttendeeEmail)
}

func TestSubmitPaymentDefaultsMethod(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")

	c, w := newRequest(t, http.MethodPost, dto.SubmitPaymentRequest{})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(ticket.ID)}}
	asAuth(c, attendee)

	f.svc.SubmitPayment(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.SubmitPaymentResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, "MPESA", f.repo.payments[resp.PaymentID].PaymentMethod)
}

func TestSubmitPaymentForeignTicketIsNotFound(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	other := f.addUser(t, "Juma", "juma@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")

	c, w := newRequest(t, http.MethodPost, dto.SubmitPaymentRequest{})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(ticket.ID)}}
	asAuth(c, other)

	f.svc.SubmitPayment(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.TicketUnpaid, ticket.PaymentStatus)
}

func TestSubmitPaymentAlreadyPaid(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	ticket.PaymentStatus = model.TicketPaid

	c, w := newRequest(t, http.MethodPost, dto.SubmitPaymentRequest{})
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(ticket.ID)}}
	asAuth(c, attendee)

	f.svc.SubmitPayment(c)

	require.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.TicketAlreadyPaid, resp.Error.Code)
}

func TestConfirmPaymentIssuesQRCode(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 2, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, organizer)

	f.svc.ConfirmPayment(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.PaymentDecisionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, model.PaymentConfirmed, resp.Status)
	assert.Equal(t, model.TicketPaid, resp.PaymentStatus)
	assert.Equal(t, "/static/qrcodes/ABCDEF0001.png", resp.QRCodePath)

	assert.Equal(t, model.TicketPaid, ticket.PaymentStatus)
	assert.Equal(t, "static/qrcodes/ABCDEF0001.png", ticket.QRCodePath)
	require.NotNil(t, payment.ConfirmedAt)

	require.Len(t, f.qr.payloads, 1)
	expected := fmt.Sprintf("TikoZetu|ABCDEF0001|%d|%d|2", event.ID, attendee.ID)
	assert.Equal(t, expected, f.qr.payloads[0])

	n := f.rbt.lastNotification(t)
	assert.Equal(t, model.PaymentConfirmed, n.Status)
}

func TestConfirmPaymentForeignOrganizer(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	intruder := f.addUser(t, "Eve", "eve@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, intruder)

	f.svc.ConfirmPayment(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Empty(t, f.qr.payloads)
}

func TestConfirmPaymentAdminOverride(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	admin := f.addUser(t, "Root", "admin@example.com", "secret123", model.RoleAdmin)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, admin)

	f.svc.ConfirmPayment(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.PaymentConfirmed, payment.Status)
}

func TestConfirmPaymentTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, organizer)
	f.svc.ConfirmPayment(c)
	require.Equal(t, http.StatusOK, w.Code)

	c2, w2 := newRequest(t, http.MethodPost, nil)
	c2.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c2, organizer)
	f.svc.ConfirmPayment(c2)

	require.Equal(t, http.StatusConflict, w2.Code)
	resp := decodeResponse(t, w2, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.PaymentNotPending, resp.Error.Code)
	assert.Equal(t, 1, f.repo.confirmCalls)
}

func TestConfirmPaymentQRFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	f.qr.err = errors.New("disk full")

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, organizer)

	f.svc.ConfirmPayment(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Equal(t, model.TicketPending, ticket.PaymentStatus)
	assert.Empty(t, ticket.QRCodePath)
	assert.Zero(t, f.repo.confirmCalls)
}

func TestRejectPaymentAllowsResubmission(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	payment := f.submitPayment(t, ticket, attendee)

	c, w := newRequest(t, http.MethodPost, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprint(payment.ID)}}
	asAuth(c, organizer)

	f.svc.RejectPayment(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.PaymentDecisionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, model.PaymentRejected, resp.Status)
	assert.Equal(t, model.TicketUnpaid, resp.PaymentStatus)
	assert.Equal(t, model.TicketUnpaid, ticket.PaymentStatus)

	n := f.rbt.lastNotification(t)
	assert.Equal(t, model.PaymentRejected, n.Status)

	// The attendee can try again with a corrected reference.
	c2, w2 := newRequest(t, http.MethodPost, dto.SubmitPaymentRequest{PaymentReference: "QFC99999"})
	c2.Params = gin.Params{{Key: "id", Value: fmt.Sprint(ticket.ID)}}
	asAuth(c2, attendee)

	f.svc.SubmitPayment(c2)

	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, model.TicketPending, ticket.PaymentStatus)
}

func TestGetMyTicketsPrefixesQRPath(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)
	ticket := f.bookTicket(t, event, attendee, 1, "ABCDEF0001")
	ticket.PaymentStatus = model.TicketPaid
	ticket.QRCodePath = "static/qrcodes/ABCDEF0001.png"

	c, w := newRequest(t, http.MethodGet, nil)
	asAuth(c, attendee)

	f.svc.GetMyTickets(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []dto.TicketResponse
	decodeResponse(t, w, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "/static/qrcodes/ABCDEF0001.png", resp[0].QRCodePath)
}

func TestGetDashboardRevenueUsesFrozenPrices(t *testing.T) {
	f := newFixture(t)
	organizer := f.addUser(t, "Org", "org@example.com", "secret123", model.RoleOrganizer)
	attendee := f.addUser(t, "Amina", "amina@example.com", "secret123", model.RoleAttendee)
	event := f.addEvent(t, organizer.ID, "100", 100)

	paid := f.bookTicket(t, event, attendee, 2, "ABCDEF0001")
	paid.PaymentStatus = model.TicketPaid
	f.bookTicket(t, event, attendee, 1, "ABCDEF0002")

	// A later price change must not affect revenue from settled tickets.
	event.Price = decimal.RequireFromString("500")

	c, w := newRequest(t, http.MethodGet, nil)
	asAuth(c, organizer)

	f.svc.GetDashboard(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp []dto.DashboardEventResponse
	decodeResponse(t, w, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, 3, resp[0].TotalTickets)
	assert.Equal(t, 2, resp[0].PaidTickets)
	assert.True(t, resp[0].Revenue.Equal(decimal.RequireFromString("200")),
		"revenue %s", resp[0].Revenue)
}
