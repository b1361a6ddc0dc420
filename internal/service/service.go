package service

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"tikozetu/internal/dto"
	"tikozetu/internal/qr"
	"tikozetu/internal/rabbit"
	"tikozetu/internal/repo"
	"tikozetu/internal/session"
	"tikozetu/pkg/bookingref"
)

type Service interface {
	Register(ctx *ginext.Context)
	Login(ctx *ginext.Context)
	Logout(ctx *ginext.Context)
	Profile(ctx *ginext.Context)

	GetAllEvents(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	GetEventPaymentInfo(ctx *ginext.Context)

	BookTicket(ctx *ginext.Context)
	SubmitPayment(ctx *ginext.Context)
	GetMyTickets(ctx *ginext.Context)

	GetPendingPayments(ctx *ginext.Context)
	ConfirmPayment(ctx *ginext.Context)
	RejectPayment(ctx *ginext.Context)
	GetDashboard(ctx *ginext.Context)
}

// Options carries the service settings that are not collaborators.
type Options struct {
	AppID      string
	CookieName string
	SessionTTL time.Duration
}

type service struct {
	repo     repo.Repository
	log      *zerolog.Logger
	rbt      rabbit.Publisher
	sessions session.Store
	qr       qr.Generator
	opts     Options
	newRef   func() (string, error)
}

func NewService(
	repository repo.Repository,
	logger *zerolog.Logger,
	rbt rabbit.Publisher,
	sessions session.Store,
	qrGen qr.Generator,
	opts Options,
) Service {
	return &service{
		repo:     repository,
		log:      logger,
		rbt:      rbt,
		sessions: sessions,
		qr:       qrGen,
		opts:     opts,
		newRef:   bookingref.New,
	}
}

// authFrom returns the auth context placed by the session middleware.
// Routes behind RequireAuth always have it; the nil path is a guard
// against wiring mistakes.
func authFrom(ctx *ginext.Context) *session.Auth {
	v, ok := ctx.Get(session.ContextKey)
	if !ok {
		return nil
	}
	auth, ok := v.(*session.Auth)
	if !ok {
		return nil
	}
	return auth
}

func (s *service) publishNotification(n dto.PaymentNotification) {
	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal payment notification")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).Int64("payment_id", n.PaymentID).Msg("failed to publish payment notification")
	}
}
