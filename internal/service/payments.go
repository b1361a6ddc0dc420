package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"tikozetu/internal/dto"
	"tikozetu/internal/model"
	"tikozetu/internal/monitoring"
	"tikozetu/internal/qr"
	"tikozetu/internal/repo"
	"tikozetu/pkg/validator"
)

const defaultPaymentMethod = "MPESA"

func (s *service) SubmitPayment(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Please login to submit payment")
		return
	}

	ticketID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid ticket ID")
		return
	}

	var req dto.SubmitPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	method := req.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}

	payment, err := s.repo.SubmitPaymentTx(ctx.Request.Context(), ticketID, auth.UserID, method, req.PaymentReference)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrTicketNotFound):
			// Not-found also covers tickets owned by someone else.
			dto.NotFoundError(ctx, dto.TicketNotFound, "Ticket not found")
		case errors.Is(err, repo.ErrTicketAlreadyPaid):
			dto.ConflictError(ctx, dto.TicketAlreadyPaid, "Ticket has already been paid for")
		default:
			s.log.Error().Err(err).Msg("failed to submit payment")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.PaymentSubmitted()
	s.log.Info().
		Int64("payment_id", payment.ID).
		Int64("ticket_id", ticketID).
		Msg("payment submitted")

	if details, derr := s.repo.GetPaymentDetails(ctx.Request.Context(), payment.ID); derr != nil {
		s.log.Warn().Err(derr).Msg("failed to load payment details for notification")
	} else {
		s.publishNotification(dto.PaymentNotification{
			PaymentID:        details.ID,
			TicketID:         details.TicketID,
			Status:           model.PaymentPending,
			EventTitle:       details.EventTitle,
			BookingReference: details.BookingReference,
			AttendeeEmail:    details.AttendeeEmail,
		})
	}

	dto.SuccessResponse(ctx, dto.SubmitPaymentResponse{
		PaymentID:     payment.ID,
		TicketID:      ticketID,
		Amount:        payment.Amount,
		Status:        payment.Status,
		PaymentStatus: model.TicketPending,
	})
}

func (s *service) GetPendingPayments(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Unauthorized")
		return
	}

	payments, err := s.repo.GetPendingPaymentsByOrganizer(ctx.Request.Context(), auth.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list pending payments")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.PendingPaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.PendingPaymentResponse{
			PaymentID:        p.PaymentID,
			TicketID:         p.TicketID,
			EventTitle:       p.EventTitle,
			AttendeeName:     p.AttendeeName,
			Amount:           p.Amount,
			PaymentMethod:    p.PaymentMethod,
			PaymentReference: p.PaymentReference,
			CreatedAt:        p.CreatedAt,
		})
	}

	dto.SuccessResponse(ctx, resp)
}

// loadPaymentForDecision fetches the payment context and applies the
// organizer-or-admin ownership rule shared by confirm and reject.
// It writes the error response itself and returns nil when the caller
// should stop.
func (s *service) loadPaymentForDecision(ctx *ginext.Context) *model.PaymentDetails {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Unauthorized")
		return nil
	}

	paymentID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid payment ID")
		return nil
	}

	details, err := s.repo.GetPaymentDetails(ctx.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, repo.ErrPaymentNotFound) {
			dto.NotFoundError(ctx, dto.PaymentNotFound, "Payment not found")
			return nil
		}
		s.log.Error().Err(err).Msg("failed to get payment details")
		dto.InternalServerError(ctx)
		return nil
	}

	if details.OrganizerID != auth.UserID && auth.Role != model.RoleAdmin {
		dto.ForbiddenError(ctx, "You do not organize this event")
		return nil
	}

	if details.Status != model.PaymentPending {
		dto.ConflictError(ctx, dto.PaymentNotPending, "Payment has already been "+details.Status)
		return nil
	}

	return details
}

func (s *service) ConfirmPayment(ctx *ginext.Context) {
	details := s.loadPaymentForDecision(ctx)
	if details == nil {
		return
	}

	// Render the artifact before touching any state: a failed render must
	// leave the payment pending and the ticket without a QR path.
	payload := qr.Payload(s.opts.AppID, details.BookingReference, details.EventID, details.AttendeeID, details.Quantity)
	qrPath, err := s.qr.Generate(payload, details.BookingReference)
	if err != nil {
		s.log.Error().Err(err).Str("booking_reference", details.BookingReference).Msg("failed to render QR code")
		dto.InternalServerError(ctx)
		return
	}
	monitoring.QRGenerated()

	if _, err := s.repo.ConfirmPaymentTx(ctx.Request.Context(), details.ID, qrPath); err != nil {
		switch {
		case errors.Is(err, repo.ErrPaymentNotFound):
			dto.NotFoundError(ctx, dto.PaymentNotFound, "Payment not found")
		case errors.Is(err, repo.ErrPaymentNotPending):
			// Lost a race with a concurrent decision.
			dto.ConflictError(ctx, dto.PaymentNotPending, "Payment is no longer pending")
		default:
			s.log.Error().Err(err).Msg("failed to confirm payment")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.PaymentDecided(model.PaymentConfirmed)
	s.log.Info().
		Int64("payment_id", details.ID).
		Str("booking_reference", details.BookingReference).
		Msg("payment confirmed")

	s.publishNotification(dto.PaymentNotification{
		PaymentID:        details.ID,
		TicketID:         details.TicketID,
		Status:           model.PaymentConfirmed,
		EventTitle:       details.EventTitle,
		BookingReference: details.BookingReference,
		AttendeeEmail:    details.AttendeeEmail,
	})

	dto.SuccessResponse(ctx, dto.PaymentDecisionResponse{
		PaymentID:        details.ID,
		Status:           model.PaymentConfirmed,
		BookingReference: details.BookingReference,
		PaymentStatus:    model.TicketPaid,
		QRCodePath:       "/" + qrPath,
	})
}

func (s *service) RejectPayment(ctx *ginext.Context) {
	details := s.loadPaymentForDecision(ctx)
	if details == nil {
		return
	}

	if err := s.repo.RejectPaymentTx(ctx.Request.Context(), details.ID); err != nil {
		switch {
		case errors.Is(err, repo.ErrPaymentNotFound):
			dto.NotFoundError(ctx, dto.PaymentNotFound, "Payment not found")
		case errors.Is(err, repo.ErrPaymentNotPending):
			dto.ConflictError(ctx, dto.PaymentNotPending, "Payment is no longer pending")
		default:
			s.log.Error().Err(err).Msg("failed to reject payment")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.PaymentDecided(model.PaymentRejected)
	s.log.Info().
		Int64("payment_id", details.ID).
		Str("booking_reference", details.BookingReference).
		Msg("payment rejected")

	s.publishNotification(dto.PaymentNotification{
		PaymentID:        details.ID,
		TicketID:         details.TicketID,
		Status:           model.PaymentRejected,
		EventTitle:       details.EventTitle,
		BookingReference: details.BookingReference,
		AttendeeEmail:    details.AttendeeEmail,
	})

	dto.SuccessResponse(ctx, dto.PaymentDecisionResponse{
		PaymentID:        details.ID,
		Status:           model.PaymentRejected,
		BookingReference: details.BookingReference,
		PaymentStatus:    model.TicketUnpaid,
	})
}
