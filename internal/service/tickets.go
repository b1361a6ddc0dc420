package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"

	"tikozetu/internal/dto"
	"tikozetu/internal/model"
	"tikozetu/internal/monitoring"
	"tikozetu/internal/repo"
	"tikozetu/pkg/validator"
)

var refRetryStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    10 * time.Millisecond,
	Backoff:  2,
}

func (s *service) BookTicket(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Please login to book tickets")
		return
	}

	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	var req dto.BookTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx, dto.EventNotFound, "Event not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to get event for booking")
		dto.InternalServerError(ctx)
		return
	}

	ticket := &model.Ticket{
		EventID:       eventID,
		AttendeeID:    auth.UserID,
		Quantity:      quantity,
		TotalPrice:    event.Price.Mul(decimal.NewFromInt(int64(quantity))),
		PaymentStatus: model.TicketUnpaid,
	}

	// Reference collisions roll a fresh code and retry; any other failure
	// is surfaced as-is without burning attempts.
	var bookErr error
	err = retry.Do(func() error {
		ref, refErr := s.newRef()
		if refErr != nil {
			bookErr = refErr
			return nil
		}
		ticket.BookingReference = ref

		if _, txErr := s.repo.BookTicketTx(ctx.Request.Context(), ticket); txErr != nil {
			if errors.Is(txErr, repo.ErrDuplicateReference) {
				monitoring.ReferenceRetry()
				return txErr
			}
			bookErr = txErr
			return nil
		}
		bookErr = nil
		return nil
	}, refRetryStrategy)
	if err == nil {
		err = bookErr
	}

	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			dto.NotFoundError(ctx, dto.EventNotFound, "Event not found")
		case errors.Is(err, repo.ErrEventFull):
			dto.ConflictError(ctx, dto.EventFull, "Not enough capacity left for this event")
		default:
			s.log.Error().Err(err).Msg("failed to book ticket")
			dto.InternalServerError(ctx)
		}
		return
	}

	monitoring.TicketBooked()
	s.log.Info().
		Int64("ticket_id", ticket.ID).
		Str("booking_reference", ticket.BookingReference).
		Int64("event_id", eventID).
		Msg("ticket reserved")

	dto.SuccessCreatedResponse(ctx, dto.BookTicketResponse{
		TicketID:         ticket.ID,
		BookingReference: ticket.BookingReference,
		EventTitle:       event.Title,
		Quantity:         quantity,
		TotalPrice:       ticket.TotalPrice,
		PaymentStatus:    ticket.PaymentStatus,
	})
}

func (s *service) GetMyTickets(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Please login to view tickets")
		return
	}

	tickets, err := s.repo.GetTicketsByAttendee(ctx.Request.Context(), auth.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list tickets")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		item := dto.TicketResponse{
			ID:               t.ID,
			EventTitle:       t.EventTitle,
			EventDate:        t.EventDate,
			EventLocation:    t.EventLocation,
			Quantity:         t.Quantity,
			TotalPrice:       t.TotalPrice,
			BookingReference: t.BookingReference,
			PaymentStatus:    t.PaymentStatus,
			CreatedAt:        t.CreatedAt,
		}
		if t.QRCodePath != "" {
			item.QRCodePath = "/" + t.QRCodePath
		}
		resp = append(resp, item)
	}

	dto.SuccessResponse(ctx, resp)
}
