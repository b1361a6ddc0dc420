package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"tikozetu/internal/dto"
	"tikozetu/internal/model"
	"tikozetu/internal/repo"
	"tikozetu/pkg/validator"
)

const defaultPaymentInstructions = "Pay to the till number above and include your name as reference"

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, dto.EventResponse{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Category:    e.Category,
			Date:        e.Date,
			Location:    e.Location,
			Price:       e.Price,
			Capacity:    e.Capacity,
			ImageURL:    e.ImageURL,
			Organizer:   e.OrganizerName,
			CreatedAt:   e.CreatedAt,
		})
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Please login to create events")
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	instructions := req.PaymentInstructions
	if instructions == "" {
		instructions = defaultPaymentInstructions
	}

	event := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Location:    req.Location,
		Price:       req.Price,
		Capacity:    req.Capacity,
		OrganizerID: auth.UserID,
		ImageURL:    req.ImageURL,
	}
	paymentInfo := &model.EventPayment{
		TillNumber:          req.TillNumber,
		PaymentName:         req.PaymentName,
		PaymentInstructions: instructions,
	}

	id, err := s.repo.CreateEventTx(ctx.Request.Context(), event, paymentInfo)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event")
		dto.InternalServerError(ctx)
		return
	}
	event.ID = id

	s.log.Info().Int64("event_id", id).Int64("organizer_id", auth.UserID).Msg("event created")

	dto.SuccessCreatedResponse(ctx, dto.EventResponse{
		ID:          event.ID,
		Title:       event.Title,
		Description: event.Description,
		Category:    event.Category,
		Date:        event.Date,
		Location:    event.Location,
		Price:       event.Price,
		Capacity:    event.Capacity,
		ImageURL:    event.ImageURL,
		CreatedAt:   event.CreatedAt,
	})
}

func (s *service) GetEventPaymentInfo(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	info, err := s.repo.GetEventPayment(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrPaymentInfoMissing) {
			dto.NotFoundError(ctx, dto.PaymentInfoNotFound, "Payment information not found for this event")
			return
		}
		s.log.Error().Err(err).Msg("failed to get event payment info")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, dto.EventPaymentResponse{
		TillNumber:          info.TillNumber,
		PaymentName:         info.PaymentName,
		PaymentInstructions: info.PaymentInstructions,
	})
}
