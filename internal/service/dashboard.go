package service

import (
	"github.com/wb-go/wbf/ginext"

	"tikozetu/internal/dto"
)

// GetDashboard returns per-event ticket and payment aggregates for the
// requesting organizer. Revenue sums the frozen total_price of paid
// tickets, so later price changes never distort what was collected.
func (s *service) GetDashboard(ctx *ginext.Context) {
	auth := authFrom(ctx)
	if auth == nil {
		dto.UnauthenticatedError(ctx, "Unauthorized")
		return
	}

	events, err := s.repo.GetOrganizerDashboard(ctx.Request.Context(), auth.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build dashboard")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.DashboardEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, dto.DashboardEventResponse{
			ID:              e.ID,
			Title:           e.Title,
			Date:            e.Date,
			TotalTickets:    e.TotalTickets,
			PaidTickets:     e.PaidTickets,
			PendingPayments: e.PendingPayments,
			Revenue:         e.Revenue,
		})
	}

	dto.SuccessResponse(ctx, resp)
}
