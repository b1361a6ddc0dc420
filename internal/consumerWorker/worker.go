package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"tikozetu/internal/dto"
	"tikozetu/internal/mailer"
	"tikozetu/internal/rabbit"
)

// Reader consumes payment notifications published by the HTTP services and
// delivers the matching attendee emails. Email delivery stays off the
// request path this way; a failed send is logged and the message dropped,
// never requeued into a retry storm.
type Reader struct {
	RMQ    *rabbit.Client
	mailer *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, m *mailer.Mailer) *Reader {
	return &Reader{
		RMQ:    rmq,
		mailer: m,
		done:   make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("Payment notification reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.PaymentNotification
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal notification: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Int64("payment_id", msg.PaymentID).
				Str("status", msg.Status).
				Msg("Received payment notification")

			if err := r.mailer.SendPaymentEmail(
				msg.AttendeeEmail,
				msg.EventTitle,
				msg.BookingReference,
				msg.Status,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Int64("payment_id", msg.PaymentID).
					Msg("Failed to send payment email")
				return nil
			}

			zlog.Logger.Info().
				Str("email", msg.AttendeeEmail).
				Int64("payment_id", msg.PaymentID).
				Msg("Payment email sent")
			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("Payment notification reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
