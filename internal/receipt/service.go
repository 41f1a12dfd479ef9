package receipt

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/seekweb/pos-api/internal/common"
	"github.com/seekweb/pos-api/internal/obs"
	"github.com/seekweb/pos-api/internal/queue"
	"github.com/seekweb/pos-api/internal/sale"
)

type saleReader interface {
	FindByNumber(ctx context.Context, number string) (sale.Record, error)
}

// Service renders receipts and keeps the rendered text in Redis so reprints
// do not hit the sales tables.
type Service struct {
	Sales    saleReader
	Renderer Renderer
	Client   *redis.Client
	Log      zerolog.Logger
}

func receiptKey(number string) string {
	return "receipt:" + number
}

// Get returns the receipt text for a sale, rendering on demand when no
// cached copy exists yet.
func (s *Service) Get(ctx context.Context, number string) (string, error) {
	if s.Client != nil {
		if text, err := s.Client.Get(ctx, receiptKey(number)).Result(); err == nil {
			return text, nil
		}
	}
	record, err := s.Sales.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sale.ErrNotFound) {
			return "", common.NewAppError("NOT_FOUND", "sale not found", http.StatusNotFound, err)
		}
		return "", err
	}
	text := s.Renderer.Render(record)
	s.store(ctx, number, text)
	return text, nil
}

// HandleTask is the queue handler that pre-renders a receipt after checkout.
// The task payload is the sale number.
func (s *Service) HandleTask(ctx context.Context, task queue.Task) error {
	number := string(task.Payload)
	record, err := s.Sales.FindByNumber(ctx, number)
	if err != nil {
		if obs.ReceiptTasksTotal != nil {
			obs.ReceiptTasksTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	s.store(ctx, number, s.Renderer.Render(record))
	if obs.ReceiptTasksTotal != nil {
		obs.ReceiptTasksTotal.WithLabelValues("ok").Inc()
	}
	s.Log.Info().Str("sale_number", number).Msg("receipt rendered")
	return nil
}

func (s *Service) store(ctx context.Context, number, text string) {
	if s.Client == nil {
		return
	}
	if err := s.Client.Set(ctx, receiptKey(number), text, 0).Err(); err != nil {
		s.Log.Error().Err(err).Str("sale_number", number).Msg("caching receipt failed")
	}
}

// Handler exposes the receipt endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the receipt routes on a router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/sales/{number}/receipt", h.Get)
}

// Get handles GET /sales/{number}/receipt.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	text, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
