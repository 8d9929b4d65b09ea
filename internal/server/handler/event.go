package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// EventService defines the event-log read methods the event handler requires.
type EventService interface {
	ListEvents(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error)
}

// EventHandler serves the event-log read endpoint.
type EventHandler struct {
	events EventService
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger,
	}
}

// eventResponse is the wire shape of one event-log entry.
type eventResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Contract  string `json:"contract"`
	TokenID   uint64 `json:"token_id"`
	Seller    string `json:"seller"`
	Buyer     string `json:"buyer,omitempty"`
	Kind      string `json:"kind"`
	Quantity  uint64 `json:"quantity"`
	Price     string `json:"price,omitempty"`
	Paused    bool   `json:"paused"`
	Receipt   []byte `json:"receipt,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListEvents returns event-log entries, newest first.
// GET /api/events?limit=50&offset=0&since=RFC3339&until=RFC3339
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		opts.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until timestamp")
			return
		}
		opts.Until = &t
	}

	events, err := h.events.ListEvents(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp := eventResponse{
			ID:        e.ID,
			Type:      string(e.Type),
			Contract:  e.Contract.Hex(),
			TokenID:   e.TokenID,
			Seller:    e.Seller.Hex(),
			Kind:      e.Kind.String(),
			Quantity:  e.Quantity,
			Paused:    e.Paused,
			Receipt:   e.Receipt,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.Buyer != (common.Address{}) {
			resp.Buyer = e.Buyer.Hex()
		}
		if e.Price != nil {
			resp.Price = e.Price.String()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}
