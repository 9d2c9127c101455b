package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
)

// Handler exposes the ledger's read API and manual adjustments over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cells", h.listCells)
	r.Get("/transactions", h.listTransactions)
	r.Post("/adjustments", h.postAdjustment)
}

// AdjustmentRequest posts a manual stock correction. Negative qty decreases.
type AdjustmentRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Bucket      string `json:"bucket" validate:"required"`
	State       string `json:"state" validate:"required"`
	Qty         int64  `json:"qty" validate:"required"`
	ReferenceID string `json:"reference_id,omitempty"`
	Note        string `json:"note,omitempty" validate:"max=500"`
}

func (h *Handler) listCells(w http.ResponseWriter, r *http.Request) {
	filter := SnapshotFilter{Bucket: Bucket(r.URL.Query().Get("bucket"))}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id must be an integer")
			return
		}
		filter.ProductID = id
	}
	cells, err := h.service.Snapshot(r.Context(), filter)
	if err != nil {
		h.logger.Error("list cells", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cells": cells})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var filter LogFilter
	q := r.URL.Query()
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id must be an integer")
			return
		}
		filter.ProductID = id
	}
	if raw := q.Get("type"); raw != "" {
		filter.Types = []TxnType{TxnType(raw)}
	}
	for name, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := q.Get(name); raw != "" {
			ts, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
				return
			}
			*dst = ts
		}
	}
	txns, err := h.service.LogEntries(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := MovementInput{
		ProductID:   req.ProductID,
		Bucket:      Bucket(req.Bucket),
		State:       State(req.State),
		Qty:         req.Qty,
		Type:        TxnAdjustment,
		ReferenceID: req.ReferenceID,
		Note:        req.Note,
	}
	var (
		cell StockCell
		err  error
	)
	if req.Qty < 0 {
		input.Qty = -req.Qty
		cell, err = h.service.Decrease(r.Context(), input)
	} else {
		cell, err = h.service.Increase(r.Context(), input)
	}
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cell": cell})
}

func (h *Handler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
	case errors.Is(err, ErrCellNotFound):
		httpx.Problem(w, http.StatusNotFound, "Cell Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	default:
		h.logger.Error("post adjustment", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
