package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gasflow-erp/gasflow/internal/inventory"
	"github.com/gasflow-erp/gasflow/internal/platform/httpx"
)

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dsr", h.dsr)
	r.Get("/dsr/export", h.dsrExport)
	r.Get("/monthly", h.monthly)
	r.Get("/buckets/{bucket}", h.bucketMovement)
	r.Get("/products/{id}", h.productMovement)
}

func (h *Handler) dsr(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r, "date", time.Now().UTC())
	if !ok {
		return
	}
	report, err := h.service.DSR(r.Context(), date)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) dsrExport(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r, "date", time.Now().UTC())
	if !ok {
		return
	}
	report, err := h.service.DSR(r.Context(), date)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	f, err := ExportDSR(report)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dsr-%s.xlsx"`, report.Date.Format("2006-01-02")))
	if err := f.Write(w); err != nil {
		h.logger.Error("write dsr workbook", slog.Any("error", err))
	}
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()
	if raw := q.Get("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2000 || n > 2200 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "year out of range")
			return
		}
		year = n
	}
	if raw := q.Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month must be 1-12")
			return
		}
		month = time.Month(n)
	}
	report, err := h.service.MonthlyClosing(r.Context(), year, month)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) bucketMovement(w http.ResponseWriter, r *http.Request) {
	bucket := inventory.Bucket(chi.URLParam(r, "bucket"))
	from, to, ok := rangeParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.BucketMovement(r.Context(), bucket, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) productMovement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be an integer")
		return
	}
	from, to, ok := rangeParams(w, r)
	if !ok {
		return
	}
	report, err := h.service.ProductMovement(r.Context(), id, from, to)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"report": report})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRange), errors.Is(err, ErrUnknownBucket):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("reports handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func dateParam(w http.ResponseWriter, r *http.Request, key string, fallback time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("%s must be YYYY-MM-DD", key))
		return time.Time{}, false
	}
	return t, true
}

func rangeParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from, ok := dateParam(w, r, "from", now.AddDate(0, -1, 0))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := dateParam(w, r, "to", now)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
