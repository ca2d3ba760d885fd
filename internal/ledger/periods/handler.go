package periods

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	ledgershared "github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Handler wires HTTP endpoints for the fiscal calendar.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers period routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{periodID}", h.get)
	r.Post("/{periodID}/close", h.close)
	r.Post("/{periodID}/lock", h.lock)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	var req CreatePeriodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	period, err := h.service.Create(r.Context(), tenantID, shared.ActorFromRequest(r), req)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	items, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parsePeriodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "period id must be an integer")
		return
	}
	period, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parsePeriodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "period id must be an integer")
		return
	}
	period, err := h.service.Close(r.Context(), tenantID, id, shared.ActorFromRequest(r))
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parsePeriodID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "period id must be an integer")
		return
	}
	period, err := h.service.Lock(r.Context(), tenantID, id, shared.ActorFromRequest(r))
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func parsePeriodID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
}
