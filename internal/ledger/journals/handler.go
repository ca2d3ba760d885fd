package journals

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	ledgershared "github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// IdempotencyHeader allows clients to retry entry creation safely.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for journal entries.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. The idempotency store may be nil;
// the create endpoint then treats every request as fresh.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idempotency, validator: validator.New()}
}

// MountRoutes registers journal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{entryID}", h.get)
	r.Post("/{entryID}/post", h.post)
	r.Post("/{entryID}/reject", h.reject)
	r.Post("/{entryID}/reverse", h.reverse)
	r.Get("/{entryID}/audit", h.audit)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	var req CreateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	key := r.Header.Get(IdempotencyHeader)
	if key != "" && h.idempotency != nil {
		scoped := fmt.Sprintf("%d:%s", tenantID, key)
		if err := h.idempotency.CheckAndInsert(r.Context(), scoped, "journals"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this idempotency key was already processed")
				return
			}
			ledgershared.RespondError(w, h.logger, err)
			return
		}
	}
	entry, err := h.service.CreateEntry(r.Context(), tenantID, shared.ActorFromRequest(r), req)
	if err != nil {
		// Release the key so the client can retry after fixing the payload.
		if key != "" && h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), fmt.Sprintf("%d:%s", tenantID, key))
		}
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	filter := ListFilter{}
	filter.Page, filter.PerPage = shared.PageParams(r)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := EntryStatus(raw)
		switch status {
		case EntryStatusDraft, EntryStatusPosted, EntryStatusRejected:
			filter.Status = &status
		default:
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown status "+raw)
			return
		}
	}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "account_id must be an integer")
			return
		}
		filter.AccountID = &id
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return
		}
		filter.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return
		}
		filter.To = &to
	}
	entries, pagination, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parseEntryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "entry id must be an integer")
		return
	}
	entry, err := h.service.Get(r.Context(), tenantID, id)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parseEntryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "entry id must be an integer")
		return
	}
	entry, err := h.service.Post(r.Context(), tenantID, id, shared.ActorFromRequest(r))
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parseEntryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "entry id must be an integer")
		return
	}
	var req RejectRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
			return
		}
	}
	entry, err := h.service.Reject(r.Context(), tenantID, id, shared.ActorFromRequest(r), req.Reason)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parseEntryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "entry id must be an integer")
		return
	}
	var req ReverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be valid JSON")
			return
		}
	}
	reversal, err := h.service.Reverse(r.Context(), tenantID, id, shared.ActorFromRequest(r), req.Description)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}

func (h *Handler) audit(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	id, err := parseEntryID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Identifier", "entry id must be an integer")
		return
	}
	logs, err := h.service.AuditTrail(r.Context(), tenantID, id)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"audit": logs})
}

func parseEntryID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
}
