package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	ledgershared "github.com/atlas-erp/atlas-erp/internal/ledger/shared"
	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Handler wires HTTP endpoints for ledger reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/profit-loss", h.profitAndLoss)
	r.Get("/balance-sheet", h.balanceSheet)
	r.Get("/cash-flow", h.cashFlow)
	r.Get("/general-ledger", h.generalLedger)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	periodID, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), tenantID, periodID)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="trial-balance.csv"`)
		if err := WriteTrialBalanceCSV(w, tb); err != nil {
			h.logger.Error("write trial balance csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	periodID, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), tenantID, periodID)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	periodID, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), tenantID, periodID)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	periodID, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	cf, err := h.service.CashFlow(r.Context(), tenantID, periodID)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cf)
}

func (h *Handler) generalLedger(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := shared.TenantFromContext(r.Context())
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "account_id must be an integer")
		return
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
		return
	}
	gl, err := h.service.GeneralLedgerReport(r.Context(), tenantID, accountID, from, to)
	if err != nil {
		ledgershared.RespondError(w, h.logger, err)
		return
	}
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="general-ledger.csv"`)
		if err := WriteGeneralLedgerCSV(w, gl); err != nil {
			h.logger.Error("write general ledger csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, gl)
}

func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	periodID, err := strconv.ParseInt(r.URL.Query().Get("period_id"), 10, 64)
	if err != nil || periodID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "period_id must be a positive integer")
		return 0, false
	}
	return periodID, true
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}
