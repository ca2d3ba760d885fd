package shared

import (
	"context"
	"net/http"
	"strconv"

	"github.com/atlas-erp/atlas-erp/internal/platform/httpx"
)

// TenantHeader carries the caller's tenant identifier. Tenant ids are opaque
// 64-bit integers; the service never does arithmetic on them.
const TenantHeader = "X-Tenant-ID"

type contextKey string

const tenantContextKey contextKey = "tenant"

// ContextWithTenant stores the tenant id on the context.
func ContextWithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// TenantFromContext retrieves the tenant id, returning false when absent.
func TenantFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantContextKey).(int64)
	return id, ok
}

// ActorHeader identifies the user or system performing a request. It is
// recorded verbatim in the audit trail.
const ActorHeader = "X-Actor"

// ActorFromRequest returns the declared actor, defaulting to "system".
func ActorFromRequest(r *http.Request) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return "system"
}

// RequireTenant rejects requests that do not carry a valid tenant header.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(TenantHeader)
		if raw == "" {
			httpx.Problem(w, http.StatusBadRequest, "Missing Tenant", "header "+TenantHeader+" is required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Tenant", "header "+TenantHeader+" must be a positive integer")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithTenant(r.Context(), id)))
	})
}
