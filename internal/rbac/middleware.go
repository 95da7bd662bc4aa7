package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatehouse/gatehouse/internal/platform/httpx"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// DenialRecorder counts authorization denials, usually backed by a metrics
// counter.
type DenialRecorder interface {
	RecordDenial(route string)
}

// Middleware enforces per-endpoint permission requirements using only the
// claims carried in the verified token. It never consults the database;
// role or permission changes after issuance take effect when the token is
// reissued.
type Middleware struct {
	Logger  *slog.Logger
	Denials DenialRecorder
}

// RequireAny allows the request when the caller holds at least one of the
// required route names. Entries may themselves be comma-separated lists.
// With no requirement declared the filter passes through unchanged.
// Comparison is case sensitive. Denial is a normal terminal response, not an
// error.
func (m Middleware) RequireAny(routeNames ...string) func(http.Handler) http.Handler {
	required := splitRouteNames(routeNames)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			claims := shared.ClaimsFromContext(r.Context())
			if claims == nil {
				m.deny(w, r)
				return
			}
			held := claims.PermissionSet()
			for _, want := range required {
				if _, ok := held[want]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request) {
	if m.Logger != nil {
		m.Logger.Warn("permission denied", slog.String("path", r.URL.Path))
	}
	if m.Denials != nil {
		m.Denials.RecordDenial(r.URL.Path)
	}
	httpx.Fail(w, http.StatusForbidden, "insufficient permission")
}

// splitRouteNames expands comma-separated declarations and deduplicates the
// result. No trimming beyond surrounding whitespace; route names compare
// exactly.
func splitRouteNames(routeNames []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, declared := range routeNames {
		for _, name := range strings.Split(declared, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
