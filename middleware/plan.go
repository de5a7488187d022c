package middleware

import (
	"net/http"

	"github.com/blackfang-intel/fangauth"
)

// RequirePlan answers 403 when the authenticated tenant's plan is below
// required. Requests that did not pass Guard get 401.
func RequirePlan(required fangauth.Plan) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			current := fangauth.Plan(claims.SubscriptionPlan)
			if !current.Satisfies(required) {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"detail":        fangauth.ErrInsufficientPlan.Error(),
					"current_plan":  current.String(),
					"required_plan": required.String(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
