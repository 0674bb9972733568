package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane/cashier/internal/infra"
)

// HealthHandler returns a health check endpoint. pool is nil in
// memory-backend mode, where there is no database to probe.
func HealthHandler(pool *pgxpool.Pool, backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := infra.HealthCheck(r.Context(), pool); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status":  "unhealthy",
					"backend": backend,
					"error":   err.Error(),
				})
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"backend": backend,
		})
	}
}
