package handlers

import (
	"context"
	"net/http"
	"time"

	"kbase/internal/contextutil"
)

// CollectionChecker reports whether the vector collection is reachable.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
}

// Pinger reports whether the metadata store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index      CollectionChecker
	db         Pinger
	collection string
	timeout    time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(index CollectionChecker, db Pinger, collection string) *HealthHandler {
	return &HealthHandler{
		index:      index,
		db:         db,
		collection: collection,
		timeout:    5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. Returns 200 when all dependencies are
// reachable, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	logger := contextutil.LoggerFromContext(ctx)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string),
	}

	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		resp.Checks["database"] = "fail"
		resp.Issues = append(resp.Issues, "database unreachable")
	} else {
		resp.Checks["database"] = "ok"
	}

	exists, err := h.index.CollectionExists(ctx, h.collection)
	switch {
	case err != nil:
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		resp.Checks["vector_store"] = "fail"
		resp.Issues = append(resp.Issues, "vector store unreachable")
	case !exists:
		resp.Checks["vector_store"] = "fail"
		resp.Issues = append(resp.Issues, "vector collection missing")
	default:
		resp.Checks["vector_store"] = "ok"
	}

	status := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
