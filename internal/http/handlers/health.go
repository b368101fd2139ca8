package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one readiness probe. A failing optional check marks the report
// degraded instead of unavailable.
type Check struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) (string, error)
}

type checkResult struct {
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// HealthHandler serves liveness and readiness for the economy API.
type HealthHandler struct {
	db        Pinger
	checks    []Check
	startTime time.Time
	version   string
}

func NewHealthHandler(db Pinger, version string, checks ...Check) *HealthHandler {
	return &HealthHandler{
		db:        db,
		checks:    checks,
		startTime: time.Now(),
		version:   version,
	}
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp string                 `json:"timestamp"`
	MemoryMB  string                 `json:"memory_alloc_mb,omitempty"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

// Liveness returns simple alive status (for k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs the database ping and every registered check. Only the
// database and non-optional checks gate traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]checkResult, len(h.checks)+1)
	status := "ok"

	all := append([]Check{{Name: "database", Probe: h.pingDB}}, h.checks...)
	for _, chk := range all {
		detail, err := chk.Probe(ctx)
		if err == nil {
			checks[chk.Name] = checkResult{State: "up", Detail: detail}
			continue
		}
		checks[chk.Name] = checkResult{State: "down", Detail: err.Error()}
		switch {
		case !chk.Optional:
			status = "unavailable"
		case status == "ok":
			status = "degraded"
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	code := http.StatusOK
	if status == "unavailable" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemoryMB:  fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Checks:    checks,
	})
}

// Health is the quick database-only probe used by the Telegram WebApp host.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.pingDB(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func (h *HealthHandler) pingDB(ctx context.Context) (string, error) {
	if err := h.db.Ping(ctx); err != nil {
		return "", err
	}
	return "", nil
}

// PendingWithdrawalsCheck reports the admin review backlog. It never fails
// readiness on its own.
func PendingWithdrawalsCheck(w Withdrawals) Check {
	return Check{
		Name:     "withdrawal_queue",
		Optional: true,
		Probe: func(ctx context.Context) (string, error) {
			list, err := w.Pending(ctx, maxListLimit)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d pending", len(list)), nil
		},
	}
}
