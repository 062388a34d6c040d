package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskDegradedPercent is the upload volume usage at which the service
// reports itself degraded.
const DiskDegradedPercent = 90.0

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db        Pinger
	uploadDir string
	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Disk     *DiskHealth    `json:"disk,omitempty"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type DiskHealth struct {
	Status      string  `json:"status"`
	Path        string  `json:"path"`
	UsedPercent float64 `json:"used_percent"`
	FreeBytes   uint64  `json:"free_bytes"`
}

// NewHealthChecker checks db and, when uploadDir is set, the volume holding
// locally stored photos.
func NewHealthChecker(db Pinger, uploadDir string) *HealthChecker {
	return &HealthChecker{db: db, uploadDir: uploadDir, diskUsage: disk.UsageWithContext}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := StatusHealthy
	if dbHealth.Status != StatusHealthy {
		status = StatusUnhealthy
	}

	result := HealthStatus{
		Status:   status,
		Database: dbHealth,
	}

	if h.uploadDir != "" {
		d := h.checkDisk(ctx)
		result.Disk = &d
		if status == StatusHealthy && d.Status != StatusHealthy {
			result.Status = StatusDegraded
		}
	}

	return result
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       StatusUnhealthy,
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       StatusHealthy,
		ResponseTime: responseTime,
	}
}

func (h *HealthChecker) checkDisk(ctx context.Context) DiskHealth {
	stats, err := h.diskUsage(ctx, h.uploadDir)
	if err != nil {
		return DiskHealth{Status: StatusUnhealthy, Path: h.uploadDir}
	}

	status := StatusHealthy
	if stats.UsedPercent >= DiskDegradedPercent {
		status = StatusDegraded
	}
	return DiskHealth{
		Status:      status,
		Path:        h.uploadDir,
		UsedPercent: stats.UsedPercent,
		FreeBytes:   stats.Free,
	}
}
