package query

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/cfmail/console/internal/metrics"
	"github.com/cfmail/console/internal/models"
)

type DashboardQueryService struct {
	stats   StatsReader
	started time.Time
	now     func() time.Time
}

func NewDashboardQueryService(stats StatsReader, started time.Time) *DashboardQueryService {
	return &DashboardQueryService{stats: stats, started: started, now: time.Now}
}

func (s *DashboardQueryService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	return s.stats.Dashboard(ctx, s.now().UTC())
}

// Status reports process health for the admin status page.
func (s *DashboardQueryService) Status(ctx context.Context) (*models.SystemStatus, error) {
	active, err := s.stats.CountActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := s.now().Sub(s.started).Truncate(time.Second)
	total, errorRate := metrics.RequestSnapshot()
	return &models.SystemStatus{
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
		MemoryAllocMB: toMB(mem.Alloc),
		MemorySysMB:   toMB(mem.Sys),
		Goroutines:    runtime.NumGoroutine(),
		ActiveUsers:   active,
		TotalRequests: total,
		ErrorRate:     math.Round(errorRate*100) / 100,
	}, nil
}

func toMB(b uint64) float64 {
	return math.Round(float64(b)/1024/1024*100) / 100
}
