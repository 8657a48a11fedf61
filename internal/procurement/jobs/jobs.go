// Package jobs runs the scheduled maintenance tasks of the procurement service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
	"go.uber.org/zap"
)

const (
	JobETAOverdue     = "eta_overdue"
	JobRetentionPurge = "retention_purge"

	overdueKeyPrefix = "reminder:eta_overdue:"
	overdueKeyTTL    = 48 * time.Hour
	jobTimeout       = 5 * time.Minute
)

// Runner owns the cron scheduler and the job bodies.
type Runner struct {
	repos         *repository.Repositories
	notifications *service.NotificationService
	rdb           *redis.Client
	cron          *cron.Cron
	now           func() time.Time
}

// NewRunner rdb may be nil, in which case reminders are not deduplicated.
func NewRunner(repos *repository.Repositories, notifications *service.NotificationService, rdb *redis.Client) *Runner {
	return &Runner{
		repos:         repos,
		notifications: notifications,
		rdb:           rdb,
		cron:          cron.New(cron.WithLocation(time.UTC)),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Schedule registers every job with a non-empty schedule.
func (r *Runner) Schedule(cfg config.CronConfig) error {
	jobs := []struct {
		name string
		spec string
		fn   func(context.Context) error
	}{
		{JobETAOverdue, cfg.ETAOverdue, func(ctx context.Context) error {
			_, err := r.RemindOverdue(ctx)
			return err
		}},
		{JobRetentionPurge, cfg.RetentionPurge, func(ctx context.Context) error {
			_, err := r.PurgeNotifications(ctx)
			return err
		}},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		name, fn := j.name, j.fn
		if _, err := r.cron.AddFunc(j.spec, func() { r.run(name, fn) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, j.spec, err)
		}
		zap.L().Info("job scheduled", zap.String("job", name), zap.String("spec", j.spec))
	}
	return nil
}

func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx expires.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		zap.L().Warn("jobs still running at shutdown")
	}
}

func (r *Runner) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordJobRun(name, time.Since(start), err == nil)
	if err != nil {
		zap.L().Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	zap.L().Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// ==================== ETA overdue ====================

// claim reports whether the reminder for key has not been sent yet today.
func (r *Runner) claim(ctx context.Context, key string) bool {
	if r.rdb == nil {
		return true
	}
	ok, err := r.rdb.SetNX(ctx, key, 1, overdueKeyTTL).Result()
	if err != nil {
		zap.L().Warn("reminder dedup unavailable, skipping", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

// RemindOverdue warns BOM owners about ordered items past their ETA that are
// not fully received. Each item is reminded at most once per day.
func (r *Runner) RemindOverdue(ctx context.Context) (int, error) {
	now := r.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	items, err := r.repos.Bom.OverdueItems(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("list overdue items: %w", err)
	}

	boms := map[string]*entity.Bom{}
	sent := 0
	for i := range items {
		item := &items[i]
		key := overdueKeyPrefix + item.ID + ":" + day.Format("20060102")
		if !r.claim(ctx, key) {
			continue
		}
		bom, ok := boms[item.BomID]
		if !ok {
			bom, err = r.repos.Bom.FindByID(ctx, item.BomID)
			if err != nil {
				zap.L().Warn("overdue item without BOM", zap.String("item_id", item.ID), zap.Error(err))
				continue
			}
			boms[item.BomID] = bom
		}
		_, err := r.notifications.NotifyUser(ctx, service.Notice{
			UserID: bom.OwnerID,
			Level:  entity.NotificationWarning,
			Title:  "Delivery overdue",
			Body: fmt.Sprintf("Item %q on BOM %q was expected on %s and is not fully received.",
				item.Name, bom.Title, item.ETADate.Format("2006-01-02")),
			Link: service.BomLink(bom.ID),
		})
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// ==================== Retention ====================

func (r *Runner) PurgeNotifications(ctx context.Context) (int64, error) {
	n, err := r.notifications.PurgeRead(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	if n > 0 {
		zap.L().Info("read notifications purged", zap.Int64("count", n))
	}
	return n, nil
}
