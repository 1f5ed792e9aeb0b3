package notifications

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/settings"
	"gorm.io/gorm"
)

const (
	defaultDeleteBatchSize = 1000
	maxDeleteBatchesPerRun = 500
)

// RetentionCleaner deletes read notifications older than the retention window.
type RetentionCleaner struct {
	db          *gorm.DB
	defaultDays int
	batchSize   int
	now         func() time.Time
}

// NewRetentionCleaner returns a cleaner. defaultDays applies unless the runtime setting overrides it.
func NewRetentionCleaner(db *gorm.DB, defaultDays int) *RetentionCleaner {
	if db == nil {
		return nil
	}
	return &RetentionCleaner{
		db:          db,
		defaultDays: defaultDays,
		batchSize:   defaultDeleteBatchSize,
		now:         time.Now,
	}
}

// RetentionDays returns the active retention window. Zero or less disables cleanup.
func (c *RetentionCleaner) RetentionDays() int {
	days := settings.Int(settings.NotificationRetentionDaysKey, c.defaultDays)
	if days < 0 {
		return 0
	}
	return days
}

// CleanupOnce deletes expired notifications in batches and returns the number removed.
func (c *RetentionCleaner) CleanupOnce(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	retentionDays := c.RetentionDays()
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := c.now().UTC().AddDate(0, 0, -retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return deletedTotal, ctx.Err()
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("notification retention: delete batch failed")
			return deletedTotal, err
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("notification retention: deleted %d rows (cutoff=%s retention_days=%d)", deletedTotal, cutoff.Format(time.RFC3339), retentionDays)
	}
	return deletedTotal, nil
}

func (c *RetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultDeleteBatchSize
	}
	// Bounded subquery keeps each statement short.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM notifications
		WHERE id IN (
			SELECT id FROM notifications
			WHERE read = ? AND created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, true, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
