package inventory

import (
	"time"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncWasabiAccounts is a top-level mark-then-merge over the whole Wasabi
// fleet. Callers must not run two of these concurrently; the scope has no
// partition key.
func (s *Store) SyncWasabiAccounts(accounts []canonical.WasabiAccount) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.WasabiAccount{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
			return err
		}
		for _, acc := range accounts {
			row := models.WasabiAccount{
				AccountID:     acc.AccountID,
				DisplayName:   acc.DisplayName,
				Region:        acc.Region,
				S3Endpoint:    acc.S3Endpoint,
				StatsEndpoint: acc.StatsEndpoint,
				IsActive:      true,
				LastSeenAt:    seenAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"display_name", "region", "s3_endpoint", "stats_endpoint", "is_active", "last_seen_at",
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkWasabiAccountSync records the outcome of the latest attempt to refresh
// the account's children. It is bookkeeping, not reconciliation: identity and
// lifecycle stay untouched so the inventory remains queryable while a
// provider is failing.
func (s *Store) MarkWasabiAccountSync(accountID string, syncErr string) error {
	return s.db.Model(&models.WasabiAccount{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"last_sync_at": now(),
			"last_error":   nilIfEmpty(syncErr),
		}).Error
}

// SyncWasabiBuckets converges the buckets of one account to the observed set.
func (s *Store) SyncWasabiBuckets(accountID string, buckets []canonical.WasabiBucket) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.WasabiBucket{}).
			Where("account_id = ?", accountID).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		for _, b := range buckets {
			row := models.WasabiBucket{
				AccountID:             accountID,
				BucketName:            b.BucketName,
				CreatedAt:             b.CreatedAt,
				UsageBytes:            b.UsageBytes,
				ObjectCount:           b.ObjectCount,
				UtilizationFromDate:   b.UtilizationFromDate,
				UtilizationToDate:     b.UtilizationToDate,
				UtilizationRecordedAt: b.UtilizationRecordedAt,
				IsActive:              true,
				LastSeenAt:            seenAt,
				LastSyncAt:            timePtr(seenAt),
				LastError:             b.LastError,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}, {Name: "bucket_name"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"created_at", "usage_bytes", "object_count",
					"utilization_from_date", "utilization_to_date", "utilization_recorded_at",
					"is_active", "last_seen_at", "last_sync_at", "last_error",
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWasabiAccount returns one active account, or nil when unknown.
func (s *Store) GetWasabiAccount(accountID string) (*models.WasabiAccount, error) {
	var row models.WasabiAccount
	err := s.db.Where("account_id = ? AND is_active = ?", accountID, true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListWasabiBuckets returns active buckets of an account ordered by name.
func (s *Store) ListWasabiBuckets(accountID string) ([]models.WasabiBucket, error) {
	var rows []models.WasabiBucket
	err := s.db.Where("account_id = ? AND is_active = ?", accountID, true).
		Order("bucket_name COLLATE NOCASE").
		Find(&rows).Error
	return rows, err
}

// WasabiAccountReport is the aggregated per-account view: usage roll-ups over
// active buckets, a space-joined bucket name list, and latest bucket
// bookkeeping.
type WasabiAccountReport struct {
	AccountID     string  `gorm:"column:account_id" json:"accountId"`
	DisplayName   string  `gorm:"column:display_name" json:"displayName"`
	Region        *string `gorm:"column:region" json:"region"`
	S3Endpoint    *string `gorm:"column:s3_endpoint" json:"s3Endpoint"`
	StatsEndpoint *string `gorm:"column:stats_endpoint" json:"statsEndpoint"`

	LastSeenAt time.Time  `gorm:"column:last_seen_at" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`

	TotalUsageBytes  int64      `gorm:"column:total_usage_bytes" json:"totalUsageBytes"`
	TotalObjectCount int64      `gorm:"column:total_object_count" json:"totalObjectCount"`
	BucketCount      int64      `gorm:"column:bucket_count" json:"bucketCount"`
	BucketNames      string     `gorm:"column:bucket_names_csv" json:"bucketNames"`
	LastBucketSyncAt *time.Time `gorm:"-" json:"lastBucketSyncAt"`
	LastBucketError  *string    `gorm:"column:last_bucket_error" json:"lastBucketError"`

	// aggregate datetimes arrive as text, parsed in ListWasabiAccounts
	LastBucketSyncAtRaw *string `gorm:"column:last_bucket_sync_at" json:"-"`
}

// ListWasabiAccounts aggregates active accounts with their active buckets,
// optionally filtered to a set of account ids. The surfaced last_error falls
// back to the latest bucket error when the account itself has none.
func (s *Store) ListWasabiAccounts(accountIDs []string) ([]WasabiAccountReport, error) {
	query := `
SELECT
  wa.account_id,
  wa.display_name,
  wa.region,
  wa.s3_endpoint,
  wa.stats_endpoint,
  wa.last_seen_at,
  wa.last_sync_at,
  wa.last_error,
  IFNULL(SUM(CASE WHEN wb.is_active = 1 THEN wb.usage_bytes ELSE 0 END), 0) AS total_usage_bytes,
  IFNULL(SUM(CASE WHEN wb.is_active = 1 THEN wb.object_count ELSE 0 END), 0) AS total_object_count,
  IFNULL(SUM(CASE WHEN wb.is_active = 1 THEN 1 ELSE 0 END), 0) AS bucket_count,
  IFNULL(GROUP_CONCAT(CASE WHEN wb.is_active = 1 THEN wb.bucket_name END, ' ' ORDER BY wb.bucket_name COLLATE NOCASE), '') AS bucket_names_csv,
  MAX(wb.last_sync_at) AS last_bucket_sync_at,
  MAX(wb.last_error) AS last_bucket_error
FROM wasabi_accounts wa
LEFT JOIN wasabi_buckets wb ON wb.account_id = wa.account_id
WHERE wa.is_active = 1`
	var rows []WasabiAccountReport
	var err error
	if len(accountIDs) > 0 {
		query += ` AND wa.account_id IN ?
GROUP BY wa.account_id
ORDER BY wa.display_name COLLATE NOCASE`
		err = s.db.Raw(query, accountIDs).Scan(&rows).Error
	} else {
		query += `
GROUP BY wa.account_id
ORDER BY wa.display_name COLLATE NOCASE`
		err = s.db.Raw(query).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LastBucketSyncAt = parseAggregateTime(rows[i].LastBucketSyncAtRaw)
		rows[i].LastBucketSyncAtRaw = nil
		if rows[i].LastError == nil {
			rows[i].LastError = rows[i].LastBucketError
		}
	}
	return rows, nil
}
