package inventory

import (
	"strings"
	"time"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// normalizeAWSAccountID mirrors the write-side normalization so filters and
// scope matches are case-insensitive.
func normalizeAWSAccountID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SyncAWSAccounts is a top-level mark-then-merge over the whole AWS fleet.
func (s *Store) SyncAWSAccounts(accounts []canonical.AWSAccount) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AWSAccount{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
			return err
		}
		for _, acc := range accounts {
			row := models.AWSAccount{
				AccountID:                    acc.AccountID,
				DisplayName:                  acc.DisplayName,
				Region:                       acc.Region,
				CloudWatchRegion:             acc.CloudWatchRegion,
				S3Endpoint:                   acc.S3Endpoint,
				ForcePathStyle:               acc.ForcePathStyle,
				RequestMetricsEnabledDefault: acc.RequestMetricsEnabledDefault,
				IsActive:                     true,
				LastSeenAt:                   seenAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"display_name", "region", "cloudwatch_region", "s3_endpoint",
					"force_path_style", "request_metrics_enabled_default", "is_active", "last_seen_at",
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkAWSAccountSync records the outcome of the latest child-refresh attempt.
func (s *Store) MarkAWSAccountSync(accountID string, syncErr string) error {
	return s.db.Model(&models.AWSAccount{}).
		Where("account_id = ?", normalizeAWSAccountID(accountID)).
		Updates(map[string]any{
			"last_sync_at": now(),
			"last_error":   nilIfEmpty(syncErr),
		}).Error
}

// SyncAWSBuckets converges the buckets of one account to the observed set.
// Transfer metrics and the security profile ride along with the snapshot
// because the AWS-side scanner produces them in the same pass.
func (s *Store) SyncAWSBuckets(accountID string, buckets []canonical.AWSBucket) error {
	seenAt := now()
	scope := normalizeAWSAccountID(accountID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.AWSBucket{}).
			Where("account_id = ?", scope).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		for _, b := range buckets {
			row := models.AWSBucket{
				AccountID:   scope,
				BucketName:  b.BucketName,
				CreatedAt:   b.CreatedAt,
				UsageBytes:  b.UsageBytes,
				ObjectCount: b.ObjectCount,

				EgressBytes24h:  b.EgressBytes24h,
				IngressBytes24h: b.IngressBytes24h,
				Transactions24h: b.Transactions24h,
				EgressBytes30d:  b.EgressBytes30d,
				IngressBytes30d: b.IngressBytes30d,
				Transactions30d: b.Transactions30d,

				RequestMetricsAvailable: b.RequestMetricsAvailable,
				RequestMetricsError:     b.RequestMetricsError,
				SizeSource:              b.SizeSource,
				StorageTypeHint:         b.StorageTypeHint,
				ScanMode:                b.ScanMode,

				PublicAccessBlockEnabled: b.PublicAccessBlockEnabled,
				BlockPublicAcls:          b.BlockPublicAcls,
				IgnorePublicAcls:         b.IgnorePublicAcls,
				BlockPublicPolicy:        b.BlockPublicPolicy,
				RestrictPublicBuckets:    b.RestrictPublicBuckets,
				PolicyIsPublic:           b.PolicyIsPublic,
				EncryptionEnabled:        b.EncryptionEnabled,
				EncryptionAlgorithm:      b.EncryptionAlgorithm,
				KmsKeyID:                 b.KmsKeyID,
				VersioningStatus:         b.VersioningStatus,
				LifecycleEnabled:         b.LifecycleEnabled,
				LifecycleRuleCount:       b.LifecycleRuleCount,
				AccessLoggingEnabled:     b.AccessLoggingEnabled,
				AccessLogTargetBucket:    b.AccessLogTargetBucket,
				AccessLogTargetPrefix:    b.AccessLogTargetPrefix,
				ObjectLockEnabled:        b.ObjectLockEnabled,
				OwnershipControls:        b.OwnershipControls,

				IsActive:   true,
				LastSeenAt: seenAt,
				LastSyncAt: timePtr(seenAt),
				LastError:  b.LastError,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}, {Name: "bucket_name"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"created_at", "usage_bytes", "object_count",
					"egress_bytes_24h", "ingress_bytes_24h", "transactions_24h",
					"egress_bytes_30d", "ingress_bytes_30d", "transactions_30d",
					"request_metrics_available", "request_metrics_error",
					"size_source", "storage_type_hint", "scan_mode",
					"public_access_block_enabled", "block_public_acls", "ignore_public_acls",
					"block_public_policy", "restrict_public_buckets", "policy_is_public",
					"encryption_enabled", "encryption_algorithm", "kms_key_id",
					"versioning_status", "lifecycle_enabled", "lifecycle_rule_count",
					"access_logging_enabled", "access_log_target_bucket", "access_log_target_prefix",
					"object_lock_enabled", "ownership_controls",
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

// AttachAWSBucketSecurity patches the security scan result of one active
// bucket outside of an identity sync. Lifecycle flags are never touched.
func (s *Store) AttachAWSBucketSecurity(accountID, bucketName string, b canonical.AWSBucket, scanErr string) error {
	return s.db.Model(&models.AWSBucket{}).
		Where("account_id = ? AND bucket_name = ? AND is_active = ?", normalizeAWSAccountID(accountID), bucketName, true).
		Updates(map[string]any{
			"public_access_block_enabled": b.PublicAccessBlockEnabled,
			"block_public_acls":           b.BlockPublicAcls,
			"ignore_public_acls":          b.IgnorePublicAcls,
			"block_public_policy":         b.BlockPublicPolicy,
			"restrict_public_buckets":     b.RestrictPublicBuckets,
			"policy_is_public":            b.PolicyIsPublic,
			"encryption_enabled":          b.EncryptionEnabled,
			"encryption_algorithm":        b.EncryptionAlgorithm,
			"kms_key_id":                  b.KmsKeyID,
			"versioning_status":           b.VersioningStatus,
			"lifecycle_enabled":           b.LifecycleEnabled,
			"lifecycle_rule_count":        b.LifecycleRuleCount,
			"access_logging_enabled":      b.AccessLoggingEnabled,
			"access_log_target_bucket":    b.AccessLogTargetBucket,
			"access_log_target_prefix":    b.AccessLogTargetPrefix,
			"object_lock_enabled":         b.ObjectLockEnabled,
			"ownership_controls":          b.OwnershipControls,
			"last_security_scan_at":       now(),
			"security_error":              nilIfEmpty(scanErr),
		}).Error
}

// SyncFileSystems converges the EFS file systems of one account.
func (s *Store) SyncFileSystems(accountID string, fileSystems []canonical.FileSystem) error {
	seenAt := now()
	scope := normalizeAWSAccountID(accountID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.EFSFileSystem{}).
			Where("account_id = ?", scope).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		for _, fs := range fileSystems {
			row := models.EFSFileSystem{
				AccountID:                  scope,
				FileSystemID:               fs.FileSystemID,
				Name:                       fs.Name,
				Region:                     fs.Region,
				LifecycleState:             fs.LifecycleState,
				PerformanceMode:            fs.PerformanceMode,
				ThroughputMode:             fs.ThroughputMode,
				Encrypted:                  fs.Encrypted,
				ProvisionedThroughputMibps: fs.ProvisionedThroughputMibps,
				SizeBytes:                  fs.SizeBytes,
				CreationTime:               fs.CreationTime,
				IsActive:                   true,
				LastSeenAt:                 seenAt,
				LastSyncAt:                 timePtr(seenAt),
				LastError:                  fs.LastError,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}, {Name: "file_system_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "region", "lifecycle_state", "performance_mode", "throughput_mode",
					"encrypted", "provisioned_throughput_mibps", "size_bytes", "creation_time",
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

// GetAWSAccount returns one active account, or nil when unknown.
func (s *Store) GetAWSAccount(accountID string) (*models.AWSAccount, error) {
	var row models.AWSAccount
	err := s.db.Where("account_id = ? AND is_active = ?", normalizeAWSAccountID(accountID), true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListAWSBuckets returns active buckets of an account ordered by name.
func (s *Store) ListAWSBuckets(accountID string) ([]models.AWSBucket, error) {
	var rows []models.AWSBucket
	err := s.db.Where("account_id = ? AND is_active = ?", normalizeAWSAccountID(accountID), true).
		Order("bucket_name COLLATE NOCASE").
		Find(&rows).Error
	return rows, err
}

// ListFileSystems returns active file systems of an account ordered by
// display name, falling back to the file system id.
func (s *Store) ListFileSystems(accountID string) ([]models.EFSFileSystem, error) {
	var rows []models.EFSFileSystem
	err := s.db.Where("account_id = ? AND is_active = ?", normalizeAWSAccountID(accountID), true).
		Order("COALESCE(name, file_system_id) COLLATE NOCASE").
		Find(&rows).Error
	return rows, err
}

// AWSAccountReport is the aggregated per-account view: bucket and EFS
// roll-ups over active children plus security scan counters. The transfer
// sums are NULL (unmeasured) unless at least one active bucket carries the
// metric, so "no data yet" never reads as zero.
type AWSAccountReport struct {
	AccountID                    string  `gorm:"column:account_id" json:"accountId"`
	DisplayName                  string  `gorm:"column:display_name" json:"displayName"`
	Region                       *string `gorm:"column:region" json:"region"`
	CloudWatchRegion             *string `gorm:"column:cloudwatch_region" json:"cloudwatchRegion"`
	S3Endpoint                   *string `gorm:"column:s3_endpoint" json:"s3Endpoint"`
	ForcePathStyle               bool    `gorm:"column:force_path_style" json:"forcePathStyle"`
	RequestMetricsEnabledDefault bool    `gorm:"column:request_metrics_enabled_default" json:"requestMetricsEnabledDefault"`

	LastSeenAt time.Time  `gorm:"column:last_seen_at" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`

	TotalUsageBytes  int64  `gorm:"column:total_usage_bytes" json:"totalUsageBytes"`
	TotalObjectCount int64  `gorm:"column:total_object_count" json:"totalObjectCount"`
	BucketCount      int64  `gorm:"column:bucket_count" json:"bucketCount"`
	BucketNames      string `gorm:"column:bucket_names_csv" json:"bucketNames"`

	TotalEgressBytes24h  *int64 `gorm:"column:total_egress_bytes_24h" json:"totalEgressBytes24h"`
	TotalIngressBytes24h *int64 `gorm:"column:total_ingress_bytes_24h" json:"totalIngressBytes24h"`
	TotalTransactions24h *int64 `gorm:"column:total_transactions_24h" json:"totalTransactions24h"`
	TotalEgressBytes30d  *int64 `gorm:"column:total_egress_bytes_30d" json:"totalEgressBytes30d"`
	TotalIngressBytes30d *int64 `gorm:"column:total_ingress_bytes_30d" json:"totalIngressBytes30d"`
	TotalTransactions30d *int64 `gorm:"column:total_transactions_30d" json:"totalTransactions30d"`

	LastBucketSyncAt         *time.Time `gorm:"-" json:"lastBucketSyncAt"`
	LastSecurityScanAt       *time.Time `gorm:"-" json:"lastSecurityScanAt"`
	LastBucketError          *string    `gorm:"column:last_bucket_error" json:"lastBucketError"`
	SecurityScanBucketCount  int64      `gorm:"column:security_scan_bucket_count" json:"securityScanBucketCount"`
	SecurityErrorBucketCount int64      `gorm:"column:security_error_bucket_count" json:"securityErrorBucketCount"`

	EFSCount          int64      `gorm:"column:efs_count" json:"efsCount"`
	TotalEFSSizeBytes int64      `gorm:"column:total_efs_size_bytes" json:"totalEfsSizeBytes"`
	LastEFSSyncAt     *time.Time `gorm:"-" json:"lastEfsSyncAt"`
	LastEFSError      *string    `gorm:"column:last_efs_error" json:"lastEfsError"`
	EFSNames          string     `gorm:"column:efs_names_csv" json:"efsNames"`

	// aggregate datetimes arrive as text, parsed in ListAWSAccounts
	LastBucketSyncAtRaw   *string `gorm:"column:last_bucket_sync_at" json:"-"`
	LastSecurityScanAtRaw *string `gorm:"column:last_security_scan_at" json:"-"`
	LastEFSSyncAtRaw      *string `gorm:"column:last_efs_sync_at" json:"-"`
}

const awsAccountReportQuery = `
SELECT
  aa.account_id,
  aa.display_name,
  aa.region,
  aa.cloudwatch_region,
  aa.s3_endpoint,
  aa.force_path_style,
  aa.request_metrics_enabled_default,
  aa.last_seen_at,
  aa.last_sync_at,
  aa.last_error,
  IFNULL(ab_agg.total_usage_bytes, 0) AS total_usage_bytes,
  IFNULL(ab_agg.total_object_count, 0) AS total_object_count,
  IFNULL(ab_agg.bucket_count, 0) AS bucket_count,
  ab_agg.total_egress_bytes_24h AS total_egress_bytes_24h,
  ab_agg.total_ingress_bytes_24h AS total_ingress_bytes_24h,
  ab_agg.total_transactions_24h AS total_transactions_24h,
  ab_agg.total_egress_bytes_30d AS total_egress_bytes_30d,
  ab_agg.total_ingress_bytes_30d AS total_ingress_bytes_30d,
  ab_agg.total_transactions_30d AS total_transactions_30d,
  ab_agg.last_bucket_sync_at AS last_bucket_sync_at,
  ab_agg.last_security_scan_at AS last_security_scan_at,
  ab_agg.last_bucket_error AS last_bucket_error,
  IFNULL(ab_agg.security_scan_bucket_count, 0) AS security_scan_bucket_count,
  IFNULL(ab_agg.security_error_bucket_count, 0) AS security_error_bucket_count,
  IFNULL(ab_agg.bucket_names_csv, '') AS bucket_names_csv,
  IFNULL(ae_agg.efs_count, 0) AS efs_count,
  IFNULL(ae_agg.total_efs_size_bytes, 0) AS total_efs_size_bytes,
  ae_agg.last_efs_sync_at AS last_efs_sync_at,
  ae_agg.last_efs_error AS last_efs_error,
  IFNULL(ae_agg.efs_names_csv, '') AS efs_names_csv
FROM aws_accounts aa
LEFT JOIN (
  SELECT
    account_id,
    IFNULL(SUM(CASE WHEN is_active = 1 THEN usage_bytes ELSE 0 END), 0) AS total_usage_bytes,
    IFNULL(SUM(CASE WHEN is_active = 1 THEN object_count ELSE 0 END), 0) AS total_object_count,
    IFNULL(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0) AS bucket_count,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND egress_bytes_24h IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(egress_bytes_24h, 0) ELSE 0 END)
      ELSE NULL
    END AS total_egress_bytes_24h,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND ingress_bytes_24h IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(ingress_bytes_24h, 0) ELSE 0 END)
      ELSE NULL
    END AS total_ingress_bytes_24h,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND transactions_24h IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(transactions_24h, 0) ELSE 0 END)
      ELSE NULL
    END AS total_transactions_24h,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND egress_bytes_30d IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(egress_bytes_30d, 0) ELSE 0 END)
      ELSE NULL
    END AS total_egress_bytes_30d,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND ingress_bytes_30d IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(ingress_bytes_30d, 0) ELSE 0 END)
      ELSE NULL
    END AS total_ingress_bytes_30d,
    CASE
      WHEN SUM(CASE WHEN is_active = 1 AND transactions_30d IS NOT NULL THEN 1 ELSE 0 END) > 0
        THEN SUM(CASE WHEN is_active = 1 THEN IFNULL(transactions_30d, 0) ELSE 0 END)
      ELSE NULL
    END AS total_transactions_30d,
    MAX(CASE WHEN is_active = 1 THEN last_sync_at ELSE NULL END) AS last_bucket_sync_at,
    MAX(CASE WHEN is_active = 1 THEN last_security_scan_at ELSE NULL END) AS last_security_scan_at,
    MAX(CASE WHEN is_active = 1 THEN last_error ELSE NULL END) AS last_bucket_error,
    IFNULL(SUM(CASE WHEN is_active = 1 AND last_security_scan_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS security_scan_bucket_count,
    IFNULL(SUM(CASE WHEN is_active = 1 AND security_error IS NOT NULL AND security_error <> '' THEN 1 ELSE 0 END), 0) AS security_error_bucket_count,
    IFNULL(GROUP_CONCAT(CASE WHEN is_active = 1 THEN bucket_name END, ' ' ORDER BY bucket_name COLLATE NOCASE), '') AS bucket_names_csv
  FROM aws_buckets
  GROUP BY account_id
) ab_agg ON ab_agg.account_id = aa.account_id
LEFT JOIN (
  SELECT
    account_id,
    IFNULL(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0) AS efs_count,
    IFNULL(SUM(CASE WHEN is_active = 1 THEN IFNULL(size_bytes, 0) ELSE 0 END), 0) AS total_efs_size_bytes,
    MAX(CASE WHEN is_active = 1 THEN last_sync_at ELSE NULL END) AS last_efs_sync_at,
    MAX(CASE WHEN is_active = 1 THEN last_error ELSE NULL END) AS last_efs_error,
    IFNULL(GROUP_CONCAT(CASE WHEN is_active = 1 THEN COALESCE(name, file_system_id) END, ' ' ORDER BY COALESCE(name, file_system_id) COLLATE NOCASE), '') AS efs_names_csv
  FROM aws_efs_file_systems
  GROUP BY account_id
) ae_agg ON ae_agg.account_id = aa.account_id
WHERE aa.is_active = 1`

// ListAWSAccounts aggregates active accounts with their active buckets and
// file systems, optionally filtered to a set of account ids.
func (s *Store) ListAWSAccounts(accountIDs []string) ([]AWSAccountReport, error) {
	var rows []AWSAccountReport
	var err error
	if len(accountIDs) > 0 {
		ids := make([]string, 0, len(accountIDs))
		for _, id := range accountIDs {
			if n := normalizeAWSAccountID(id); n != "" {
				ids = append(ids, n)
			}
		}
		query := awsAccountReportQuery + ` AND aa.account_id IN ?
ORDER BY aa.display_name COLLATE NOCASE`
		err = s.db.Raw(query, ids).Scan(&rows).Error
	} else {
		query := awsAccountReportQuery + `
ORDER BY aa.display_name COLLATE NOCASE`
		err = s.db.Raw(query).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LastBucketSyncAt = parseAggregateTime(rows[i].LastBucketSyncAtRaw)
		rows[i].LastSecurityScanAt = parseAggregateTime(rows[i].LastSecurityScanAtRaw)
		rows[i].LastEFSSyncAt = parseAggregateTime(rows[i].LastEFSSyncAtRaw)
		rows[i].LastBucketSyncAtRaw, rows[i].LastSecurityScanAtRaw, rows[i].LastEFSSyncAtRaw = nil, nil, nil
		if rows[i].LastError == nil {
			if rows[i].LastBucketError != nil {
				rows[i].LastError = rows[i].LastBucketError
			} else {
				rows[i].LastError = rows[i].LastEFSError
			}
		}
	}
	return rows, nil
}
