package inventory

import (
	"time"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncStorageAccounts converges the storage accounts of one subscription to
// the observed set. The scope is the subscription id; rows outside it are
// untouched.
func (s *Store) SyncStorageAccounts(subscriptionID string, accounts []canonical.StorageAccount) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.StorageAccount{}).
			Where("subscription_id = ?", subscriptionID).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		for _, acc := range accounts {
			row := models.StorageAccount{
				AccountID:         acc.AccountID,
				SubscriptionID:    subscriptionID,
				Name:              acc.Name,
				ResourceGroupName: acc.ResourceGroupName,
				Location:          acc.Location,
				Kind:              acc.Kind,
				SkuName:           acc.SkuName,
				TagsJSON:          acc.TagsJSON,
				BlobEndpoint:      acc.BlobEndpoint,
				IsActive:          true,
				LastSeenAt:        seenAt,
				LastAccountSyncAt: timePtr(seenAt),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"subscription_id", "name", "resource_group_name", "location", "kind",
					"sku_name", "tags_json", "blob_endpoint", "is_active", "last_seen_at", "last_account_sync_at",
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetStorageAccount returns one active account, or nil when unknown.
func (s *Store) GetStorageAccount(accountID string) (*models.StorageAccount, error) {
	var row models.StorageAccount
	err := s.db.Where("account_id = ? AND is_active = ?", accountID, true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// StorageAccountMetricsPatch carries optional metric inputs for one account.
// Fields are untyped on purpose: the tolerant coercion turns anything that is
// not a finite number into NULL, keeping "not measured" distinct from zero.
type StorageAccountMetricsPatch struct {
	UsedCapacityBytes any
	EgressBytes24h    any
	IngressBytes24h   any
	Transactions24h   any
	EgressBytes30d    any
	IngressBytes30d   any
	Transactions30d   any
	Error             string
}

// AttachStorageAccountMetrics patches the metrics sub-record of an active
// account. Lifecycle flags are never touched; the scan timestamp is always
// refreshed and the previous error is overwritten with the latest one.
func (s *Store) AttachStorageAccountMetrics(accountID string, p StorageAccountMetricsPatch) error {
	return s.db.Model(&models.StorageAccount{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Updates(map[string]any{
			"metrics_used_capacity_bytes": canonical.Int64OrNil(p.UsedCapacityBytes),
			"metrics_egress_bytes_24h":    canonical.Int64OrNil(p.EgressBytes24h),
			"metrics_ingress_bytes_24h":   canonical.Int64OrNil(p.IngressBytes24h),
			"metrics_transactions_24h":    canonical.Int64OrNil(p.Transactions24h),
			"metrics_egress_bytes_30d":    canonical.Int64OrNil(p.EgressBytes30d),
			"metrics_ingress_bytes_30d":   canonical.Int64OrNil(p.IngressBytes30d),
			"metrics_transactions_30d":    canonical.Int64OrNil(p.Transactions30d),
			"metrics_last_scan_at":        now(),
			"metrics_last_error":          nilIfEmpty(p.Error),
		}).Error
}

// AttachStorageAccountSecurity upserts the one-to-one security profile of an
// active account. A patch for an unknown or inactive account is a no-op.
func (s *Store) AttachStorageAccountSecurity(accountID string, profileJSON *string, scanErr string) error {
	acc, err := s.GetStorageAccount(accountID)
	if err != nil {
		return err
	}
	if acc == nil {
		return nil
	}
	row := models.StorageAccountSecurity{
		AccountID:          accountID,
		ProfileJSON:        profileJSON,
		LastSecurityScanAt: timePtr(now()),
		LastError:          nilIfEmpty(scanErr),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_json", "last_security_scan_at", "last_error"}),
	}).Create(&row).Error
}

// GetStorageAccountSecurity returns the security profile row, or nil when no
// scan has ever completed for the account.
func (s *Store) GetStorageAccountSecurity(accountID string) (*models.StorageAccountSecurity, error) {
	var row models.StorageAccountSecurity
	err := s.db.Where("account_id = ?", accountID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Store) GetStorageAccountSecurityMany(accountIDs []string) ([]models.StorageAccountSecurity, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	var rows []models.StorageAccountSecurity
	err := s.db.Where("account_id IN ?", accountIDs).Find(&rows).Error
	return rows, err
}

// StorageAccountReport is the aggregated view of one account: identity plus
// container roll-ups and latest scan bookkeeping, computed at read time.
type StorageAccountReport struct {
	AccountID         string  `gorm:"column:account_id" json:"accountId"`
	SubscriptionID    string  `gorm:"column:subscription_id" json:"subscriptionId"`
	SubscriptionName  *string `gorm:"column:subscription_name" json:"subscriptionName"`
	Name              string  `gorm:"column:name" json:"name"`
	ResourceGroupName *string `gorm:"column:resource_group_name" json:"resourceGroupName"`
	Location          *string `gorm:"column:location" json:"location"`
	Kind              *string `gorm:"column:kind" json:"kind"`
	SkuName           *string `gorm:"column:sku_name" json:"skuName"`
	TagsJSON          *string `gorm:"column:tags_json" json:"tagsJson"`
	BlobEndpoint      *string `gorm:"column:blob_endpoint" json:"blobEndpoint"`

	LastAccountSyncAt *time.Time `gorm:"column:last_account_sync_at" json:"lastAccountSyncAt"`

	MetricsUsedCapacityBytes *int64     `gorm:"column:metrics_used_capacity_bytes" json:"metricsUsedCapacityBytes"`
	MetricsEgressBytes24h    *int64     `gorm:"column:metrics_egress_bytes_24h" json:"metricsEgressBytes24h"`
	MetricsIngressBytes24h   *int64     `gorm:"column:metrics_ingress_bytes_24h" json:"metricsIngressBytes24h"`
	MetricsTransactions24h   *int64     `gorm:"column:metrics_transactions_24h" json:"metricsTransactions24h"`
	MetricsEgressBytes30d    *int64     `gorm:"column:metrics_egress_bytes_30d" json:"metricsEgressBytes30d"`
	MetricsIngressBytes30d   *int64     `gorm:"column:metrics_ingress_bytes_30d" json:"metricsIngressBytes30d"`
	MetricsTransactions30d   *int64     `gorm:"column:metrics_transactions_30d" json:"metricsTransactions30d"`
	MetricsLastScanAt        *time.Time `gorm:"column:metrics_last_scan_at" json:"metricsLastScanAt"`
	MetricsLastError         *string    `gorm:"column:metrics_last_error" json:"metricsLastError"`

	TotalSizeBytes     int64      `gorm:"column:total_size_bytes" json:"totalSizeBytes"`
	TotalBlobCount     int64      `gorm:"column:total_blob_count" json:"totalBlobCount"`
	ContainerCount     int64      `gorm:"column:container_count" json:"containerCount"`
	LastSizeScanAt     *time.Time `gorm:"-" json:"lastSizeScanAt"`
	LastSecurityScanAt *time.Time `gorm:"-" json:"lastSecurityScanAt"`
	LastSecurityError  *string    `gorm:"column:last_security_error" json:"lastSecurityError"`

	// aggregate datetimes arrive as text, parsed in ListStorageAccounts
	LastSizeScanAtRaw     *string `gorm:"column:last_size_scan_at" json:"-"`
	LastSecurityScanAtRaw *string `gorm:"column:last_security_scan_at" json:"-"`
}

// ListStorageAccounts aggregates active accounts and their active containers,
// optionally filtered to a set of subscriptions. Inactive containers
// contribute nothing.
func (s *Store) ListStorageAccounts(subscriptionIDs []string) ([]StorageAccountReport, error) {
	query := `
SELECT
  sa.account_id,
  sa.subscription_id,
  s.display_name AS subscription_name,
  sa.name,
  sa.resource_group_name,
  sa.location,
  sa.kind,
  sa.sku_name,
  sa.tags_json,
  sa.blob_endpoint,
  sa.last_account_sync_at,
  sa.metrics_used_capacity_bytes,
  sa.metrics_egress_bytes_24h,
  sa.metrics_ingress_bytes_24h,
  sa.metrics_transactions_24h,
  sa.metrics_egress_bytes_30d,
  sa.metrics_ingress_bytes_30d,
  sa.metrics_transactions_30d,
  sa.metrics_last_scan_at,
  sa.metrics_last_error,
  IFNULL(SUM(CASE WHEN c.is_active = 1 THEN c.last_size_bytes ELSE 0 END), 0) AS total_size_bytes,
  IFNULL(SUM(CASE WHEN c.is_active = 1 THEN c.blob_count ELSE 0 END), 0) AS total_blob_count,
  IFNULL(SUM(CASE WHEN c.is_active = 1 THEN 1 ELSE 0 END), 0) AS container_count,
  MAX(c.last_size_scan_at) AS last_size_scan_at,
  MAX(sas.last_security_scan_at) AS last_security_scan_at,
  MAX(sas.last_error) AS last_security_error
FROM storage_accounts sa
LEFT JOIN containers c ON c.account_id = sa.account_id
LEFT JOIN subscriptions s ON s.subscription_id = sa.subscription_id
LEFT JOIN storage_account_security sas ON sas.account_id = sa.account_id
WHERE sa.is_active = 1`
	var rows []StorageAccountReport
	var err error
	if len(subscriptionIDs) > 0 {
		query += ` AND sa.subscription_id IN ?
GROUP BY sa.account_id
ORDER BY sa.name COLLATE NOCASE`
		err = s.db.Raw(query, subscriptionIDs).Scan(&rows).Error
	} else {
		query += `
GROUP BY sa.account_id
ORDER BY sa.name COLLATE NOCASE`
		err = s.db.Raw(query).Scan(&rows).Error
	}
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].LastSizeScanAt = parseAggregateTime(rows[i].LastSizeScanAtRaw)
		rows[i].LastSecurityScanAt = parseAggregateTime(rows[i].LastSecurityScanAtRaw)
		rows[i].LastSizeScanAtRaw, rows[i].LastSecurityScanAtRaw = nil, nil
	}
	return rows, nil
}
