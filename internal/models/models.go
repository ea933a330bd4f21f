package models

import (
	"time"
)

// Subscription is an Azure-style subscription. is_selected is a user
// preference and survives re-sync; is_active is owned by the reconciler.
type Subscription struct {
	SubscriptionID string    `gorm:"column:subscription_id;primaryKey" json:"subscriptionId"`
	DisplayName    string    `gorm:"column:display_name" json:"displayName"`
	TenantID       *string   `gorm:"column:tenant_id" json:"tenantId"`
	State          *string   `gorm:"column:state" json:"state"`
	IsSelected     bool      `gorm:"column:is_selected;not null;default:true" json:"isSelected"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt     time.Time `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

// StorageAccount belongs to a Subscription. The metrics_* columns are a
// sub-record attached out-of-band by the metrics scanner; they are nullable
// so "never measured" stays distinct from zero.
type StorageAccount struct {
	AccountID         string  `gorm:"column:account_id;primaryKey" json:"accountId"`
	SubscriptionID    string  `gorm:"column:subscription_id;not null;index:idx_accounts_sub" json:"subscriptionId"`
	Name              string  `gorm:"column:name;not null" json:"name"`
	ResourceGroupName *string `gorm:"column:resource_group_name" json:"resourceGroupName"`
	Location          *string `gorm:"column:location" json:"location"`
	Kind              *string `gorm:"column:kind" json:"kind"`
	SkuName           *string `gorm:"column:sku_name" json:"skuName"`
	TagsJSON          *string `gorm:"column:tags_json" json:"tagsJson"`
	BlobEndpoint      *string `gorm:"column:blob_endpoint" json:"blobEndpoint"`

	IsActive          bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt        time.Time  `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`
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
}

func (StorageAccount) TableName() string { return "storage_accounts" }

// Container is unique per (account, name). Size/blob-count are attached by
// the size scanner, not by identity sync.
type Container struct {
	ID            uint      `gorm:"column:id;primaryKey" json:"id"`
	AccountID     string    `gorm:"column:account_id;not null;uniqueIndex:idx_containers_acc_name;index:idx_containers_acc" json:"accountId"`
	ContainerName string    `gorm:"column:container_name;not null;uniqueIndex:idx_containers_acc_name" json:"containerName"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt    time.Time `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`

	LastSizeBytes  *int64     `gorm:"column:last_size_bytes" json:"lastSizeBytes"`
	BlobCount      *int64     `gorm:"column:blob_count" json:"blobCount"`
	LastSizeScanAt *time.Time `gorm:"column:last_size_scan_at" json:"lastSizeScanAt"`
	LastError      *string    `gorm:"column:last_error" json:"lastError"`
}

func (Container) TableName() string { return "containers" }

// StorageAccountSecurity is a one-to-one security profile blob per account.
type StorageAccountSecurity struct {
	AccountID          string     `gorm:"column:account_id;primaryKey" json:"accountId"`
	ProfileJSON        *string    `gorm:"column:profile_json" json:"profileJson"`
	LastSecurityScanAt *time.Time `gorm:"column:last_security_scan_at" json:"lastSecurityScanAt"`
	LastError          *string    `gorm:"column:last_error" json:"lastError"`
}

func (StorageAccountSecurity) TableName() string { return "storage_account_security" }

// PricingSnapshot is a single-row-per-key overwrite cache; value columns are
// nullable so a failed fetch is representable.
type PricingSnapshot struct {
	Provider        string    `gorm:"column:provider;primaryKey" json:"provider"`
	Profile         string    `gorm:"column:profile;primaryKey" json:"profile"`
	Currency        *string   `gorm:"column:currency" json:"currency"`
	RegionLabel     *string   `gorm:"column:region_label" json:"regionLabel"`
	Source          *string   `gorm:"column:source" json:"source"`
	AsOfDate        *string   `gorm:"column:as_of_date" json:"asOfDate"`
	AssumptionsJSON string    `gorm:"column:assumptions_json;not null" json:"assumptionsJson"`
	SyncedAt        time.Time `gorm:"column:synced_at;not null;index:idx_pricing_cache_synced" json:"syncedAt"`
	FetchStatus     string    `gorm:"column:fetch_status;not null;default:ok" json:"fetchStatus"`
	LastError       *string   `gorm:"column:last_error" json:"lastError"`
}

func (PricingSnapshot) TableName() string { return "pricing_cache" }

// IPAlias maps an IP address to a server label, independent of the inventory.
type IPAlias struct {
	IPAddress  string    `gorm:"column:ip_address;primaryKey" json:"ipAddress"`
	ServerName string    `gorm:"column:server_name;not null;index:idx_ip_aliases_name" json:"serverName"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (IPAlias) TableName() string { return "ip_aliases" }

// Setting is a small key/value table for app state such as the API token hash.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey" json:"key"`
	Value     string    `gorm:"column:value" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Setting) TableName() string { return "settings" }
