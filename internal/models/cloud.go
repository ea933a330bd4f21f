package models

import (
	"time"
)

// WasabiAccount is a top-level scope: account identity sync has no parent,
// so a fleet sync marks every row of the table.
type WasabiAccount struct {
	AccountID     string  `gorm:"column:account_id;primaryKey" json:"accountId"`
	DisplayName   string  `gorm:"column:display_name;not null" json:"displayName"`
	Region        *string `gorm:"column:region" json:"region"`
	S3Endpoint    *string `gorm:"column:s3_endpoint" json:"s3Endpoint"`
	StatsEndpoint *string `gorm:"column:stats_endpoint" json:"statsEndpoint"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null;index:idx_wasabi_accounts_seen" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`
}

func (WasabiAccount) TableName() string { return "wasabi_accounts" }

type WasabiBucket struct {
	ID         uint    `gorm:"column:id;primaryKey" json:"id"`
	AccountID  string  `gorm:"column:account_id;not null;uniqueIndex:idx_wasabi_buckets_acc_name;index:idx_wasabi_buckets_acc" json:"accountId"`
	BucketName string  `gorm:"column:bucket_name;not null;uniqueIndex:idx_wasabi_buckets_acc_name" json:"bucketName"`
	CreatedAt  *string `gorm:"column:created_at" json:"createdAt"`

	UsageBytes  *int64 `gorm:"column:usage_bytes" json:"usageBytes"`
	ObjectCount *int64 `gorm:"column:object_count" json:"objectCount"`

	UtilizationFromDate   *string `gorm:"column:utilization_from_date" json:"utilizationFromDate"`
	UtilizationToDate     *string `gorm:"column:utilization_to_date" json:"utilizationToDate"`
	UtilizationRecordedAt *string `gorm:"column:utilization_recorded_at" json:"utilizationRecordedAt"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`
}

func (WasabiBucket) TableName() string { return "wasabi_buckets" }

// AWSAccount ids are normalized to lowercase on write and on filter.
type AWSAccount struct {
	AccountID                    string  `gorm:"column:account_id;primaryKey" json:"accountId"`
	DisplayName                  string  `gorm:"column:display_name;not null" json:"displayName"`
	Region                       *string `gorm:"column:region" json:"region"`
	CloudWatchRegion             *string `gorm:"column:cloudwatch_region" json:"cloudwatchRegion"`
	S3Endpoint                   *string `gorm:"column:s3_endpoint" json:"s3Endpoint"`
	ForcePathStyle               bool    `gorm:"column:force_path_style;not null;default:false" json:"forcePathStyle"`
	RequestMetricsEnabledDefault bool    `gorm:"column:request_metrics_enabled_default;not null;default:false" json:"requestMetricsEnabledDefault"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null;index:idx_aws_accounts_seen" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`
}

func (AWSAccount) TableName() string { return "aws_accounts" }

// AWSBucket carries identity, transfer metrics and an extended security/config
// profile. The security columns are attached by a separate scan and keep their
// own scan time/error.
type AWSBucket struct {
	ID         uint    `gorm:"column:id;primaryKey" json:"id"`
	AccountID  string  `gorm:"column:account_id;not null;uniqueIndex:idx_aws_buckets_acc_name;index:idx_aws_buckets_acc" json:"accountId"`
	BucketName string  `gorm:"column:bucket_name;not null;uniqueIndex:idx_aws_buckets_acc_name" json:"bucketName"`
	CreatedAt  *string `gorm:"column:created_at" json:"createdAt"`

	UsageBytes  *int64 `gorm:"column:usage_bytes" json:"usageBytes"`
	ObjectCount *int64 `gorm:"column:object_count" json:"objectCount"`

	EgressBytes24h  *int64 `gorm:"column:egress_bytes_24h" json:"egressBytes24h"`
	IngressBytes24h *int64 `gorm:"column:ingress_bytes_24h" json:"ingressBytes24h"`
	Transactions24h *int64 `gorm:"column:transactions_24h" json:"transactions24h"`
	EgressBytes30d  *int64 `gorm:"column:egress_bytes_30d" json:"egressBytes30d"`
	IngressBytes30d *int64 `gorm:"column:ingress_bytes_30d" json:"ingressBytes30d"`
	Transactions30d *int64 `gorm:"column:transactions_30d" json:"transactions30d"`

	RequestMetricsAvailable bool    `gorm:"column:request_metrics_available;not null;default:false" json:"requestMetricsAvailable"`
	RequestMetricsError     *string `gorm:"column:request_metrics_error" json:"requestMetricsError"`
	SizeSource              *string `gorm:"column:size_source" json:"sizeSource"`
	StorageTypeHint         *string `gorm:"column:storage_type_hint" json:"storageTypeHint"`
	ScanMode                *string `gorm:"column:scan_mode" json:"scanMode"`

	PublicAccessBlockEnabled *bool   `gorm:"column:public_access_block_enabled" json:"publicAccessBlockEnabled"`
	BlockPublicAcls          *bool   `gorm:"column:block_public_acls" json:"blockPublicAcls"`
	IgnorePublicAcls         *bool   `gorm:"column:ignore_public_acls" json:"ignorePublicAcls"`
	BlockPublicPolicy        *bool   `gorm:"column:block_public_policy" json:"blockPublicPolicy"`
	RestrictPublicBuckets    *bool   `gorm:"column:restrict_public_buckets" json:"restrictPublicBuckets"`
	PolicyIsPublic           *bool   `gorm:"column:policy_is_public" json:"policyIsPublic"`
	EncryptionEnabled        *bool   `gorm:"column:encryption_enabled" json:"encryptionEnabled"`
	EncryptionAlgorithm      *string `gorm:"column:encryption_algorithm" json:"encryptionAlgorithm"`
	KmsKeyID                 *string `gorm:"column:kms_key_id" json:"kmsKeyId"`
	VersioningStatus         *string `gorm:"column:versioning_status" json:"versioningStatus"`
	LifecycleEnabled         *bool   `gorm:"column:lifecycle_enabled" json:"lifecycleEnabled"`
	LifecycleRuleCount       *int64  `gorm:"column:lifecycle_rule_count" json:"lifecycleRuleCount"`
	AccessLoggingEnabled     *bool   `gorm:"column:access_logging_enabled" json:"accessLoggingEnabled"`
	AccessLogTargetBucket    *string `gorm:"column:access_log_target_bucket" json:"accessLogTargetBucket"`
	AccessLogTargetPrefix    *string `gorm:"column:access_log_target_prefix" json:"accessLogTargetPrefix"`
	ObjectLockEnabled        *bool   `gorm:"column:object_lock_enabled" json:"objectLockEnabled"`
	OwnershipControls        *string `gorm:"column:ownership_controls" json:"ownershipControls"`

	LastSecurityScanAt *time.Time `gorm:"column:last_security_scan_at" json:"lastSecurityScanAt"`
	SecurityError      *string    `gorm:"column:security_error" json:"securityError"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`
}

func (AWSBucket) TableName() string { return "aws_buckets" }

// EFSFileSystem is unique per (account, file_system_id).
type EFSFileSystem struct {
	ID           uint    `gorm:"column:id;primaryKey" json:"id"`
	AccountID    string  `gorm:"column:account_id;not null;uniqueIndex:idx_aws_efs_acc_fsid;index:idx_aws_efs_acc" json:"accountId"`
	FileSystemID string  `gorm:"column:file_system_id;not null;uniqueIndex:idx_aws_efs_acc_fsid" json:"fileSystemId"`
	Name         *string `gorm:"column:name" json:"name"`
	Region       *string `gorm:"column:region" json:"region"`

	LifecycleState             *string  `gorm:"column:lifecycle_state" json:"lifecycleState"`
	PerformanceMode            *string  `gorm:"column:performance_mode" json:"performanceMode"`
	ThroughputMode             *string  `gorm:"column:throughput_mode" json:"throughputMode"`
	Encrypted                  *bool    `gorm:"column:encrypted" json:"encrypted"`
	ProvisionedThroughputMibps *float64 `gorm:"column:provisioned_throughput_mibps" json:"provisionedThroughputMibps"`
	SizeBytes                  *int64   `gorm:"column:size_bytes" json:"sizeBytes"`
	CreationTime               *string  `gorm:"column:creation_time" json:"creationTime"`

	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastSeenAt time.Time  `gorm:"column:last_seen_at;not null" json:"lastSeenAt"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at" json:"lastSyncAt"`
	LastError  *string    `gorm:"column:last_error" json:"lastError"`
}

func (EFSFileSystem) TableName() string { return "aws_efs_file_systems" }
