// Package canonical normalizes heterogeneous provider payload shapes into the
// record shapes the inventory store consumes. Each provider client returns
// differently cased/named fields; one explicit mapping function per entity
// family lives here so field lookups are not scattered through persistence
// code. Records missing their natural key are rejected at this stage.
package canonical

import (
	"encoding/json"
	"strings"
)

type Subscription struct {
	SubscriptionID string
	DisplayName    string
	TenantID       *string
	State          *string
}

type StorageAccount struct {
	AccountID         string
	Name              string
	ResourceGroupName *string
	Location          *string
	Kind              *string
	SkuName           *string
	TagsJSON          *string
	BlobEndpoint      *string
}

type Container struct {
	Name string
}

type WasabiAccount struct {
	AccountID     string
	DisplayName   string
	Region        *string
	S3Endpoint    *string
	StatsEndpoint *string
}

type WasabiBucket struct {
	BucketName            string
	CreatedAt             *string
	UsageBytes            *int64
	ObjectCount           *int64
	UtilizationFromDate   *string
	UtilizationToDate     *string
	UtilizationRecordedAt *string
	LastError             *string
}

type AWSAccount struct {
	AccountID                    string
	DisplayName                  string
	Region                       *string
	CloudWatchRegion             *string
	S3Endpoint                   *string
	ForcePathStyle               bool
	RequestMetricsEnabledDefault bool
}

type AWSBucket struct {
	BucketName  string
	CreatedAt   *string
	UsageBytes  *int64
	ObjectCount *int64

	EgressBytes24h  *int64
	IngressBytes24h *int64
	Transactions24h *int64
	EgressBytes30d  *int64
	IngressBytes30d *int64
	Transactions30d *int64

	RequestMetricsAvailable bool
	RequestMetricsError     *string
	SizeSource              *string
	StorageTypeHint         *string
	ScanMode                *string

	PublicAccessBlockEnabled *bool
	BlockPublicAcls          *bool
	IgnorePublicAcls         *bool
	BlockPublicPolicy        *bool
	RestrictPublicBuckets    *bool
	PolicyIsPublic           *bool
	EncryptionEnabled        *bool
	EncryptionAlgorithm      *string
	KmsKeyID                 *string
	VersioningStatus         *string
	LifecycleEnabled         *bool
	LifecycleRuleCount       *int64
	AccessLoggingEnabled     *bool
	AccessLogTargetBucket    *string
	AccessLogTargetPrefix    *string
	ObjectLockEnabled        *bool
	OwnershipControls        *string

	LastError *string
}

type IPAlias struct {
	IPAddress  string
	ServerName string
}

type FileSystem struct {
	FileSystemID               string
	Name                       *string
	Region                     *string
	LifecycleState             *string
	PerformanceMode            *string
	ThroughputMode             *string
	Encrypted                  *bool
	ProvisionedThroughputMibps *float64
	SizeBytes                  *int64
	CreationTime               *string
	LastError                  *string
}

// MapSubscription maps an Azure-style subscription payload. The second return
// is false when the natural key is missing and the record must be dropped.
func MapSubscription(raw map[string]any) (Subscription, bool) {
	id := strings.TrimSpace(str(raw, "subscriptionId", "subscription_id"))
	if id == "" {
		return Subscription{}, false
	}
	display := strings.TrimSpace(str(raw, "displayName", "display_name"))
	if display == "" {
		display = id
	}
	return Subscription{
		SubscriptionID: id,
		DisplayName:    display,
		TenantID:       strPtr(raw, "tenantId", "tenant_id"),
		State:          strPtr(raw, "state"),
	}, true
}

// MapStorageAccount maps an Azure-style storage account payload, including the
// nested sku/properties paths and the resource group embedded in the id.
func MapStorageAccount(raw map[string]any) (StorageAccount, bool) {
	id := strings.TrimSpace(str(raw, "id", "accountId", "account_id"))
	if id == "" {
		return StorageAccount{}, false
	}
	name := strings.TrimSpace(str(raw, "name"))
	if name == "" {
		name = id
	}
	out := StorageAccount{
		AccountID:         id,
		Name:              name,
		ResourceGroupName: ResourceGroupFromID(id),
		Location:          strPtr(raw, "location"),
		Kind:              strPtr(raw, "kind"),
	}
	if sku, ok := raw["sku"].(map[string]any); ok {
		out.SkuName = strPtr(sku, "name")
	}
	out.TagsJSON = tagsJSON(raw["tags"])
	if props, ok := raw["properties"].(map[string]any); ok {
		if eps, ok := props["primaryEndpoints"].(map[string]any); ok {
			out.BlobEndpoint = strPtr(eps, "blob")
		}
	}
	return out, true
}

func MapContainer(raw map[string]any) (Container, bool) {
	name := strings.TrimSpace(str(raw, "name", "containerName", "container_name"))
	if name == "" {
		return Container{}, false
	}
	return Container{Name: name}, true
}

func MapWasabiAccount(raw map[string]any) (WasabiAccount, bool) {
	id := strings.TrimSpace(str(raw, "accountId", "account_id"))
	if id == "" {
		return WasabiAccount{}, false
	}
	display := strings.TrimSpace(str(raw, "displayName", "display_name"))
	if display == "" {
		display = id
	}
	return WasabiAccount{
		AccountID:     id,
		DisplayName:   display,
		Region:        strPtr(raw, "region"),
		S3Endpoint:    strPtr(raw, "s3Endpoint", "s3_endpoint"),
		StatsEndpoint: strPtr(raw, "statsEndpoint", "stats_endpoint"),
	}, true
}

func MapWasabiBucket(raw map[string]any) (WasabiBucket, bool) {
	name := strings.TrimSpace(str(raw, "bucketName", "bucket_name"))
	if name == "" {
		return WasabiBucket{}, false
	}
	return WasabiBucket{
		BucketName:            name,
		CreatedAt:             strPtr(raw, "createdAt", "created_at"),
		UsageBytes:            int64OrZero(first(raw, "usageBytes", "usage_bytes")),
		ObjectCount:           int64OrZero(first(raw, "objectCount", "object_count")),
		UtilizationFromDate:   strPtr(raw, "utilizationFromDate", "utilization_from_date"),
		UtilizationToDate:     strPtr(raw, "utilizationToDate", "utilization_to_date"),
		UtilizationRecordedAt: strPtr(raw, "utilizationRecordedAt", "utilization_recorded_at"),
		LastError:             strPtr(raw, "error", "last_error"),
	}, true
}

// MapAWSAccount lowercases the account id, which is the write-side half of the
// case-insensitive account filter contract.
func MapAWSAccount(raw map[string]any) (AWSAccount, bool) {
	id := strings.ToLower(strings.TrimSpace(str(raw, "accountId", "account_id")))
	if id == "" {
		return AWSAccount{}, false
	}
	display := strings.TrimSpace(str(raw, "displayName", "display_name"))
	if display == "" {
		display = id
	}
	return AWSAccount{
		AccountID:                    id,
		DisplayName:                  display,
		Region:                       strPtr(raw, "region"),
		CloudWatchRegion:             strPtr(raw, "cloudWatchRegion", "cloudwatch_region"),
		S3Endpoint:                   strPtr(raw, "s3Endpoint", "s3_endpoint"),
		ForcePathStyle:               boolVal(first(raw, "forcePathStyle", "force_path_style")),
		RequestMetricsEnabledDefault: boolVal(first(raw, "requestMetricsEnabledByDefault", "request_metrics_enabled_default")),
	}, true
}

func MapAWSBucket(raw map[string]any) (AWSBucket, bool) {
	name := strings.TrimSpace(str(raw, "bucketName", "bucket_name"))
	if name == "" {
		return AWSBucket{}, false
	}
	return AWSBucket{
		BucketName:  name,
		CreatedAt:   strPtr(raw, "createdAt", "created_at"),
		UsageBytes:  int64OrZero(first(raw, "usageBytes", "usage_bytes")),
		ObjectCount: int64OrZero(first(raw, "objectCount", "object_count")),

		EgressBytes24h:  Int64OrNil(first(raw, "egressBytes24h", "egress_bytes_24h")),
		IngressBytes24h: Int64OrNil(first(raw, "ingressBytes24h", "ingress_bytes_24h")),
		Transactions24h: Int64OrNil(first(raw, "transactions24h", "transactions_24h")),
		EgressBytes30d:  Int64OrNil(first(raw, "egressBytes30d", "egress_bytes_30d")),
		IngressBytes30d: Int64OrNil(first(raw, "ingressBytes30d", "ingress_bytes_30d")),
		Transactions30d: Int64OrNil(first(raw, "transactions30d", "transactions_30d")),

		RequestMetricsAvailable: boolVal(first(raw, "requestMetricsAvailable", "request_metrics_available")),
		RequestMetricsError:     strPtr(raw, "requestMetricsError", "request_metrics_error"),
		SizeSource:              strPtr(raw, "sizeSource", "size_source"),
		StorageTypeHint:         strPtr(raw, "storageTypeHint", "storage_type_hint"),
		ScanMode:                strPtr(raw, "scanMode", "scan_mode"),

		PublicAccessBlockEnabled: boolPtr(first(raw, "publicAccessBlockEnabled", "public_access_block_enabled")),
		BlockPublicAcls:          boolPtr(first(raw, "blockPublicAcls", "block_public_acls")),
		IgnorePublicAcls:         boolPtr(first(raw, "ignorePublicAcls", "ignore_public_acls")),
		BlockPublicPolicy:        boolPtr(first(raw, "blockPublicPolicy", "block_public_policy")),
		RestrictPublicBuckets:    boolPtr(first(raw, "restrictPublicBuckets", "restrict_public_buckets")),
		PolicyIsPublic:           boolPtr(first(raw, "policyIsPublic", "policy_is_public")),
		EncryptionEnabled:        boolPtr(first(raw, "encryptionEnabled", "encryption_enabled")),
		EncryptionAlgorithm:      strPtr(raw, "encryptionAlgorithm", "encryption_algorithm"),
		KmsKeyID:                 strPtr(raw, "kmsKeyId", "kms_key_id"),
		VersioningStatus:         strPtr(raw, "versioningStatus", "versioning_status"),
		LifecycleEnabled:         boolPtr(first(raw, "lifecycleEnabled", "lifecycle_enabled")),
		LifecycleRuleCount:       Int64OrNil(first(raw, "lifecycleRuleCount", "lifecycle_rule_count")),
		AccessLoggingEnabled:     boolPtr(first(raw, "accessLoggingEnabled", "access_logging_enabled")),
		AccessLogTargetBucket:    strPtr(raw, "accessLogTargetBucket", "access_log_target_bucket"),
		AccessLogTargetPrefix:    strPtr(raw, "accessLogTargetPrefix", "access_log_target_prefix"),
		ObjectLockEnabled:        boolPtr(first(raw, "objectLockEnabled", "object_lock_enabled")),
		OwnershipControls:        strPtr(raw, "ownershipControls", "ownership_controls"),

		LastError: strPtr(raw, "error", "last_error"),
	}, true
}

func MapFileSystem(raw map[string]any) (FileSystem, bool) {
	id := strings.TrimSpace(str(raw, "fileSystemId", "file_system_id"))
	if id == "" {
		return FileSystem{}, false
	}
	return FileSystem{
		FileSystemID:               id,
		Name:                       strPtr(raw, "name"),
		Region:                     strPtr(raw, "region"),
		LifecycleState:             strPtr(raw, "lifecycleState", "lifecycle_state"),
		PerformanceMode:            strPtr(raw, "performanceMode", "performance_mode"),
		ThroughputMode:             strPtr(raw, "throughputMode", "throughput_mode"),
		Encrypted:                  boolPtr(first(raw, "encrypted")),
		ProvisionedThroughputMibps: Float64OrNil(first(raw, "provisionedThroughputInMibps", "provisioned_throughput_mibps")),
		SizeBytes:                  Int64OrNil(first(raw, "sizeBytes", "size_bytes")),
		CreationTime:               strPtr(raw, "creationTime", "creation_time"),
		LastError:                  strPtr(raw, "error", "last_error"),
	}, true
}

// MapIPAlias normalizes the alias key (trimmed, lowercased IP) and label.
func MapIPAlias(raw map[string]any) (IPAlias, bool) {
	ip := strings.ToLower(strings.TrimSpace(str(raw, "ipAddress", "ip_address", "ip")))
	name := strings.TrimSpace(str(raw, "serverName", "server_name"))
	if ip == "" || name == "" {
		return IPAlias{}, false
	}
	return IPAlias{IPAddress: ip, ServerName: name}, true
}

// ResourceGroupFromID pulls the resource group segment out of an Azure
// resource id path (/subscriptions/x/resourceGroups/<name>/...).
func ResourceGroupFromID(id string) *string {
	parts := strings.Split(id, "/")
	for i, part := range parts {
		if strings.EqualFold(part, "resourcegroups") && i+1 < len(parts) && parts[i+1] != "" {
			rg := parts[i+1]
			return &rg
		}
	}
	return nil
}

func tagsJSON(v any) *string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// str returns the first non-empty string value among the given keys.
func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func strPtr(raw map[string]any, keys ...string) *string {
	if s := strings.TrimSpace(str(raw, keys...)); s != "" {
		return &s
	}
	return nil
}

// first returns the first present value among the given keys, nil-safe.
func first(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func boolVal(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func boolPtr(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}
