package inventory

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/db"
	"github.com/quarterhill/stratus/internal/logging"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(gdb, logging.Nop())
}

func strp(s string) *string { return &s }

func i64p(v int64) *int64 { return &v }

func TestSyncSubscriptionsConverges(t *testing.T) {
	s := newTestStore(t)

	err := s.SyncSubscriptions([]canonical.Subscription{
		{SubscriptionID: "sub-a", DisplayName: "Alpha"},
		{SubscriptionID: "sub-b", DisplayName: "beta"},
		{SubscriptionID: "sub-c", DisplayName: "Gamma"},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	err = s.SyncSubscriptions([]canonical.Subscription{
		{SubscriptionID: "sub-a", DisplayName: "Alpha"},
		{SubscriptionID: "sub-b", DisplayName: "beta"},
	})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	subs, err := s.ListSubscriptions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 active subscriptions, got %d", len(subs))
	}
	if subs[0].SubscriptionID != "sub-a" || subs[1].SubscriptionID != "sub-b" {
		t.Fatalf("unexpected order: %s, %s", subs[0].SubscriptionID, subs[1].SubscriptionID)
	}

	var dropped models.Subscription
	if err := s.db.Where("subscription_id = ?", "sub-c").First(&dropped).Error; err != nil {
		t.Fatalf("load sub-c: %v", err)
	}
	if dropped.IsActive {
		t.Fatal("sub-c should be inactive after disappearing from the snapshot")
	}
}

func TestSyncSubscriptionsEmptySnapshotDeactivatesAll(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncSubscriptions([]canonical.Subscription{{SubscriptionID: "sub-a", DisplayName: "Alpha"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := s.SyncSubscriptions(nil); err != nil {
		t.Fatalf("empty sync: %v", err)
	}

	subs, err := s.ListSubscriptions()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected no active subscriptions, got %d", len(subs))
	}
}

func TestSelectionSurvivesResync(t *testing.T) {
	s := newTestStore(t)

	snapshot := []canonical.Subscription{
		{SubscriptionID: "sub-a", DisplayName: "Alpha"},
		{SubscriptionID: "sub-b", DisplayName: "Beta"},
	}
	if err := s.SyncSubscriptions(snapshot); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := s.SetSelectedSubscriptions([]string{"sub-b"}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.SyncSubscriptions(snapshot); err != nil {
		t.Fatalf("re-sync: %v", err)
	}

	ids, err := s.SelectedSubscriptionIDs()
	if err != nil {
		t.Fatalf("selected: %v", err)
	}
	if len(ids) != 1 || ids[0] != "sub-b" {
		t.Fatalf("selection lost on re-sync: %v", ids)
	}
}

func TestSyncStorageAccountsIsScopedToSubscription(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync sub-a: %v", err)
	}
	if err := s.SyncStorageAccounts("sub-b", []canonical.StorageAccount{{AccountID: "acc-2", Name: "two"}}); err != nil {
		t.Fatalf("sync sub-b: %v", err)
	}

	// Empty snapshot for sub-a deactivates its accounts only.
	if err := s.SyncStorageAccounts("sub-a", nil); err != nil {
		t.Fatalf("empty sync sub-a: %v", err)
	}

	if acc, err := s.GetStorageAccount("acc-1"); err != nil || acc != nil {
		t.Fatalf("acc-1 should be inactive, got %v err %v", acc, err)
	}
	acc, err := s.GetStorageAccount("acc-2")
	if err != nil {
		t.Fatalf("get acc-2: %v", err)
	}
	if acc == nil || !acc.IsActive {
		t.Fatal("acc-2 should remain active")
	}
}

func TestSyncStorageAccountsIdempotent(t *testing.T) {
	s := newTestStore(t)

	snapshot := []canonical.StorageAccount{{AccountID: "acc-1", Name: "one", Location: strp("westeurope")}}
	for i := 0; i < 3; i++ {
		if err := s.SyncStorageAccounts("sub-a", snapshot); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	var count int64
	if err := s.db.Model(&models.StorageAccount{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row after repeated syncs, got %d", count)
	}
}

func TestAttachStorageAccountMetrics(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	err := s.AttachStorageAccountMetrics("acc-1", StorageAccountMetricsPatch{
		UsedCapacityBytes: 1024,
		EgressBytes24h:    0,
		IngressBytes24h:   "not a number",
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	acc, err := s.GetStorageAccount("acc-1")
	if err != nil || acc == nil {
		t.Fatalf("get: %v %v", acc, err)
	}
	if acc.MetricsUsedCapacityBytes == nil || *acc.MetricsUsedCapacityBytes != 1024 {
		t.Fatalf("used capacity = %v, want 1024", acc.MetricsUsedCapacityBytes)
	}
	// Zero is a measurement; garbage is not.
	if acc.MetricsEgressBytes24h == nil || *acc.MetricsEgressBytes24h != 0 {
		t.Fatalf("egress = %v, want 0", acc.MetricsEgressBytes24h)
	}
	if acc.MetricsIngressBytes24h != nil {
		t.Fatalf("ingress = %v, want nil", *acc.MetricsIngressBytes24h)
	}
	if acc.MetricsLastScanAt == nil {
		t.Fatal("scan time not stamped")
	}
	if !acc.IsActive {
		t.Fatal("attach must not change lifecycle")
	}
}

func TestAttachMetricsUnknownAccountIsNoOp(t *testing.T) {
	s := newTestStore(t)

	if err := s.AttachStorageAccountMetrics("ghost", StorageAccountMetricsPatch{UsedCapacityBytes: 1}); err != nil {
		t.Fatalf("attach to unknown account should not error: %v", err)
	}
	var count int64
	if err := s.db.Model(&models.StorageAccount{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("attach must never create rows, got %d", count)
	}
}

func TestAttachSecurityInactiveAccountIsNoOp(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := s.SyncStorageAccounts("sub-a", nil); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if err := s.AttachStorageAccountSecurity("acc-1", strp("{}"), ""); err != nil {
		t.Fatalf("attach: %v", err)
	}
	sec, err := s.GetStorageAccountSecurity("acc-1")
	if err != nil {
		t.Fatalf("get security: %v", err)
	}
	if sec != nil {
		t.Fatal("security profile must not be written for an inactive account")
	}
}

func TestContainerSizeSurvivesResync(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	if err := s.SyncContainers("acc-1", []canonical.Container{{Name: "logs"}}); err != nil {
		t.Fatalf("sync containers: %v", err)
	}
	if err := s.AttachContainerSize("acc-1", "logs", 2048, 7, ""); err != nil {
		t.Fatalf("attach size: %v", err)
	}
	// Identity re-sync must not wipe the attached measurement.
	if err := s.SyncContainers("acc-1", []canonical.Container{{Name: "logs"}}); err != nil {
		t.Fatalf("re-sync containers: %v", err)
	}

	rows, err := s.ListContainers("acc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 container, got %d", len(rows))
	}
	if rows[0].LastSizeBytes == nil || *rows[0].LastSizeBytes != 2048 {
		t.Fatalf("size lost on re-sync: %v", rows[0].LastSizeBytes)
	}
	if rows[0].BlobCount == nil || *rows[0].BlobCount != 7 {
		t.Fatalf("blob count lost on re-sync: %v", rows[0].BlobCount)
	}
}

func TestAttachContainerSizeMissIsNoOp(t *testing.T) {
	s := newTestStore(t)

	if err := s.AttachContainerSize("acc-1", "missing", 10, 1, ""); err != nil {
		t.Fatalf("attach to missing container should not error: %v", err)
	}
	var count int64
	if err := s.db.Model(&models.Container{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("no row should exist, got %d", count)
	}
}

func TestListStorageAccountsAggregation(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncSubscriptions([]canonical.Subscription{{SubscriptionID: "sub-a", DisplayName: "Alpha"}}); err != nil {
		t.Fatalf("sync subs: %v", err)
	}
	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	if err := s.SyncContainers("acc-1", []canonical.Container{{Name: "a"}, {Name: "b"}}); err != nil {
		t.Fatalf("sync containers: %v", err)
	}
	if err := s.AttachContainerSize("acc-1", "a", 100, 2, ""); err != nil {
		t.Fatalf("attach a: %v", err)
	}
	if err := s.AttachContainerSize("acc-1", "b", 50, 1, ""); err != nil {
		t.Fatalf("attach b: %v", err)
	}
	// Drop container b; its contribution must disappear from the roll-up.
	if err := s.SyncContainers("acc-1", []canonical.Container{{Name: "a"}}); err != nil {
		t.Fatalf("re-sync containers: %v", err)
	}

	reports, err := s.ListStorageAccounts(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.TotalSizeBytes != 100 || r.TotalBlobCount != 2 || r.ContainerCount != 1 {
		t.Fatalf("roll-up = size %d blobs %d containers %d, want 100/2/1",
			r.TotalSizeBytes, r.TotalBlobCount, r.ContainerCount)
	}
	if r.SubscriptionName == nil || *r.SubscriptionName != "Alpha" {
		t.Fatalf("subscription name = %v, want Alpha", r.SubscriptionName)
	}
	if r.MetricsUsedCapacityBytes != nil {
		t.Fatal("unmeasured metric must stay NULL, not zero")
	}
	if r.LastSizeScanAt == nil {
		t.Fatal("size scan time should surface from attached containers")
	}
	if r.LastSecurityScanAt != nil {
		t.Fatalf("security scan time = %v, want nil before any scan", r.LastSecurityScanAt)
	}
}

func TestListStorageAccountsSubscriptionFilter(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncStorageAccounts("sub-a", []canonical.StorageAccount{{AccountID: "acc-1", Name: "one"}}); err != nil {
		t.Fatalf("sync sub-a: %v", err)
	}
	if err := s.SyncStorageAccounts("sub-b", []canonical.StorageAccount{{AccountID: "acc-2", Name: "two"}}); err != nil {
		t.Fatalf("sync sub-b: %v", err)
	}

	reports, err := s.ListStorageAccounts([]string{"sub-b"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 || reports[0].AccountID != "acc-2" {
		t.Fatalf("filter returned wrong rows: %+v", reports)
	}
}

func TestSyncContainersBatchRollsBackAtomically(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncContainers("acc-1", []canonical.Container{{Name: "logs"}, {Name: "media"}}); err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	// Make one record of the next batch unstorable so the upsert fails
	// mid-transaction.
	err := s.db.Exec(`CREATE TRIGGER reject_poison BEFORE INSERT ON containers
WHEN NEW.container_name = 'poison'
BEGIN SELECT RAISE(ABORT, 'rejected'); END`).Error
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err = s.SyncContainers("acc-1", []canonical.Container{{Name: "media"}, {Name: "poison"}})
	if err == nil {
		t.Fatal("batch with unstorable record should fail")
	}

	// All-or-nothing: the mark step and the partial upserts are rolled back,
	// so the prior active set is unchanged and no new row exists.
	rows, err := s.ListContainers("acc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].ContainerName != "logs" || rows[1].ContainerName != "media" {
		t.Fatalf("active containers after failed batch = %+v, want logs and media", rows)
	}
	var total int64
	if err := s.db.Model(&models.Container{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 physical rows, got %d", total)
	}
}
