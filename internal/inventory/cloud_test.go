package inventory

import (
	"testing"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
)

func TestWasabiAccountReport(t *testing.T) {
	s := newTestStore(t)

	err := s.SyncWasabiAccounts([]canonical.WasabiAccount{{AccountID: "wa-1", DisplayName: "Main"}})
	if err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err = s.SyncWasabiBuckets("wa-1", []canonical.WasabiBucket{
		{BucketName: "zulu", UsageBytes: i64p(100), ObjectCount: i64p(3)},
		{BucketName: "Alpha", UsageBytes: i64p(50), ObjectCount: i64p(2)},
	})
	if err != nil {
		t.Fatalf("sync buckets: %v", err)
	}

	reports, err := s.ListWasabiAccounts(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.TotalUsageBytes != 150 || r.TotalObjectCount != 5 || r.BucketCount != 2 {
		t.Fatalf("roll-up = %d/%d/%d, want 150/5/2", r.TotalUsageBytes, r.TotalObjectCount, r.BucketCount)
	}
	if r.BucketNames != "Alpha zulu" {
		t.Fatalf("bucket names = %q, want %q", r.BucketNames, "Alpha zulu")
	}
	if r.LastBucketSyncAt == nil || r.LastBucketSyncAt.IsZero() {
		t.Fatalf("last bucket sync should be set, got %v", r.LastBucketSyncAt)
	}
}

func TestWasabiAccountErrorFallsBackToBucketError(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncWasabiAccounts([]canonical.WasabiAccount{{AccountID: "wa-1", DisplayName: "Main"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err := s.SyncWasabiBuckets("wa-1", []canonical.WasabiBucket{
		{BucketName: "b1", LastError: strp("stats fetch failed")},
	})
	if err != nil {
		t.Fatalf("sync buckets: %v", err)
	}

	reports, err := s.ListWasabiAccounts(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 || reports[0].LastError == nil || *reports[0].LastError != "stats fetch failed" {
		t.Fatalf("account error should surface the bucket error, got %+v", reports)
	}
}

func TestAWSAccountIDNormalization(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	acc, err := s.GetAWSAccount("  AWS-Prod ")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc == nil || acc.AccountID != "aws-prod" {
		t.Fatalf("lookup with cased id failed: %+v", acc)
	}
}

func TestAWSAccountReportNullAwareSums(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err := s.SyncAWSBuckets("aws-prod", []canonical.AWSBucket{
		{BucketName: "b1", UsageBytes: i64p(10), EgressBytes24h: i64p(5)},
		{BucketName: "b2", UsageBytes: i64p(20)},
	})
	if err != nil {
		t.Fatalf("sync buckets: %v", err)
	}

	reports, err := s.ListAWSAccounts(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.TotalUsageBytes != 30 || r.BucketCount != 2 {
		t.Fatalf("usage/count = %d/%d, want 30/2", r.TotalUsageBytes, r.BucketCount)
	}
	// One bucket carries the metric, so the total is measured.
	if r.TotalEgressBytes24h == nil || *r.TotalEgressBytes24h != 5 {
		t.Fatalf("egress 24h = %v, want 5", r.TotalEgressBytes24h)
	}
	// No bucket carries this metric, so the total is NULL, not zero.
	if r.TotalIngressBytes24h != nil {
		t.Fatalf("ingress 24h = %v, want nil", *r.TotalIngressBytes24h)
	}
	if r.BucketNames != "b1 b2" {
		t.Fatalf("bucket names = %q", r.BucketNames)
	}
}

func TestAWSAccountReportSecurityCounters(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err := s.SyncAWSBuckets("aws-prod", []canonical.AWSBucket{
		{BucketName: "b1"}, {BucketName: "b2"}, {BucketName: "b3"},
	})
	if err != nil {
		t.Fatalf("sync buckets: %v", err)
	}
	if err := s.AttachAWSBucketSecurity("aws-prod", "b1", canonical.AWSBucket{}, ""); err != nil {
		t.Fatalf("attach b1: %v", err)
	}
	if err := s.AttachAWSBucketSecurity("aws-prod", "b2", canonical.AWSBucket{}, "access denied"); err != nil {
		t.Fatalf("attach b2: %v", err)
	}

	reports, err := s.ListAWSAccounts([]string{"AWS-PROD"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.SecurityScanBucketCount != 2 {
		t.Fatalf("scanned buckets = %d, want 2", r.SecurityScanBucketCount)
	}
	if r.SecurityErrorBucketCount != 1 {
		t.Fatalf("errored buckets = %d, want 1", r.SecurityErrorBucketCount)
	}
	if r.LastSecurityScanAt == nil {
		t.Fatalf("last security scan should surface from scanned buckets")
	}
	if r.LastBucketSyncAt == nil {
		t.Fatalf("last bucket sync should surface from synced buckets")
	}
}

func TestSyncAWSBucketsConverges(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	for i := 0; i < 2; i++ {
		err := s.SyncAWSBuckets("aws-prod", []canonical.AWSBucket{{BucketName: "b1"}, {BucketName: "b2"}})
		if err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	if err := s.SyncAWSBuckets("aws-prod", []canonical.AWSBucket{{BucketName: "b2"}}); err != nil {
		t.Fatalf("shrink sync: %v", err)
	}

	var total int64
	if err := s.db.Model(&models.AWSBucket{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 physical rows, got %d", total)
	}
	active, err := s.ListAWSBuckets("aws-prod")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].BucketName != "b2" {
		t.Fatalf("active buckets = %+v, want only b2", active)
	}
}

func TestFileSystemsOrderedByNameFallback(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err := s.SyncFileSystems("aws-prod", []canonical.FileSystem{
		{FileSystemID: "fs-2", Name: strp("zeta")},
		{FileSystemID: "fs-1"},
		{FileSystemID: "fs-3", Name: strp("alpha")},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	rows, err := s.ListFileSystems("aws-prod")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 file systems, got %d", len(rows))
	}
	// Unnamed fs-1 sorts by its id between "alpha" and "zeta".
	got := []string{rows[0].FileSystemID, rows[1].FileSystemID, rows[2].FileSystemID}
	want := []string{"fs-3", "fs-1", "fs-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAWSAccountEFSRollup(t *testing.T) {
	s := newTestStore(t)

	if err := s.SyncAWSAccounts([]canonical.AWSAccount{{AccountID: "aws-prod", DisplayName: "Prod"}}); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	err := s.SyncFileSystems("aws-prod", []canonical.FileSystem{
		{FileSystemID: "fs-1", Name: strp("data"), SizeBytes: i64p(400)},
		{FileSystemID: "fs-2", SizeBytes: i64p(100)},
	})
	if err != nil {
		t.Fatalf("sync efs: %v", err)
	}

	reports, err := s.ListAWSAccounts(nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	r := reports[0]
	if r.EFSCount != 2 || r.TotalEFSSizeBytes != 500 {
		t.Fatalf("efs roll-up = %d/%d, want 2/500", r.EFSCount, r.TotalEFSSizeBytes)
	}
	if r.EFSNames != "data fs-2" {
		t.Fatalf("efs names = %q, want %q", r.EFSNames, "data fs-2")
	}
	if r.LastEFSSyncAt == nil {
		t.Fatalf("last efs sync should be set")
	}
	// No buckets ever synced for this account.
	if r.LastBucketSyncAt != nil {
		t.Fatalf("last bucket sync = %v, want nil", r.LastBucketSyncAt)
	}
}
