package inventory

import (
	"testing"

	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
)

func TestUpsertPricingSnapshotOverwrites(t *testing.T) {
	s := newTestStore(t)

	err := s.UpsertPricingSnapshot(models.PricingSnapshot{
		Provider: "AWS", Profile: "Standard",
		Currency: strp("USD"),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	err = s.UpsertPricingSnapshot(models.PricingSnapshot{
		Provider: "aws", Profile: "standard",
		Currency:    strp("EUR"),
		FetchStatus: "error",
		LastError:   strp("rate endpoint 503"),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	snap, err := s.GetPricingSnapshot("AWS", "STANDARD")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap == nil {
		t.Fatal("snapshot missing")
	}
	if snap.Provider != "aws" || snap.Profile != "standard" {
		t.Fatalf("key not normalized: %s/%s", snap.Provider, snap.Profile)
	}
	if snap.Currency == nil || *snap.Currency != "EUR" {
		t.Fatalf("currency = %v, want EUR", snap.Currency)
	}
	if snap.FetchStatus != "error" || snap.LastError == nil {
		t.Fatalf("failed fetch not recorded: %s %v", snap.FetchStatus, snap.LastError)
	}

	all, err := s.ListPricingSnapshots()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("cache must keep one row per pair, got %d", len(all))
	}
}

func TestUpsertPricingSnapshotDefaults(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertPricingSnapshot(models.PricingSnapshot{Provider: "wasabi", Profile: "eu"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	snap, err := s.GetPricingSnapshot("wasabi", "eu")
	if err != nil || snap == nil {
		t.Fatalf("get: %v %v", snap, err)
	}
	if snap.AssumptionsJSON != "{}" {
		t.Fatalf("assumptions = %q, want {}", snap.AssumptionsJSON)
	}
	if snap.FetchStatus != "ok" {
		t.Fatalf("fetch status = %q, want ok", snap.FetchStatus)
	}
	if snap.SyncedAt.IsZero() {
		t.Fatal("synced_at not stamped")
	}
}

func TestGetPricingSnapshotAbsent(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.GetPricingSnapshot("aws", "standard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected nil for unfetched pair, got %+v", snap)
	}
}

func TestIPAliasMergeKeepsOthers(t *testing.T) {
	s := newTestStore(t)

	err := s.MergeIPAliases([]canonical.IPAlias{
		{IPAddress: "10.0.0.1", ServerName: "alpha"},
		{IPAddress: "10.0.0.2", ServerName: "beta"},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	err = s.MergeIPAliases([]canonical.IPAlias{
		{IPAddress: "10.0.0.2", ServerName: "beta-2"},
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	rows, err := s.ListIPAliases()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("merge must keep unrelated rows, got %d", len(rows))
	}
	if rows[1].ServerName != "beta-2" {
		t.Fatalf("alias not updated: %+v", rows[1])
	}
}

func TestIPAliasReplaceWithEmptyClears(t *testing.T) {
	s := newTestStore(t)

	if err := s.MergeIPAliases([]canonical.IPAlias{{IPAddress: "10.0.0.1", ServerName: "alpha"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Merge with nothing is a no-op; replace with nothing clears the table.
	if err := s.MergeIPAliases(nil); err != nil {
		t.Fatalf("empty merge: %v", err)
	}
	if rows, _ := s.ListIPAliases(); len(rows) != 1 {
		t.Fatalf("empty merge must not delete, got %d rows", len(rows))
	}
	if err := s.ReplaceIPAliases(nil); err != nil {
		t.Fatalf("empty replace: %v", err)
	}
	if rows, _ := s.ListIPAliases(); len(rows) != 0 {
		t.Fatalf("empty replace must clear, got %d rows", len(rows))
	}
}
