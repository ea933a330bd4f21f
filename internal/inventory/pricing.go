package inventory

import (
	"strings"

	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertPricingSnapshot stores the latest fetched rate card for one
// (provider, profile) pair. The cache keeps exactly one row per pair, so a
// refresh always overwrites, including failed fetches.
func (s *Store) UpsertPricingSnapshot(snap models.PricingSnapshot) error {
	snap.Provider = strings.ToLower(strings.TrimSpace(snap.Provider))
	snap.Profile = strings.ToLower(strings.TrimSpace(snap.Profile))
	if snap.AssumptionsJSON == "" {
		snap.AssumptionsJSON = "{}"
	}
	if snap.FetchStatus == "" {
		snap.FetchStatus = "ok"
	}
	snap.SyncedAt = now()
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "profile"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"currency", "region_label", "source", "as_of_date",
			"assumptions_json", "synced_at", "fetch_status", "last_error",
		}),
	}).Create(&snap).Error
}

// GetPricingSnapshot returns the cached rate card, or nil when the pair has
// never been fetched.
func (s *Store) GetPricingSnapshot(provider, profile string) (*models.PricingSnapshot, error) {
	var row models.PricingSnapshot
	err := s.db.Where("provider = ? AND profile = ?",
		strings.ToLower(strings.TrimSpace(provider)),
		strings.ToLower(strings.TrimSpace(profile))).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListPricingSnapshots returns every cached rate card.
func (s *Store) ListPricingSnapshots() ([]models.PricingSnapshot, error) {
	var rows []models.PricingSnapshot
	err := s.db.Order("provider, profile").Find(&rows).Error
	return rows, err
}
