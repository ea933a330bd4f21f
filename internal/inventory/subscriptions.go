package inventory

import (
	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncSubscriptions runs a top-level mark-then-merge over all subscriptions.
// Previously active subscriptions absent from the batch go inactive; observed
// ones are (re)activated with refreshed identity fields. is_selected is a
// user preference and is deliberately left out of the conflict update set so
// it survives re-sync; new rows default to selected.
func (s *Store) SyncSubscriptions(subs []canonical.Subscription) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
			return err
		}
		for _, sub := range subs {
			row := models.Subscription{
				SubscriptionID: sub.SubscriptionID,
				DisplayName:    sub.DisplayName,
				TenantID:       sub.TenantID,
				State:          sub.State,
				IsSelected:     true,
				IsActive:       true,
				LastSeenAt:     seenAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "subscription_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"display_name", "tenant_id", "state", "is_active", "last_seen_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListSubscriptions returns active subscriptions ordered by display name.
func (s *Store) ListSubscriptions() ([]models.Subscription, error) {
	var rows []models.Subscription
	err := s.db.Where("is_active = ?", true).
		Order("display_name COLLATE NOCASE").
		Find(&rows).Error
	return rows, err
}

// SetSelectedSubscriptions replaces the selection preference with the given
// set. Unknown ids are ignored; selection is independent of inventory sync.
func (s *Store) SetSelectedSubscriptions(ids []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).Where("1 = 1").Update("is_selected", false).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&models.Subscription{}).
			Where("subscription_id IN ?", ids).
			Update("is_selected", true).Error
	})
}

// SelectedSubscriptionIDs returns ids of active, selected subscriptions.
func (s *Store) SelectedSubscriptionIDs() ([]string, error) {
	var ids []string
	err := s.db.Model(&models.Subscription{}).
		Where("is_active = ? AND is_selected = ?", true, true).
		Pluck("subscription_id", &ids).Error
	return ids, err
}
