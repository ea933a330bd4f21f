package inventory

import (
	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncContainers converges the containers of one storage account to the
// observed set. Size/scan columns are owned by AttachContainerSize and are
// not part of the conflict update, so a re-observed container keeps its last
// known size.
func (s *Store) SyncContainers(accountID string, containers []canonical.Container) error {
	seenAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Container{}).
			Where("account_id = ?", accountID).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		for _, c := range containers {
			row := models.Container{
				AccountID:     accountID,
				ContainerName: c.Name,
				IsActive:      true,
				LastSeenAt:    seenAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "container_name"}},
				DoUpdates: clause.AssignmentColumns([]string{"is_active", "last_seen_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListContainers returns active containers of an account ordered by name.
func (s *Store) ListContainers(accountID string) ([]models.Container, error) {
	var rows []models.Container
	err := s.db.Where("account_id = ? AND is_active = ?", accountID, true).
		Order("container_name COLLATE NOCASE").
		Find(&rows).Error
	return rows, err
}

// AttachContainerSize patches size scan results onto an active container.
// Unknown or inactive containers are left untouched (no error): a stale scan
// result must not resurrect or create inventory rows.
func (s *Store) AttachContainerSize(accountID, containerName string, sizeBytes, blobCount any, scanErr string) error {
	return s.db.Model(&models.Container{}).
		Where("account_id = ? AND container_name = ? AND is_active = ?", accountID, containerName, true).
		Updates(map[string]any{
			"last_size_bytes":   canonical.Int64OrNil(sizeBytes),
			"blob_count":        canonical.Int64OrNil(blobCount),
			"last_size_scan_at": now(),
			"last_error":        nilIfEmpty(scanErr),
		}).Error
}
