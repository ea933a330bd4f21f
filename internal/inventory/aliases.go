package inventory

import (
	"github.com/quarterhill/stratus/internal/canonical"
	"github.com/quarterhill/stratus/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MergeIPAliases upserts the given aliases, leaving any other mappings in
// place. One timestamp is shared by the whole batch.
func (s *Store) MergeIPAliases(aliases []canonical.IPAlias) error {
	return s.writeIPAliases(aliases, false)
}

// ReplaceIPAliases atomically swaps the whole table for the given set. An
// empty set clears the table.
func (s *Store) ReplaceIPAliases(aliases []canonical.IPAlias) error {
	return s.writeIPAliases(aliases, true)
}

func (s *Store) writeIPAliases(aliases []canonical.IPAlias, replace bool) error {
	updatedAt := now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.Where("1 = 1").Delete(&models.IPAlias{}).Error; err != nil {
				return err
			}
		}
		for _, a := range aliases {
			row := models.IPAlias{
				IPAddress:  a.IPAddress,
				ServerName: a.ServerName,
				UpdatedAt:  updatedAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "ip_address"}},
				DoUpdates: clause.AssignmentColumns([]string{"server_name", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListIPAliases returns every alias ordered by address.
func (s *Store) ListIPAliases() ([]models.IPAlias, error) {
	var rows []models.IPAlias
	err := s.db.Order("ip_address").Find(&rows).Error
	return rows, err
}
