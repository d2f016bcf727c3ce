package service

import (
	"context"

	"vuln-tracker/internal/apperr"
	"vuln-tracker/internal/models"

	"gorm.io/gorm"
)

type groupCount struct {
	Value string
	Count int64
}

// VulnerabilityStats считает все уязвимости и группирует их по severity и status.
// Все три запроса идут в одной транзакции, чтобы цифры сходились.
func (s *Service) VulnerabilityStats(ctx context.Context) (*models.VulnerabilityStats, error) {
	stats := &models.VulnerabilityStats{
		BySeverity: map[string]int64{},
		ByStatus:   map[string]int64{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Vulnerability{}).Count(&stats.Total).Error; err != nil {
			return err
		}
		if err := countBy(tx, "severity", stats.BySeverity); err != nil {
			return err
		}
		return countBy(tx, "status", stats.ByStatus)
	})
	if err != nil {
		return nil, apperr.Storage("vulnerability.stats", err)
	}
	return stats, nil
}

func countBy(tx *gorm.DB, column string, into map[string]int64) error {
	var rows []groupCount
	err := tx.Model(&models.Vulnerability{}).
		Select(column + " AS value, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		into[r.Value] = r.Count
	}
	return nil
}
