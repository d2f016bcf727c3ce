package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vuln-tracker/internal/apperr"
	"vuln-tracker/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ====== УЯЗВИМОСТИ ======

func (s *Service) ListVulnerabilities(ctx context.Context, f models.VulnerabilityFilter) ([]models.Vulnerability, error) {
	q := s.db.WithContext(ctx).Order("id asc")

	if f.Severity != "" {
		q = q.Where("severity = ?", strings.ToLower(strings.TrimSpace(f.Severity)))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.System != "" {
		q = q.Where("system = ?", f.System)
	}

	vulns := []models.Vulnerability{}
	if err := q.Find(&vulns).Error; err != nil {
		return nil, apperr.Storage("vulnerability.list", err)
	}
	return vulns, nil
}

func (s *Service) GetVulnerability(ctx context.Context, id string) (*models.Vulnerability, error) {
	v, err := findVulnerability(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, apperr.Storage("vulnerability.get", err)
	}
	return v, nil
}

func (s *Service) CreateVulnerability(ctx context.Context, p models.VulnerabilityCreate) (*models.Vulnerability, error) {
	v, err := p.Build(s.timestamp())
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Vulnerability{}).Where("id = ?", v.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict(fmt.Sprintf("vulnerability %q already exists", v.ID))
		}
		if err := tx.Create(&v).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict(fmt.Sprintf("vulnerability %q already exists", v.ID))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("vulnerability.create", err)
	}

	s.metrics.vulnerabilityCreated(ctx, string(v.Severity))
	s.log.Info("vulnerability created", zap.String("id", v.ID), zap.String("severity", string(v.Severity)))
	return &v, nil
}

// UpdateVulnerability меняет только переданные поля; id и discoveredAt не меняются.
func (s *Service) UpdateVulnerability(ctx context.Context, id string, p models.VulnerabilityPatch) (*models.Vulnerability, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Vulnerability
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := findVulnerability(tx, id, true)
		if err != nil {
			return err
		}
		p.Apply(v)
		if err := tx.Omit(clause.Associations).Save(v).Error; err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("vulnerability.update", err)
	}
	return updated, nil
}

// DeleteVulnerability не удаляет уязвимость, пока на неё ссылаются инциденты.
func (s *Service) DeleteVulnerability(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := findVulnerability(tx, id, true)
		if err != nil {
			return err
		}

		var dependents int64
		if err := tx.Model(&models.Incident{}).Where("vulnerability_id = ?", v.ID).Count(&dependents).Error; err != nil {
			return err
		}
		if dependents > 0 {
			return apperr.Conflict(fmt.Sprintf("vulnerability %q has %d incident(s); delete them first", v.ID, dependents))
		}

		return tx.Delete(&models.Vulnerability{}, "id = ?", v.ID).Error
	})
	if err != nil {
		return apperr.Storage("vulnerability.delete", err)
	}

	s.log.Info("vulnerability deleted", zap.String("id", id))
	return nil
}

// findVulnerability ищет запись по id; lock блокирует строку до конца транзакции.
func findVulnerability(tx *gorm.DB, id string, lock bool) (*models.Vulnerability, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var v models.Vulnerability
	err := tx.Where("id = ?", id).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("vulnerability", id)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
