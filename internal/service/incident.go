package service

import (
	"context"
	"errors"
	"time"

	"vuln-tracker/internal/apperr"
	"vuln-tracker/internal/idalloc"
	"vuln-tracker/internal/models"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ====== ИНЦИДЕНТЫ ======

func (s *Service) ListIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, error) {
	q := s.db.WithContext(ctx).Order("created_at asc, id asc")
	if f.VulnerabilityID != "" {
		q = q.Where("vulnerability_id = ?", f.VulnerabilityID)
	}

	incidents := []models.Incident{}
	if err := q.Find(&incidents).Error; err != nil {
		return nil, apperr.Storage("incident.list", err)
	}
	return incidents, nil
}

// ListVulnerabilityIncidents: инциденты одной уязвимости; 404, если её нет.
func (s *Service) ListVulnerabilityIncidents(ctx context.Context, vulnID string) ([]models.Incident, error) {
	if _, err := s.GetVulnerability(ctx, vulnID); err != nil {
		return nil, err
	}
	return s.ListIncidents(ctx, models.IncidentFilter{VulnerabilityID: vulnID})
}

func (s *Service) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	inc, err := findIncident(s.db.WithContext(ctx), id, false)
	if err != nil {
		return nil, apperr.Storage("incident.get", err)
	}
	return inc, nil
}

// CreateIncident проверяет ссылку на уязвимость, выделяет номер и вставляет
// инцидент в одной транзакции. Если номер перехватила параллельная транзакция,
// всё повторяется заново с экспоненциальной паузой.
func (s *Service) CreateIncident(ctx context.Context, p models.IncidentCreate) (*models.Incident, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	vulnID := p.TargetVulnerability()

	var created models.Incident
	attempt := func() error {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// shared-блокировка не даст удалить уязвимость до коммита
			var vuln models.Vulnerability
			err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
				Select("id").
				Where("id = ?", vulnID).
				Take(&vuln).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("vulnerability", vulnID)
			}
			if err != nil {
				return err
			}

			now := s.timestamp()
			seq, err := s.alloc.Next(ctx, tx, now.Year())
			if err != nil {
				return err
			}

			inc := p.Build(idalloc.Format(now.Year(), seq), now)
			if err := tx.Create(&inc).Error; err != nil {
				return err
			}
			created = inc
			return nil
		})
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.maxIDRetries), ctx)

	err := backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		s.metrics.idRetried(ctx)
		s.log.Warn("incident id allocation contended, retrying",
			zap.String("vulnerabilityId", vulnID), zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		if retryable(err) {
			return nil, apperr.Conflict("could not allocate a unique incident id, try again")
		}
		return nil, apperr.Storage("incident.create", err)
	}

	s.metrics.incidentCreated(ctx, created.CreatedAt.Year())
	s.log.Info("incident created", zap.String("id", created.ID), zap.String("vulnerabilityId", created.VulnerabilityID))
	return &created, nil
}

// retryable: ошибки гонки за номер: CAS счётчика не прошёл или такой ID уже вставлен.
func retryable(err error) bool {
	return errors.Is(err, idalloc.ErrContended) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// UpdateIncident: только assignedTo, priority, description.
func (s *Service) UpdateIncident(ctx context.Context, id string, p models.IncidentPatch) (*models.Incident, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Incident
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inc, err := findIncident(tx, id, true)
		if err != nil {
			return err
		}
		p.Apply(inc)
		if err := tx.Model(&models.Incident{}).
			Where("id = ?", inc.ID).
			Updates(map[string]any{
				"assigned_to": inc.AssignedTo,
				"priority":    inc.Priority,
				"description": inc.Description,
			}).Error; err != nil {
			return err
		}
		updated = inc
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("incident.update", err)
	}
	return updated, nil
}

func (s *Service) DeleteIncident(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findIncident(tx, id, true); err != nil {
			return err
		}
		return tx.Delete(&models.Incident{}, "id = ?", id).Error
	})
	if err != nil {
		return apperr.Storage("incident.delete", err)
	}

	s.log.Info("incident deleted", zap.String("id", id))
	return nil
}

func findIncident(tx *gorm.DB, id string, lock bool) (*models.Incident, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var inc models.Incident
	err := tx.Where("id = ?", id).Take(&inc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("incident", id)
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
