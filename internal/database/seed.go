package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"vuln-tracker/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

type seedFile struct {
	Vulnerabilities []seedVulnerability `yaml:"vulnerabilities"`
}

type seedVulnerability struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title"`
	Severity     string     `yaml:"severity"`
	System       string     `yaml:"system"`
	Description  string     `yaml:"description"`
	Status       string     `yaml:"status"`
	DiscoveredAt *time.Time `yaml:"discoveredAt"`
	CVSSScore    *float64   `yaml:"cvssScore"`
}

func (s seedVulnerability) payload() models.VulnerabilityCreate {
	p := models.VulnerabilityCreate{
		ID:           &s.ID,
		Title:        &s.Title,
		Severity:     &s.Severity,
		System:       &s.System,
		Description:  &s.Description,
		Status:       &s.Status,
		DiscoveredAt: s.DiscoveredAt,
	}
	if s.CVSSScore != nil {
		score := models.Score(*s.CVSSScore)
		p.CVSSScore = &score
	}
	return p
}

// SeedFromFile загружает уязвимости из YAML. Уже существующие id пропускаются,
// так что повторный запуск ничего не дублирует. Возвращает число добавленных записей.
func SeedFromFile(ctx context.Context, db *gorm.DB, path string, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, sv := range file.Vulnerabilities {
		v, err := sv.payload().Build(now)
		if err != nil {
			return created, fmt.Errorf("seed vulnerability #%d: %w", i+1, err)
		}

		var count int64
		if err := db.WithContext(ctx).Model(&models.Vulnerability{}).
			Where("id = ?", v.ID).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("check seed vulnerability %s: %w", v.ID, err)
		}
		if count > 0 {
			// уже есть — пропускаем
			continue
		}

		if err := db.WithContext(ctx).Create(&v).Error; err != nil {
			return created, fmt.Errorf("create seed vulnerability %s: %w", v.ID, err)
		}
		created++
		log.Info("seeded vulnerability", zap.String("id", v.ID), zap.String("severity", string(v.Severity)))
	}
	return created, nil
}
