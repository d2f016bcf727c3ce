package models

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severities = map[Severity]struct{}{
	SeverityLow:      {},
	SeverityMedium:   {},
	SeverityHigh:     {},
	SeverityCritical: {},
}

// Уязвимость. ID задаёт клиент, после создания не меняется.
type Vulnerability struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Severity     Severity  `gorm:"type:varchar(16);not null;index" json:"severity"`
	System       string    `gorm:"size:255;not null" json:"system"`
	Description  string    `gorm:"type:text" json:"description"`
	Status       string    `gorm:"size:32;not null;index" json:"status"`
	DiscoveredAt time.Time `gorm:"not null" json:"discoveredAt"`
	CVSSScore    float64   `gorm:"column:cvss_score;not null" json:"cvssScore"`

	// удаление уязвимости с инцидентами запрещено
	Incidents []Incident `gorm:"foreignKey:VulnerabilityID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT" json:"-"`
}

// Фильтры списка уязвимостей (пустое значение не фильтрует).
type VulnerabilityFilter struct {
	Severity string
	Status   string
	System   string
}
