package models

import "time"

// Инцидент: задача на устранение конкретной уязвимости.
// ID выдаётся сервером (INC-<год>-<номер>), vulnerabilityId после создания не меняется.
type Incident struct {
	ID              string    `gorm:"primaryKey;size:32" json:"id"`
	VulnerabilityID string    `gorm:"size:64;not null;index" json:"vulnerabilityId"`
	AssignedTo      string    `gorm:"size:255;not null" json:"assignedTo"`
	Priority        string    `gorm:"size:32;not null" json:"priority"`
	Description     string    `gorm:"type:text" json:"description"`
	CreatedAt       time.Time `gorm:"not null" json:"createdAt"`
}

type IncidentFilter struct {
	VulnerabilityID string
}

// Счётчик номеров инцидентов по годам: seq хранит последний выданный номер.
type IncidentCounter struct {
	Year      int   `gorm:"primaryKey;autoIncrement:false"`
	Seq       int64 `gorm:"not null"`
	UpdatedAt time.Time
}
