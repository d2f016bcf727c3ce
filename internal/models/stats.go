package models

// Сводка по уязвимостям: всего, по критичности и по статусу.
type VulnerabilityStats struct {
	Total      int64            `json:"total"`
	BySeverity map[string]int64 `json:"bySeverity"`
	ByStatus   map[string]int64 `json:"byStatus"`
}
