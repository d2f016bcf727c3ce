package models

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"vuln-tracker/internal/apperr"
)

const (
	maxIDLen                  = 64
	maxIncidentDescriptionLen = 500
)

// Score: оценка CVSS. Принимает и число, и строку с числом.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return apperr.Invalid("cvssScore", "must be a number")
	}
	*s = Score(f)
	return nil
}

func (s Score) validate() error {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 10 {
		return apperr.Invalid("cvssScore", "must be between 0.0 and 10.0")
	}
	return nil
}

// ====== УЯЗВИМОСТИ ======

// VulnerabilityCreate: тело POST /api/vulnerabilities.
type VulnerabilityCreate struct {
	ID           *string    `json:"id"`
	Title        *string    `json:"title"`
	Severity     *string    `json:"severity"`
	System       *string    `json:"system"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	DiscoveredAt *time.Time `json:"discoveredAt"`
	CVSSScore    *Score     `json:"cvssScore"`
}

// Build проверяет тело запроса и собирает запись.
// now подставляется в discoveredAt, если поле не передано.
func (p VulnerabilityCreate) Build(now time.Time) (Vulnerability, error) {
	id, err := required("id", p.ID)
	if err != nil {
		return Vulnerability{}, err
	}
	if utf8.RuneCountInString(id) > maxIDLen {
		return Vulnerability{}, apperr.Invalid("id", "too long")
	}
	title, err := required("title", p.Title)
	if err != nil {
		return Vulnerability{}, err
	}
	if p.Severity == nil {
		return Vulnerability{}, apperr.Missing("severity")
	}
	severity, err := ParseSeverity(*p.Severity)
	if err != nil {
		return Vulnerability{}, err
	}
	system, err := required("system", p.System)
	if err != nil {
		return Vulnerability{}, err
	}
	status, err := required("status", p.Status)
	if err != nil {
		return Vulnerability{}, err
	}
	if p.CVSSScore == nil {
		return Vulnerability{}, apperr.Missing("cvssScore")
	}
	if err := p.CVSSScore.validate(); err != nil {
		return Vulnerability{}, err
	}

	v := Vulnerability{
		ID:           id,
		Title:        title,
		Severity:     severity,
		System:       system,
		Status:       status,
		DiscoveredAt: now,
		CVSSScore:    float64(*p.CVSSScore),
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.DiscoveredAt != nil && !p.DiscoveredAt.IsZero() {
		v.DiscoveredAt = *p.DiscoveredAt
	}
	return v, nil
}

// VulnerabilityPatch: тело PUT: меняются только переданные поля.
type VulnerabilityPatch struct {
	Title       *string `json:"title"`
	Severity    *string `json:"severity"`
	System      *string `json:"system"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	CVSSScore   *Score  `json:"cvssScore"`
}

func (p VulnerabilityPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return apperr.Invalid("title", "must not be empty")
	}
	if p.Severity != nil {
		if _, err := ParseSeverity(*p.Severity); err != nil {
			return err
		}
	}
	if p.System != nil && strings.TrimSpace(*p.System) == "" {
		return apperr.Invalid("system", "must not be empty")
	}
	if p.Status != nil && strings.TrimSpace(*p.Status) == "" {
		return apperr.Invalid("status", "must not be empty")
	}
	if p.CVSSScore != nil {
		return p.CVSSScore.validate()
	}
	return nil
}

// Apply переносит в v только переданные поля. Вызывать после Validate.
func (p VulnerabilityPatch) Apply(v *Vulnerability) {
	if p.Title != nil {
		v.Title = strings.TrimSpace(*p.Title)
	}
	if p.Severity != nil {
		v.Severity, _ = ParseSeverity(*p.Severity)
	}
	if p.System != nil {
		v.System = strings.TrimSpace(*p.System)
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.Status != nil {
		v.Status = strings.TrimSpace(*p.Status)
	}
	if p.CVSSScore != nil {
		v.CVSSScore = float64(*p.CVSSScore)
	}
}

// ParseSeverity нормализует регистр: "Critical" и "critical" равнозначны.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return "", apperr.Missing("severity")
	}
	if _, ok := severities[s]; !ok {
		return "", apperr.Invalid("severity", "must be one of low, medium, high, critical")
	}
	return s, nil
}

// ====== ИНЦИДЕНТЫ ======

// IncidentCreate: тело POST /api/incidents. id и createdAt задаёт сервер.
type IncidentCreate struct {
	VulnerabilityID *string `json:"vulnerabilityId"`
	AssignedTo      *string `json:"assignedTo"`
	Priority        *string `json:"priority"`
	Description     *string `json:"description"`
}

func (p IncidentCreate) Validate() error {
	if _, err := required("vulnerabilityId", p.VulnerabilityID); err != nil {
		return err
	}
	if _, err := required("assignedTo", p.AssignedTo); err != nil {
		return err
	}
	if _, err := required("priority", p.Priority); err != nil {
		return err
	}
	if p.Description != nil {
		return validateIncidentDescription(*p.Description)
	}
	return nil
}

// Build собирает инцидент с уже выделенным ID. Вызывать после Validate.
func (p IncidentCreate) Build(id string, createdAt time.Time) Incident {
	inc := Incident{
		ID:              id,
		VulnerabilityID: strings.TrimSpace(*p.VulnerabilityID),
		AssignedTo:      strings.TrimSpace(*p.AssignedTo),
		Priority:        strings.TrimSpace(*p.Priority),
		CreatedAt:       createdAt,
	}
	if p.Description != nil {
		inc.Description = *p.Description
	}
	return inc
}

// TargetVulnerability: на какую уязвимость ссылается инцидент.
func (p IncidentCreate) TargetVulnerability() string {
	if p.VulnerabilityID == nil {
		return ""
	}
	return strings.TrimSpace(*p.VulnerabilityID)
}

// IncidentPatch: только assignedTo, priority и description.
type IncidentPatch struct {
	AssignedTo  *string `json:"assignedTo"`
	Priority    *string `json:"priority"`
	Description *string `json:"description"`
}

func (p IncidentPatch) Validate() error {
	if p.AssignedTo != nil && strings.TrimSpace(*p.AssignedTo) == "" {
		return apperr.Invalid("assignedTo", "must not be empty")
	}
	if p.Priority != nil && strings.TrimSpace(*p.Priority) == "" {
		return apperr.Invalid("priority", "must not be empty")
	}
	if p.Description != nil {
		return validateIncidentDescription(*p.Description)
	}
	return nil
}

func (p IncidentPatch) Apply(inc *Incident) {
	if p.AssignedTo != nil {
		inc.AssignedTo = strings.TrimSpace(*p.AssignedTo)
	}
	if p.Priority != nil {
		inc.Priority = strings.TrimSpace(*p.Priority)
	}
	if p.Description != nil {
		inc.Description = *p.Description
	}
}

func validateIncidentDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxIncidentDescriptionLen {
		return apperr.Invalid("description", "must be at most 500 characters")
	}
	return nil
}

func required(field string, val *string) (string, error) {
	if val == nil {
		return "", apperr.Missing(field)
	}
	s := strings.TrimSpace(*val)
	if s == "" {
		return "", apperr.Missing(field)
	}
	return s, nil
}
