package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vuln-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: MemoryDSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpenMigratesSchema(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []any{&models.Vulnerability{}, &models.Incident{}, &models.IncidentCounter{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
	assert.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = Open(context.Background(), Options{Driver: DriverSQLite})
	assert.ErrorContains(t, err, "DSN is empty")
}

func TestForeignKeyRestrictsVulnerabilityDelete(t *testing.T) {
	db := openTestDB(t)

	v := models.Vulnerability{ID: "V", Title: "t", Severity: models.SeverityLow, System: "s", Status: "open", DiscoveredAt: time.Now()}
	require.NoError(t, db.Create(&v).Error)
	require.NoError(t, db.Create(&models.Incident{
		ID: "INC-2024-001", VulnerabilityID: "V", AssignedTo: "a", Priority: "P1", CreatedAt: time.Now(),
	}).Error)

	assert.Error(t, db.Delete(&models.Vulnerability{}, "id = ?", "V").Error)

	err := db.Create(&models.Incident{
		ID: "INC-2024-002", VulnerabilityID: "MISSING", AssignedTo: "a", Priority: "P1", CreatedAt: time.Now(),
	}).Error
	assert.Error(t, err)
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedFromFile(t *testing.T) {
	db := openTestDB(t)
	path := writeSeed(t, `
vulnerabilities:
  - id: CVS-2024-0001
    title: SQL Injection vulnerability in login form
    severity: Critical
    system: web-app-prod-01
    status: OPEN
    discoveredAt: 2024-01-15T10:30:00Z
    cvssScore: 7.5
  - id: CVS-2024-0004
    title: Information Disclosure in API Response
    severity: Low
    system: api-gateway
    status: RESOLVED
    cvssScore: 3.1
`)

	n, err := SeedFromFile(context.Background(), db, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var v models.Vulnerability
	require.NoError(t, db.Take(&v, "id = ?", "CVS-2024-0001").Error)
	assert.Equal(t, models.SeverityCritical, v.Severity)
	assert.Equal(t, 7.5, v.CVSSScore)
	assert.True(t, v.DiscoveredAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))

	// повторный запуск ничего не добавляет
	n, err = SeedFromFile(context.Background(), db, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSeedFromFileValidates(t *testing.T) {
	db := openTestDB(t)
	path := writeSeed(t, `
vulnerabilities:
  - id: V-1
    title: no score
    severity: low
    system: s
    status: open
`)

	_, err := SeedFromFile(context.Background(), db, path, nil)
	assert.ErrorContains(t, err, "cvssScore")

	_, err = SeedFromFile(context.Background(), db, filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
