package idalloc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"vuln-tracker/internal/database"
	"vuln-tracker/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.Options{Driver: database.DriverSQLite, DSN: database.MemoryDSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, db.Create(&models.Vulnerability{
		ID: "V", Title: "t", Severity: models.SeverityLow, System: "s", Status: "open", DiscoveredAt: time.Now(),
	}).Error)
	return db
}

func insertIncident(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Incident{
		ID: id, VulnerabilityID: "V", AssignedTo: "a", Priority: "P1", CreatedAt: time.Now(),
	}).Error)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INC-2024-001", Format(2024, 1))
	assert.Equal(t, "INC-2024-042", Format(2024, 42))
	assert.Equal(t, "INC-2024-999", Format(2024, 999))
	assert.Equal(t, "INC-2024-1000", Format(2024, 1000))
	assert.Equal(t, "INC-2024-", Prefix(2024))
}

func TestParse(t *testing.T) {
	year, seq, err := Parse("INC-2024-1000")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, int64(1000), seq)

	for _, bad := range []string{"", "INC-24-001", "BUG-2024-001", "INC-2024-", "INC-2024-abc", "INC-2024-000"} {
		_, _, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestHighestIssued(t *testing.T) {
	db := openTestDB(t)

	seq, err := HighestIssued(db, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	insertIncident(t, db, "INC-2024-999")
	insertIncident(t, db, "INC-2024-1000")
	insertIncident(t, db, "INC-2024-002")
	insertIncident(t, db, "INC-2025-005")

	seq, err = HighestIssued(db, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), seq)
}

func nextInTx(t *testing.T, db *gorm.DB, a Allocator, year int) int64 {
	t.Helper()
	var seq int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		seq, err = a.Next(context.Background(), tx, year)
		return err
	})
	require.NoError(t, err)
	return seq
}

func TestCounterAllocatorSequential(t *testing.T) {
	db := openTestDB(t)
	a := NewCounterAllocator()

	for want := int64(1); want <= 5; want++ {
		assert.Equal(t, want, nextInTx(t, db, a, 2024))
	}
	// другой год — своя последовательность
	assert.Equal(t, int64(1), nextInTx(t, db, a, 2025))
	assert.Equal(t, int64(6), nextInTx(t, db, a, 2024))
}

func TestCounterAllocatorSeedsFromExistingIncidents(t *testing.T) {
	db := openTestDB(t)
	insertIncident(t, db, "INC-2024-007")

	assert.Equal(t, int64(8), nextInTx(t, db, NewCounterAllocator(), 2024))
}

func TestCounterAllocatorNeverReusesAfterDelete(t *testing.T) {
	db := openTestDB(t)
	a := NewCounterAllocator()

	seq := nextInTx(t, db, a, 2024)
	insertIncident(t, db, Format(2024, seq))
	require.NoError(t, db.Delete(&models.Incident{}, "id = ?", Format(2024, seq)).Error)

	assert.Equal(t, seq+1, nextInTx(t, db, a, 2024))
}

func TestCounterAllocatorPastNineNineNine(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.IncidentCounter{Year: 2024, Seq: 999}).Error)

	seq := nextInTx(t, db, NewCounterAllocator(), 2024)
	assert.Equal(t, "INC-2024-1000", Format(2024, seq))
}

func TestCounterAllocatorRollbackReleasesNumber(t *testing.T) {
	db := openTestDB(t)
	a := NewCounterAllocator()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := a.Next(context.Background(), tx, 2024)
		require.NoError(t, err)
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	assert.Equal(t, int64(1), nextInTx(t, db, a, 2024))
}

func newRedisAllocator(t *testing.T) (*RedisAllocator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	a, err := NewRedisAllocatorFromURL(context.Background(), fmt.Sprintf("redis://%s", mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

func TestRedisAllocator(t *testing.T) {
	db := openTestDB(t)
	a, mr := newRedisAllocator(t)

	assert.Equal(t, int64(1), nextInTx(t, db, a, 2024))
	assert.Equal(t, int64(2), nextInTx(t, db, a, 2024))
	assert.Equal(t, int64(1), nextInTx(t, db, a, 2025))

	got, err := mr.Get("incident-seq:2024")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestRedisAllocatorReseedsFromDatabase(t *testing.T) {
	db := openTestDB(t)
	insertIncident(t, db, "INC-2024-041")
	a, mr := newRedisAllocator(t)

	assert.Equal(t, int64(42), nextInTx(t, db, a, 2024))

	// ключ потерян — номера не повторяются
	mr.Del("incident-seq:2024")
	insertIncident(t, db, "INC-2024-042")
	assert.Equal(t, int64(43), nextInTx(t, db, a, 2024))
}

func TestNewRedisAllocatorFromURLErrors(t *testing.T) {
	_, err := NewRedisAllocatorFromURL(context.Background(), "invalid://url")
	assert.ErrorContains(t, err, "failed to parse Redis URL")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	_, err = NewRedisAllocator(client).Next(ctx, openTestDB(t), 2024)
	assert.Error(t, err)
}
