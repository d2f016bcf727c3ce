package idalloc

import (
	"context"
	"errors"
	"time"

	"vuln-tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterAllocator хранит последний выданный номер в таблице incident_counters
// (одна строка на год). Строка блокируется на время транзакции, а обновление
// идёт по принципу compare-and-swap, так что два создателя не получат один номер.
type CounterAllocator struct{}

func NewCounterAllocator() *CounterAllocator {
	return &CounterAllocator{}
}

func (a *CounterAllocator) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	tx = tx.WithContext(ctx)

	var counter models.IncidentCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		Take(&counter).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// первый инцидент года в этой базе, учитываем уже существующие записи
		floor, err := HighestIssued(tx, year)
		if err != nil {
			return 0, err
		}
		counter = models.IncidentCounter{Year: year, Seq: floor + 1, UpdatedAt: time.Now().UTC()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter)
		if res.Error != nil {
			return 0, res.Error
		}
		if res.RowsAffected == 0 {
			return 0, ErrContended
		}
		return counter.Seq, nil
	}
	if err != nil {
		return 0, err
	}

	next := counter.Seq + 1
	res := tx.Model(&models.IncidentCounter{}).
		Where("year = ? AND seq = ?", year, counter.Seq).
		Updates(map[string]any{"seq": next, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrContended
	}
	return next, nil
}
