// Package idalloc выдаёт номера инцидентов вида INC-<YYYY>-<NNN>.
//
// Номер уникален в пределах года и никогда не выдаётся повторно, даже если
// инцидент с ним удалён. Ширина суффикса не ограничена: после 999 идёт 1000.
package idalloc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"vuln-tracker/internal/models"

	"gorm.io/gorm"
)

const idPrefix = "INC-"

// ErrContended: параллельная транзакция успела занять номер первой.
// Транзакцию создания инцидента нужно откатить и повторить целиком.
var ErrContended = errors.New("incident id allocation contended")

// Allocator выдаёт следующий номер за год year.
// tx: транзакция, в которой затем будет вставлен инцидент.
type Allocator interface {
	Next(ctx context.Context, tx *gorm.DB, year int) (int64, error)
}

// Format собирает ID: INC-2024-001, INC-2024-1000.
func Format(year int, seq int64) string {
	return fmt.Sprintf("%s%04d-%03d", idPrefix, year, seq)
}

// Prefix: общая часть ID за год, "INC-2024-".
func Prefix(year int) string {
	return fmt.Sprintf("%s%04d-", idPrefix, year)
}

// Parse разбирает ID обратно на год и номер.
func Parse(id string) (year int, seq int64, err error) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("incident id %q: missing %s prefix", id, idPrefix)
	}
	yearStr, seqStr, ok := strings.Cut(rest, "-")
	if !ok || len(yearStr) != 4 {
		return 0, 0, fmt.Errorf("incident id %q: malformed year", id)
	}
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, fmt.Errorf("incident id %q: %w", id, err)
	}
	seq, err = strconv.ParseInt(seqStr, 10, 64)
	if err != nil || seq <= 0 {
		return 0, 0, fmt.Errorf("incident id %q: malformed sequence", id)
	}
	return year, seq, nil
}

// HighestIssued: наибольший номер среди существующих инцидентов за год (0, если их нет).
// Сортировка по длине нужна, чтобы 1000 оказалось больше 999.
func HighestIssued(tx *gorm.DB, year int) (int64, error) {
	var ids []string
	err := tx.Model(&models.Incident{}).
		Where("id LIKE ?", Prefix(year)+"%").
		Order("LENGTH(id) desc, id desc").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	_, seq, err := Parse(ids[0])
	if err != nil {
		return 0, err
	}
	return seq, nil
}
