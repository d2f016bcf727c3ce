// Package service реализует операции над уязвимостями и инцидентами:
// проверку ссылочной целостности, частичные обновления, выдачу номеров
// инцидентов и сводную статистику. Каждая изменяющая операция выполняется
// в одной транзакции.
package service

import (
	"context"
	"time"

	"vuln-tracker/internal/database"
	"vuln-tracker/internal/idalloc"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultMaxIDRetries = 5

type Service struct {
	db           *gorm.DB
	alloc        idalloc.Allocator
	log          *zap.Logger
	now          func() time.Time
	maxIDRetries uint64
	metrics      *metrics
}

type Option func(*Service)

// WithClock подменяет источник времени (год в номере инцидента берётся отсюда).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxIDRetries: сколько раз повторять создание инцидента при гонке за номер.
func WithMaxIDRetries(n uint64) Option {
	return func(s *Service) { s.maxIDRetries = n }
}

func New(db *gorm.DB, alloc idalloc.Allocator, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if alloc == nil {
		alloc = idalloc.NewCounterAllocator()
	}
	s := &Service{
		db:           db,
		alloc:        alloc,
		log:          log,
		now:          time.Now,
		maxIDRetries: defaultMaxIDRetries,
		metrics:      newMetrics(log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// timestamp: текущее время в UTC с точностью до микросекунд (как хранит PostgreSQL).
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}
