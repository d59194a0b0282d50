// Package records содержит контракт шлюза хранилища (Storage Gateway): доступ к
// репозиториям всех сущностей и примитив транзакции с ограниченной областью
// действия. Реализации находятся в infrastructure/persistence.
package records

import (
	"context"

	"github.com/carpas-edu/carpas/internal/domain/course"
	"github.com/carpas-edu/carpas/internal/domain/enrollment"
	"github.com/carpas-edu/carpas/internal/domain/student"
)

// Repositories даёт доступ к репозиториям в рамках одной области видимости:
// либо авто-коммит поверх соединения, либо одна открытая транзакция.
type Repositories interface {
	// Students возвращает репозиторий студентов.
	Students() student.Repository

	// Courses возвращает репозиторий курсов.
	Courses() course.Repository

	// Enrollments возвращает репозиторий зачислений.
	Enrollments() enrollment.Repository
}

// TxFunc выполняется внутри транзакции. Возврат nil коммитит транзакцию,
// возврат ошибки (или паника) откатывает её целиком.
type TxFunc func(ctx context.Context, r Repositories) error

// Store - шлюз хранилища. Одно логическое действие вызывающей стороны
// должно укладываться в один вызов WithinTx/WithinReadTx, чтобы проверка
// уникальности и запись не разрывались на отдельные транзакции.
type Store interface {
	Repositories

	// WithinTx выполняет fn внутри транзакции записи. Частичные записи
	// никогда не видны другим вызывающим: коммит происходит только при
	// nil-результате fn.
	WithinTx(ctx context.Context, fn TxFunc) error

	// WithinReadTx выполняет fn внутри читающей транзакции: согласованный
	// снимок без блокировки писателей дольше одного запроса.
	WithinReadTx(ctx context.Context, fn TxFunc) error

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error

	// Close освобождает соединение.
	Close() error
}
