// Package student содержит доменную модель студента CARPAS.
//
// Это часть ядра бизнес-логики системы учёта академических записей. Пакет
// определяет:
//
//   - Сущность Student с нормализацией и валидацией полей
//   - Value Objects: RollNo, Email
//   - Интерфейс репозитория Repository и параметры выборки ListOptions
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - интерфейс репозитория реализуется в infrastructure
//  3. Rich Domain Model - правила консистентности инкапсулированы в сущности
//
// # Пример использования
//
// Создание и изменение студента:
//
//	student, err := NewStudent(NewStudentParams{
//	    ID:         uuid.New().String(),
//	    RollNo:     "demo-001",
//	    FullName:   "Aarav Sharma",
//	    Department: "CSE",
//	    Semester:   shared.Semester(3),
//	    Email:      "demo001@example.com",
//	})
//	if err != nil {
//	    return err
//	}
//
//	// Номер зачётки нормализуется: "demo-001" -> "DEMO-001"
//	_ = student.RollNo
//
//	// Частичное обновление через доменные методы
//	if err := student.SetSemester(shared.Semester(4)); err != nil {
//	    return err
//	}
//
// Ограничения, которые пакет сознательно НЕ проверяет: уникальность номера
// зачётки. Это свойство хранилища, и его проверяет слой приложения внутри
// одной транзакции (check-then-act), а страхующий UNIQUE-индекс - хранилище.
package student
