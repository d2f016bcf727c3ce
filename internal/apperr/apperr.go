// Package apperr описывает ошибки, которые сервис отдаёт наружу.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation" // 400
	KindNotFound   Kind = "not_found"  // 404
	KindConflict   Kind = "conflict"   // 409
	KindStorage    Kind = "storage"    // 500
)

// Error: ошибка с категорией. Field заполняется только для ошибок валидации.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Missing: не передано обязательное поле.
func Missing(field string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: "missing required field"}
}

// Invalid: поле передано, но значение некорректно.
func Invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// Malformed превращает ошибку разбора тела запроса в ошибку валидации.
// Если внутри уже лежит *Error (например, от cvssScore), возвращается она.
func Malformed(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindValidation, Field: "body", Msg: "malformed JSON", Err: err}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %q not found", entity, id)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

// Storage оборачивает ошибку хранилища. Уже типизированные ошибки не трогает.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindStorage, Op: op, Msg: "storage failure", Err: err}
}

// KindOf возвращает категорию ошибки; всё неизвестное считается ошибкой хранилища.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStorage
}

// Is проверяет категорию ошибки.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
