// Package apperr classifies failures into the few kinds the API reports.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// kindError keeps the caller's message while matching a sentinel kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Validation returns an ErrValidation carrying msg verbatim.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return &kindError{kind: ErrNotFound, msg: entity + " not found"}
}

// Missing returns an ErrNotFound carrying msg verbatim.
func Missing(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict returns an ErrConflict carrying msg verbatim.
func Conflict(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an ErrUnauthorized carrying msg verbatim.
func Unauthorized(msg string) error {
	return &kindError{kind: ErrUnauthorized, msg: msg}
}

// Forbidden returns an ErrForbidden carrying msg verbatim.
func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

// FromStorage maps driver errors onto API kinds. Unique and primary key
// violations become conflicts, missing rows become not found, and anything
// else is returned unchanged.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &kindError{kind: ErrNotFound, msg: err.Error()}
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &kindError{kind: ErrConflict, msg: err.Error()}
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintNotNull:
			return &kindError{kind: ErrValidation, msg: err.Error()}
		}
	}
	return err
}

// ExpectAffected returns a not-found error when res touched no rows.
func ExpectAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFound(entity)
	}
	return nil
}
