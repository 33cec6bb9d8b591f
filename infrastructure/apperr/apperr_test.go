package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestFromStorageMapsConstraintErrors(t *testing.T) {
	unique := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	err := FromStorage(fmt.Errorf("insert customer: %w", unique))
	assert.ErrorIs(t, err, ErrConflict)

	pk := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}
	assert.ErrorIs(t, FromStorage(pk), ErrConflict)

	fk := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}
	assert.ErrorIs(t, FromStorage(fk), ErrValidation)
}

func TestFromStorageMapsNoRows(t *testing.T) {
	assert.ErrorIs(t, FromStorage(sql.ErrNoRows), ErrNotFound)
}

func TestFromStoragePassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("disk I/O error")
	assert.Same(t, boom, FromStorage(boom))
	assert.NoError(t, FromStorage(nil))
}

func TestKindErrorsKeepMessage(t *testing.T) {
	err := Validation("Request body must be an array of bookings.")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Request body must be an array of bookings.", err.Error())
	assert.Equal(t, "booking not found", NotFound("booking").Error())
}

func TestExpectAffected(t *testing.T) {
	assert.ErrorIs(t, ExpectAffected(fakeResult(0), "order"), ErrNotFound)
	assert.NoError(t, ExpectAffected(fakeResult(1), "order"))
}
