// Package repository holds the MySQL data access layer.  Every repo
// resolves its executor through database.Conn so calls made inside
// TxManager.WithinTx join the open transaction.
//
// Sentinel errors let services map failures without inspecting driver
// errors: ErrNotFound for missing rows, ErrDuplicate for unique key
// violations (MySQL 1062).
package repository

import (
	"database/sql"
	"errors"

	"github.com/Kaplan-Paving/fleet-backend/internal/apperror"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate")

// mapErr converts driver errors into the sentinels above.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case apperror.IsDuplicateError(err):
		return ErrDuplicate
	}
	return err
}

// affectedOrNotFound turns a zero-row update/delete into ErrNotFound.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
