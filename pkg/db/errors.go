package db

import (
	"errors"

	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"gorm.io/gorm"
)

// MapError translates a gorm error into the typed error taxonomy. op names the
// failed operation, e.g. "db: insert item".
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op+": not found")
	}
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op+": duplicate")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
