package repository

import (
	"errors"

	"materials_market/internal/errs"

	"gorm.io/gorm"
)

// translate maps gorm failures onto the engine error kinds; typed errors pass through.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.Wrap(errs.KindNotFound, op, err, "record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.Wrap(errs.KindConflict, op, err, "duplicate key")
	}
	return err
}
