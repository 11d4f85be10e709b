package repository

import (
	"fmt"
	"strings"

	"materials_market/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberFormat renders sequence values as prefixed, zero padded numbers (INV-00001).
type NumberFormat struct {
	Prefix string
	Width  int
}

func (f NumberFormat) Format(value int64) string {
	width := f.Width
	if width <= 0 {
		width = 1
	}
	return fmt.Sprintf("%s%0*d", f.Prefix, width, value)
}

// nextSequence increments the counter for prefix inside tx. The UPDATE takes a row
// lock, so concurrent transactions receive distinct values.
func nextSequence(tx *gorm.DB, prefix string) (int64, error) {
	prefix = strings.TrimSpace(prefix)
	seed := models.NumberSequence{Prefix: prefix}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	var value int64
	err := tx.Raw(
		"UPDATE number_sequences SET last_value = last_value + 1, updated_at = NOW() WHERE prefix = ? RETURNING last_value",
		prefix,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
