package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := Conflict("invoice.create", "delivery %d already invoiced", 7)

	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrState))
	assert.Equal(t, "invoice.create: delivery 7 already invoiced", err.Error())
}

func TestKindOfSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("order.get", "order 3 not found"))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindConflict, "invoice.claim", cause, "claim failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invoice.claim: claim failed: connection reset", err.Error())
}
