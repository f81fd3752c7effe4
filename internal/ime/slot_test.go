package ime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimeobserver/ime-observer/internal/ime"
)

func TestSlotTrySendNeverBlocksWhenFull(t *testing.T) {
	s := ime.NewSlot()
	s.TrySend("a")
	s.TrySend("b") // drops "a" under the drop-oldest discipline

	tok, ok := s.Recv()
	assert.True(t, ok)
	assert.Equal(t, "b", tok)
}

func TestSlotRecvFailsAfterClose(t *testing.T) {
	s := ime.NewSlot()
	s.Close()

	_, ok := s.Recv()
	assert.False(t, ok)
}

func TestSlotCloseIsIdempotent(t *testing.T) {
	s := ime.NewSlot()
	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
}
