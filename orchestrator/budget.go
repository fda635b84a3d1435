package orchestrator

import (
	"errors"
	"fmt"
)

// ErrCallBudgetExhausted is returned when a turn would exceed MaxModelCalls.
var ErrCallBudgetExhausted = errors.New("model call budget exhausted")

// callBudget counts the model calls of one turn. A zero max is unlimited.
type callBudget struct {
	max  int
	used int
}

func (b *callBudget) spend() error {
	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("%w after %d calls", ErrCallBudgetExhausted, b.used)
	}
	b.used++
	return nil
}
