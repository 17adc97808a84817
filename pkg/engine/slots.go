package engine

import "sync"

// SlotState is one worker slot's position in its lifecycle:
// Idle -> Dispatching -> Awaiting -> (Completed | Failed | Cancelled) -> Idle.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotDispatching
	SlotAwaiting
	SlotCompleted
	SlotFailed
	SlotCancelled
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotDispatching:
		return "dispatching"
	case SlotAwaiting:
		return "awaiting"
	case SlotCompleted:
		return "completed"
	case SlotFailed:
		return "failed"
	case SlotCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// slotTable tracks the per-slot states. Only the run loop writes; the mutex
// makes reads from tests and subscribers safe.
type slotTable struct {
	mu     sync.Mutex
	states []SlotState
}

func newSlotTable(n int) *slotTable {
	return &slotTable{states: make([]SlotState, n)}
}

func (t *slotTable) set(i int, s SlotState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[i] = s
}

func (t *slotTable) get(i int) SlotState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[i]
}

func (t *slotTable) snapshot() []SlotState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SlotState, len(t.states))
	copy(out, t.states)
	return out
}
