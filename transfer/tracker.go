package transfer

import (
	"errors"
	"fmt"

	"github.com/moyoez/gcomserver-go/types"
)

var (
	ErrNegativeCount = errors.New("negative group size")
	ErrGroupComplete = errors.New("group already complete")
	ErrSlotIndex     = errors.New("slot index out of order")
	ErrSlotTaken     = errors.New("slot already populated")
)

// Tracker accumulates the slots of one group. It is not safe for concurrent use;
// a session drives it from a single goroutine.
type Tracker struct {
	slots  []*types.Slot
	cursor int
}

// NewTracker returns a tracker sized for expected objects.
func NewTracker(expected int) (*Tracker, error) {
	t := &Tracker{}
	if err := t.Begin(expected); err != nil {
		return nil, err
	}
	return t, nil
}

// Begin resets the tracker for a new group.
func (t *Tracker) Begin(expected int) error {
	if expected < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, expected)
	}
	t.slots = make([]*types.Slot, expected)
	t.cursor = -1
	return nil
}

// Advance moves to the next slot and reports whether it is the last one.
func (t *Tracker) Advance() (index int, last bool, err error) {
	if t.cursor >= len(t.slots)-1 {
		return t.cursor, true, ErrGroupComplete
	}
	t.cursor++
	return t.cursor, t.cursor >= len(t.slots)-1, nil
}

// Stage records the object received for index, which must be the current slot.
func (t *Tracker) Stage(index int, path string, info types.ObjectInfo) error {
	if index != t.cursor || index < 0 || index >= len(t.slots) {
		return fmt.Errorf("%w: stage %d, current %d of %d", ErrSlotIndex, index, t.cursor, len(t.slots))
	}
	if t.slots[index] != nil {
		return fmt.Errorf("%w: %d", ErrSlotTaken, index)
	}
	t.slots[index] = &types.Slot{StagedPath: path, Info: info}
	return nil
}

// Slots returns the populated slots in index order.
func (t *Tracker) Slots() []types.Slot {
	out := make([]types.Slot, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// StagedPaths returns the paths of every populated slot.
func (t *Tracker) StagedPaths() []string {
	paths := make([]string, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			paths = append(paths, s.StagedPath)
		}
	}
	return paths
}

// Clear drops every slot. Calling it again is harmless.
func (t *Tracker) Clear() {
	t.slots = nil
	t.cursor = -1
}

func (t *Tracker) CurrentIndex() int { return t.cursor }

func (t *Tracker) Expected() int { return len(t.slots) }

// Populated counts the staged slots.
func (t *Tracker) Populated() int {
	n := 0
	for _, s := range t.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Complete reports whether every expected slot has been staged.
func (t *Tracker) Complete() bool {
	return len(t.slots) > 0 && t.Populated() == len(t.slots)
}
