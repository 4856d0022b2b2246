package draft

// CollectionDiff is the change set of a tracked collection relative to its
// baseline.
type CollectionDiff[T any] struct {
	Added         []T      `json:"added"`
	Removed       []string `json:"removed"`
	BaselineCount int      `json:"baseline_count"`
}

type entry[T any] struct {
	item  T
	fresh bool // added during this session
}

// Tracker keeps the live contents of an ordered collection together with the
// items added and the baseline keys removed since the baseline was loaded.
//
// Invariants: removed holds one key per removed baseline entry, so a key
// shared by several baseline entries may appear more than once, and the
// live baseline entries plus len(removed) always equal baselineCount.
type Tracker[T any] struct {
	key func(T) string

	live    []entry[T]
	removed []string

	baselineCount int
	editMode      bool
}

// NewTracker returns an empty tracker in create mode. key identifies an item
// for duplicate detection and for the removed set.
func NewTracker[T any](key func(T) string) *Tracker[T] {
	return &Tracker[T]{key: key}
}

// Reset clears the live list, the pending changes and the frozen baseline
// count, returning the tracker to create mode.
func (t *Tracker[T]) Reset() {
	t.live = nil
	t.removed = nil
	t.baselineCount = 0
	t.editMode = false
}

// Seed loads a baseline and switches the tracker to edit mode.
func (t *Tracker[T]) Seed(items []T) {
	t.Reset()
	t.editMode = true
	t.baselineCount = len(items)
	for _, item := range items {
		t.live = append(t.live, entry[T]{item: item})
	}
}

// Add appends item unless an item with the same key is already live.
// It reports whether the item was appended. Re-adding a removed baseline
// item restores it instead of recording an addition.
func (t *Tracker[T]) Add(item T) bool {
	k := t.key(item)
	if t.indexOf(k) >= 0 {
		return false
	}
	if t.unremove(k) {
		t.live = append(t.live, entry[T]{item: item})
		return true
	}
	t.Append(item)
	return true
}

// Append adds item without checking for duplicates. The item always counts
// as new, even when its key matches a removed baseline item.
func (t *Tracker[T]) Append(item T) {
	t.live = append(t.live, entry[T]{item: item, fresh: true})
}

// Remove deletes the live item at index if its key equals k. A mismatch is a
// silent no-op. Removing a baseline entry records its key as removed, once
// per entry.
func (t *Tracker[T]) Remove(k string, index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(t.live) || t.key(t.live[index].item) != k {
		return zero, false
	}

	e := t.live[index]
	t.live = append(t.live[:index:index], t.live[index+1:]...)

	if !e.fresh {
		t.removed = append(t.removed, k)
	}
	return e.item, true
}

// At returns the live item at index.
func (t *Tracker[T]) At(index int) (T, bool) {
	var zero T
	if index < 0 || index >= len(t.live) {
		return zero, false
	}
	return t.live[index].item, true
}

// Items returns a copy of the live collection.
func (t *Tracker[T]) Items() []T {
	out := make([]T, len(t.live))
	for i, e := range t.live {
		out[i] = e.item
	}
	return out
}

// Len returns the live size.
func (t *Tracker[T]) Len() int { return len(t.live) }

// EditMode reports whether the tracker holds a baseline.
func (t *Tracker[T]) EditMode() bool { return t.editMode }

// Diff returns the pending changes. In create mode nothing is pending since
// the whole collection is sent. Slices are never nil.
func (t *Tracker[T]) Diff() CollectionDiff[T] {
	diff := CollectionDiff[T]{
		Added:         []T{},
		Removed:       append([]string{}, t.removed...),
		BaselineCount: t.baselineCount,
	}
	if !t.editMode {
		return diff
	}
	for _, e := range t.live {
		if e.fresh {
			diff.Added = append(diff.Added, e.item)
		}
	}
	return diff
}

// InvalidEmpty reports whether the collection ended up empty: nothing live
// and every baseline item removed. A create-mode tracker is invalid whenever
// it is empty.
func (t *Tracker[T]) InvalidEmpty() bool {
	return len(t.live) == 0 && len(t.removed) == t.baselineCount
}

func (t *Tracker[T]) indexOf(k string) int {
	for i, e := range t.live {
		if t.key(e.item) == k {
			return i
		}
	}
	return -1
}

func (t *Tracker[T]) unremove(k string) bool {
	for i, r := range t.removed {
		if r == k {
			t.removed = append(t.removed[:i:i], t.removed[i+1:]...)
			return true
		}
	}
	return false
}
