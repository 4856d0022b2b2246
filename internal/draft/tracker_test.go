package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeatureTracker(baseline ...string) *Tracker[string] {
	t := NewTracker(func(s string) string { return s })
	if baseline != nil {
		t.Seed(baseline)
	}
	return t
}

func TestTracker_AddIsIdempotent(t *testing.T) {
	tr := newFeatureTracker("Pool")

	assert.True(t, tr.Add("Garage"))
	assert.False(t, tr.Add("Garage"))
	assert.False(t, tr.Add("Pool"))

	assert.Equal(t, []string{"Pool", "Garage"}, tr.Items())
	assert.Equal(t, []string{"Garage"}, tr.Diff().Added)
}

func TestTracker_CreateModeRecordsNoAdditions(t *testing.T) {
	tr := newFeatureTracker()

	tr.Add("Balcony")

	assert.False(t, tr.EditMode())
	assert.Equal(t, []string{"Balcony"}, tr.Items())
	assert.Empty(t, tr.Diff().Added)
}

func TestTracker_RemoveAllBaseline(t *testing.T) {
	tr := newFeatureTracker("A", "B")

	_, ok := tr.Remove("A", 0)
	require.True(t, ok)
	_, ok = tr.Remove("B", 0)
	require.True(t, ok)

	assert.Empty(t, tr.Items())
	assert.ElementsMatch(t, []string{"A", "B"}, tr.Diff().Removed)
	assert.True(t, tr.InvalidEmpty())

	tr.Add("C")
	assert.False(t, tr.InvalidEmpty())
}

func TestTracker_RemoveAndAdd(t *testing.T) {
	tr := newFeatureTracker("A", "B")

	tr.Remove("A", 0)
	tr.Add("C")

	diff := tr.Diff()
	assert.Equal(t, []string{"B", "C"}, tr.Items())
	assert.Equal(t, []string{"A"}, diff.Removed)
	assert.Equal(t, []string{"C"}, diff.Added)
	assert.Equal(t, 2, diff.BaselineCount)
	assert.False(t, tr.InvalidEmpty())
}

func TestTracker_RemoveMismatchIsNoop(t *testing.T) {
	tr := newFeatureTracker("A", "B")

	tests := []struct {
		name  string
		value string
		index int
	}{
		{"wrong value", "B", 0},
		{"out of range", "A", 5},
		{"negative", "A", -1},
		{"unknown", "Z", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tr.Remove(tt.value, tt.index)
			assert.False(t, ok)
			assert.Equal(t, []string{"A", "B"}, tr.Items())
			assert.Empty(t, tr.Diff().Removed)
		})
	}
}

func TestTracker_RemovePendingAddition(t *testing.T) {
	tr := newFeatureTracker("A")

	tr.Add("C")
	tr.Remove("C", 1)

	diff := tr.Diff()
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Equal(t, []string{"A"}, tr.Items())
}

func TestTracker_ReAddRemovedBaselineRestores(t *testing.T) {
	tr := newFeatureTracker("A", "B")

	tr.Remove("A", 0)
	tr.Add("A")

	diff := tr.Diff()
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Equal(t, []string{"B", "A"}, tr.Items())
}

func TestTracker_AppendSameNameKeepsBaselineIdentity(t *testing.T) {
	tr := NewTracker(func(p Preview) string { return p.FileName })
	tr.Seed([]Preview{{FileName: "front.jpg", Content: "old"}})

	tr.Append(Preview{FileName: "front.jpg", Content: "new"})
	_, ok := tr.Remove("front.jpg", 0)
	require.True(t, ok)

	diff := tr.Diff()
	assert.Equal(t, []string{"front.jpg"}, diff.Removed)
	if assert.Len(t, diff.Added, 1) {
		assert.Equal(t, "new", diff.Added[0].Content)
	}
	assert.False(t, tr.InvalidEmpty())
}

func TestTracker_EmptyCreateIsInvalid(t *testing.T) {
	tr := newFeatureTracker()
	assert.True(t, tr.InvalidEmpty())
}

func TestTracker_ResetClearsBaseline(t *testing.T) {
	tr := newFeatureTracker("A")
	tr.Remove("A", 0)

	tr.Reset()

	diff := tr.Diff()
	assert.False(t, tr.EditMode())
	assert.Zero(t, diff.BaselineCount)
	assert.Empty(t, diff.Removed)
	assert.NotNil(t, diff.Added)
}

func newImageTracker(names ...string) *Tracker[Preview] {
	tr := NewTracker(func(p Preview) string { return p.FileName })
	baseline := make([]Preview, len(names))
	for i, n := range names {
		baseline[i] = Preview{FileName: n}
	}
	tr.Seed(baseline)
	return tr
}

func TestTracker_DuplicateBaselineKeys(t *testing.T) {
	t.Run("removing every entry is invalid", func(t *testing.T) {
		tr := newImageTracker("photo.jpg", "photo.jpg")

		_, ok := tr.Remove("photo.jpg", 0)
		require.True(t, ok)
		_, ok = tr.Remove("photo.jpg", 0)
		require.True(t, ok)

		diff := tr.Diff()
		assert.Zero(t, tr.Len())
		assert.Equal(t, []string{"photo.jpg", "photo.jpg"}, diff.Removed)
		assert.Equal(t, 2, diff.BaselineCount)
		assert.True(t, tr.InvalidEmpty())
	})

	t.Run("removing one entry is recorded", func(t *testing.T) {
		tr := newImageTracker("photo.jpg", "photo.jpg", "other.jpg")

		_, ok := tr.Remove("photo.jpg", 0)
		require.True(t, ok)

		assert.Equal(t, 2, tr.Len())
		assert.Equal(t, []string{"photo.jpg"}, tr.Diff().Removed)
		assert.False(t, tr.InvalidEmpty())
	})

	t.Run("re-adding restores one entry", func(t *testing.T) {
		tr := newImageTracker("photo.jpg", "photo.jpg")

		tr.Remove("photo.jpg", 0)
		tr.Remove("photo.jpg", 0)
		assert.True(t, tr.Add(Preview{FileName: "photo.jpg"}))

		diff := tr.Diff()
		assert.Equal(t, []string{"photo.jpg"}, diff.Removed)
		assert.Empty(t, diff.Added)
		assert.False(t, tr.InvalidEmpty())
	})
}
