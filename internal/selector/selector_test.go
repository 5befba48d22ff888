package selector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("org/model-%03d", i)
	}
	return out
}

func newState(t *testing.T, n, pageSize int) *State {
	t.Helper()
	s, err := New(NewCandidateList(labels(n)), pageSize)
	require.NoError(t, err)
	return s
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := New(nil, 10)
	require.ErrorIs(t, err, ErrEmptyList)

	_, err = New(NewCandidateList(labels(3)), 0)
	require.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestTotalPages_IsCeil(t *testing.T) {
	t.Parallel()

	for _, pageSize := range []int{1, 2, 3, 7, 50} {
		for _, n := range []int{1, 2, 5, 49, 50, 51, 120} {
			s := newState(t, n, pageSize)
			want := (n + pageSize - 1) / pageSize
			assert.Equal(t, want, s.TotalPages(), "n=%d pageSize=%d", n, pageSize)
		}
	}
}

func TestDownNavigation_CrossesPages(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	require.Equal(t, 3, s.TotalPages())

	var crossings []int
	for i := 0; i < 119; i++ {
		before := s.Page()
		_, done := s.Apply(Down)
		require.False(t, done)
		if s.Page() != before {
			crossings = append(crossings, s.Selected())
		}
	}
	assert.Equal(t, 119, s.Selected())
	assert.Equal(t, 2, s.Page())
	assert.Equal(t, []int{50, 100}, crossings)

	// Clamped at the end of the whole list.
	s.Apply(Down)
	assert.Equal(t, 119, s.Selected())
	assert.Equal(t, 2, s.Page())
}

func TestUpNavigation_ClampsAtFirstItem(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	for i := 0; i < 60; i++ {
		s.Apply(Down)
	}
	require.Equal(t, 1, s.Page())

	for i := 0; i < 10; i++ {
		s.Apply(Up)
	}
	assert.Equal(t, 50, s.Selected())
	assert.Equal(t, 1, s.Page())

	s.Apply(Up)
	assert.Equal(t, 49, s.Selected())
	assert.Equal(t, 0, s.Page())

	for i := 0; i < 100; i++ {
		s.Apply(Up)
	}
	assert.Equal(t, 0, s.Selected())
	assert.Equal(t, 0, s.Page())
}

func TestEveryIndexReachable(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ n, pageSize int }{{1, 1}, {7, 3}, {10, 10}, {23, 5}} {
		s := newState(t, tc.n, tc.pageSize)
		seen := map[int]bool{s.Selected(): true}
		for i := 0; i < tc.n; i++ {
			s.Apply(Down)
			seen[s.Selected()] = true
		}
		assert.Len(t, seen, tc.n)
	}
}

func TestDigitsEnter_ReturnsIndex(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	idx, done := s.Run(Digits("87"))
	require.True(t, done)
	assert.Equal(t, 87, idx)

	s = newState(t, 120, 50)
	idx, done = s.Run(Digits("0"))
	require.True(t, done)
	assert.Equal(t, 0, idx)
}

func TestDigitsEnter_OutOfRangeKeepsState(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	s.Apply(Down)
	s.Apply(Down)
	selected, page := s.Selected(), s.Page()

	_, done := s.Run(Digits("120"))
	require.False(t, done)
	assert.Equal(t, selected, s.Selected())
	assert.Equal(t, page, s.Page())
	assert.Empty(t, s.Buffer())
	assert.Contains(t, s.Message(), "invalid index 120")

	// Overflowing input is rejected the same way.
	_, done = s.Run(Digits("99999999999999999999999"))
	require.False(t, done)
	assert.Empty(t, s.Buffer())
	assert.Contains(t, s.Message(), "invalid input")
	assert.Equal(t, selected, s.Selected())
}

func TestEmptyEnter_AdvancesPageWithWrap(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	pages := []int{}
	for i := 0; i < 6; i++ {
		_, done := s.Apply(Enter)
		require.False(t, done)
		pages = append(pages, s.Page())
	}
	assert.Equal(t, []int{1, 2, 0, 1, 2, 0}, pages)
	assert.Equal(t, 0, s.Selected())
}

func TestArrowAfterPageAdvance_ReturnsToSelectionPage(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	s.Apply(Enter)
	require.Equal(t, 1, s.Page())
	require.Equal(t, 0, s.Selected())

	// Paging does not move the highlight, so the next arrow key pages back to it.
	s.Apply(Down)
	assert.Equal(t, 1, s.Selected())
	assert.Equal(t, 0, s.Page())

	s.Apply(Enter)
	s.Apply(Enter)
	s.Apply(Up)
	assert.Equal(t, 0, s.Selected())
	assert.Equal(t, 0, s.Page())
}

func TestEmptyEnter_SinglePage(t *testing.T) {
	t.Parallel()

	s := newState(t, 3, 50)
	_, done := s.Apply(Enter)
	require.False(t, done)
	assert.Equal(t, 0, s.Page())
}

func TestBackspace(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	s.Apply(Backspace)
	assert.Empty(t, s.Buffer())

	s.Apply(Digit('1'))
	s.Apply(Digit('2'))
	s.Apply(Digit('x'))
	assert.Equal(t, "12", s.Buffer())
	s.Apply(Backspace)
	assert.Equal(t, "1", s.Buffer())

	idx, done := s.Apply(Enter)
	require.True(t, done)
	assert.Equal(t, 1, idx)
}

func TestSelect_ConfirmsHighlighted(t *testing.T) {
	t.Parallel()

	s := newState(t, 10, 4)
	idx, done := s.Run([]Key{Down, Down, Down, Down, Up, Select})
	require.True(t, done)
	assert.Equal(t, 3, idx)
}

func TestFrame_ShortFinalPage(t *testing.T) {
	t.Parallel()

	s := newState(t, 120, 50)
	s.Apply(Enter)
	s.Apply(Enter)

	f := s.Frame()
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 3, f.TotalPages)
	require.Len(t, f.Rows, 20)
	assert.Equal(t, 100, f.Rows[0].Index)
	assert.Equal(t, 119, f.Rows[19].Index)
	for _, r := range f.Rows {
		assert.False(t, r.Selected)
	}
	assert.Equal(t, 0, f.Selected.Index)
}

func TestFrame_MarksSelection(t *testing.T) {
	t.Parallel()

	s := newState(t, 5, 2)
	s.Apply(Down)
	s.Apply(Digit('4'))

	f := s.Frame()
	require.Len(t, f.Rows, 2)
	assert.False(t, f.Rows[0].Selected)
	assert.True(t, f.Rows[1].Selected)
	assert.Equal(t, "4", f.Buffer)
	assert.Equal(t, "org/model-001", f.Selected.Label)
}

func TestRun_KeysExhausted(t *testing.T) {
	t.Parallel()

	s := newState(t, 5, 2)
	_, done := s.Run([]Key{Down, Enter, Up})
	assert.False(t, done)
}
