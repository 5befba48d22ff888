package selector

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/paginator"
)

// DefaultPageSize is the number of rows rendered per page.
const DefaultPageSize = 50

var (
	ErrEmptyList       = errors.New("candidate list is empty")
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// Candidate is a single selectable row.
type Candidate struct {
	Index int    `json:"index"`
	Label string `json:"modelId"`
}

// CandidateList is an ordered, immutable list of candidates.
type CandidateList []Candidate

// NewCandidateList indexes labels in the order given.
// Callers sort labels before building the list; the order is never changed afterwards.
func NewCandidateList(labels []string) CandidateList {
	list := make(CandidateList, 0, len(labels))
	for i, l := range labels {
		list = append(list, Candidate{Index: i, Label: l})
	}
	return list
}

// State is the selection state machine. It is created when a selection starts,
// mutated once per key, and discarded once an index is returned.
type State struct {
	items    CandidateList
	selected int
	pager    paginator.Model
	buffer   []rune
	message  string
}

// New constructs a State positioned on the first item of the first page.
func New(items CandidateList, pageSize int) (*State, error) {
	if len(items) == 0 {
		return nil, ErrEmptyList
	}
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	p := paginator.New(paginator.WithPerPage(pageSize))
	p.SetTotalPages(len(items))
	return &State{items: items, pager: p}, nil
}

// Apply feeds one key into the state machine. It returns the chosen index and
// true when the key completes the selection.
func (s *State) Apply(k Key) (int, bool) { //nolint:cyclop // one case per key kind
	switch k.Kind {
	case KindDigit:
		s.message = ""
		if k.Digit >= '0' && k.Digit <= '9' {
			s.buffer = append(s.buffer, k.Digit)
		}
	case KindBackspace:
		s.message = ""
		if len(s.buffer) > 0 {
			s.buffer = s.buffer[:len(s.buffer)-1]
		}
	case KindEnter:
		if len(s.buffer) > 0 {
			return s.confirmBuffer()
		}
		s.nextPage()
	case KindSelect:
		s.message = ""
		s.buffer = s.buffer[:0]
		return s.selected, true
	case KindUp:
		s.message = ""
		if s.selected > 0 {
			s.selected--
		}
		s.followSelection()
	case KindDown:
		s.message = ""
		if s.selected < len(s.items)-1 {
			s.selected++
		}
		s.followSelection()
	}
	return 0, false
}

// confirmBuffer handles Enter with typed digits. The buffer is always cleared;
// selection and page are left untouched when the value is rejected.
func (s *State) confirmBuffer() (int, bool) {
	text := string(s.buffer)
	s.buffer = s.buffer[:0]
	idx, err := strconv.Atoi(text)
	if err != nil {
		s.message = fmt.Sprintf("invalid input: %q", text)
		return 0, false
	}
	if idx < 0 || idx >= len(s.items) {
		s.message = fmt.Sprintf("invalid index %d, expected 0-%d", idx, len(s.items)-1)
		return 0, false
	}
	s.message = ""
	return idx, true
}

// nextPage handles Enter with an empty buffer, wrapping after the last page.
func (s *State) nextPage() {
	s.message = ""
	if s.pager.OnLastPage() {
		s.pager.Page = 0
		return
	}
	s.pager.NextPage()
}

// followSelection moves the page to the one holding the selected item.
func (s *State) followSelection() {
	s.pager.Page = s.selected / s.pager.PerPage
}

// Selected returns the highlighted index.
func (s *State) Selected() int { return s.selected }

// Page returns the zero-based current page.
func (s *State) Page() int { return s.pager.Page }

// TotalPages returns ceil(len/pageSize).
func (s *State) TotalPages() int { return s.pager.TotalPages }

// Buffer returns the pending numeric input.
func (s *State) Buffer() string { return string(s.buffer) }

// Message returns the last input error, if any.
func (s *State) Message() string { return s.message }

// Bounds returns the [start, end) item range of the current page.
func (s *State) Bounds() (int, int) {
	return s.pager.GetSliceBounds(len(s.items))
}
