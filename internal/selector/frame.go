package selector

// Row is a rendered candidate on the current page.
type Row struct {
	Candidate
	Selected bool
}

// Frame is everything a presenter needs to draw the selector.
type Frame struct {
	Page       int
	TotalPages int
	Rows       []Row
	Buffer     string
	Message    string
	Selected   Candidate
}

// Frame snapshots the current page for rendering.
func (s *State) Frame() Frame {
	start, end := s.Bounds()
	rows := make([]Row, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, Row{Candidate: s.items[i], Selected: i == s.selected})
	}
	return Frame{
		Page:       s.pager.Page,
		TotalPages: s.pager.TotalPages,
		Rows:       rows,
		Buffer:     s.Buffer(),
		Message:    s.message,
		Selected:   s.items[s.selected],
	}
}

// Run drives the state machine from a key sequence until a selection is made.
// It reports false if the keys run out first.
func (s *State) Run(keys []Key) (int, bool) {
	for _, k := range keys {
		if idx, done := s.Apply(k); done {
			return idx, true
		}
	}
	return 0, false
}
