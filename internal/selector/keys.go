package selector

// KeyKind enumerates the keys the selector understands.
type KeyKind int

const (
	KindDigit KeyKind = iota + 1
	KindEnter
	KindBackspace
	KindUp
	KindDown
	// KindSelect confirms the highlighted row. Enter never does: with an empty
	// buffer it turns the page instead.
	KindSelect
)

// Key is a single decoded keypress.
type Key struct {
	Kind  KeyKind
	Digit rune
}

//nolint:gochecknoglobals // immutable key values.
var (
	Enter     = Key{Kind: KindEnter}
	Backspace = Key{Kind: KindBackspace}
	Up        = Key{Kind: KindUp}
	Down      = Key{Kind: KindDown}
	Select    = Key{Kind: KindSelect}
)

// Digit returns the key for a typed digit.
func Digit(r rune) Key { return Key{Kind: KindDigit, Digit: r} }

// Digits expands a numeric string into digit keys followed by Enter.
func Digits(s string) []Key {
	keys := make([]Key, 0, len(s)+1)
	for _, r := range s {
		keys = append(keys, Digit(r))
	}
	return append(keys, Enter)
}
