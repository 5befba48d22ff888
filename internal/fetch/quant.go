package fetch

import (
	"fmt"
	"io"
	"strconv"
)

// Quantization is an --outtype accepted by the GGUF converter.
type Quantization string

const (
	Q4KM Quantization = "q4_k_m"
	Q5KM Quantization = "q5_k_m"
	Q80  Quantization = "q8_0"
)

type quantOption struct {
	q    Quantization
	desc string
}

// quantOptions are offered as choices 1..3, in this order.
//
//nolint:gochecknoglobals // immutable lookup table.
var quantOptions = []quantOption{
	{Q4KM, "Q4_K_M (4-bit quantization, medium quality)"},
	{Q5KM, "Q5_K_M (5-bit quantization, higher quality)"},
	{Q80, "Q8_0 (8-bit quantization, highest quality)"},
}

// Quantizations lists the supported values in menu order.
func Quantizations() []Quantization {
	out := make([]Quantization, 0, len(quantOptions))
	for _, o := range quantOptions {
		out = append(out, o.q)
	}
	return out
}

// ParseQuantization accepts a menu number ("1".."3") or a quantization name.
func ParseQuantization(s string) (Quantization, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(quantOptions) {
			return quantOptions[n-1].q, nil
		}
		return "", fmt.Errorf("invalid quantization choice %d", n)
	}
	for _, o := range quantOptions {
		if string(o.q) == s {
			return o.q, nil
		}
	}
	return "", fmt.Errorf("unknown quantization %q", s)
}

// AskQuantization shows the menu and reprompts until a choice in 1..3 is given.
func AskQuantization(p Prompter, out io.Writer) (Quantization, error) {
	fmt.Fprintln(out, "\nQuantization options:")
	for i, o := range quantOptions {
		fmt.Fprintf(out, "%d: %s\n", i+1, o.desc)
	}
	for {
		ans, err := p.Ask(fmt.Sprintf("Choose a quantization (1-%d): ", len(quantOptions)))
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(quantOptions) {
			return quantOptions[n-1].q, nil
		}
		fmt.Fprintf(out, "⚠️ Invalid choice. Enter a number between 1 and %d.\n", len(quantOptions))
	}
}
