package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/hf-pick/internal/localfiles"
	"github.com/ensigniasec/hf-pick/internal/registry"
	"github.com/ensigniasec/hf-pick/internal/selector"
)

// Format selects how metadata is rendered.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json" or "yaml", case-insensitively; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected json or yaml)", s)
	}
}

const (
	reportWidth = 80

	cyanColor  = "63"
	grayColor  = "241"
	greenColor = "46"
)

// Metadata is the subset of a model record shown to the user.
type Metadata struct {
	ModelID      string    `json:"modelId" yaml:"modelId"`
	SHA          string    `json:"sha" yaml:"sha"`
	LastModified time.Time `json:"lastModified" yaml:"lastModified"`
	Private      bool      `json:"private" yaml:"private"`
	Tags         []string  `json:"tags" yaml:"tags"`
	Downloads    int       `json:"downloads" yaml:"downloads"`
	Likes        int       `json:"likes" yaml:"likes"`
	GGUFFiles    []string  `json:"ggufFiles,omitempty" yaml:"ggufFiles,omitempty"`
}

// NewMetadata projects a registry record onto Metadata.
func NewMetadata(info registry.ModelInfo) Metadata {
	tags := info.Tags
	if tags == nil {
		tags = []string{}
	}
	return Metadata{
		ModelID:      info.Name(),
		SHA:          info.SHA,
		LastModified: info.LastModified,
		Private:      info.Private,
		Tags:         tags,
		Downloads:    info.Downloads,
		Likes:        info.Likes,
		GGUFFiles:    info.GGUFFiles(),
	}
}

// Encode renders m in the given format without decoration.
func Encode(m Metadata, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		out, err := json.MarshalIndent(m, "", "    ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}

// PrintMetadata writes m to w. When styled, a header precedes the body and
// every body line is numbered.
func PrintMetadata(w io.Writer, m Metadata, f Format, styled bool) error {
	body, err := Encode(m, f)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if !styled {
		_, err = w.Write(body)
		return err
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(cyanColor)).
		Render("Model metadata: " + m.ModelID)
	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(grayColor)).
		Render(fmt.Sprintf("updated %s, %s downloads", humanize.Time(m.LastModified), humanize.Comma(int64(m.Downloads))))
	fmt.Fprintf(w, "%s\n%s\n", title, subtitle)
	fmt.Fprintln(w, strings.Repeat("=", reportWidth))

	gutter := lipgloss.NewStyle().Foreground(lipgloss.Color(grayColor))
	sc := bufio.NewScanner(bytes.NewReader(body))
	n := 1
	for sc.Scan() {
		fmt.Fprintf(w, "%s %s\n", gutter.Render(fmt.Sprintf("%3d │", n)), sc.Text())
		n++
	}
	return sc.Err()
}

// candidateEnvelope wraps the candidate list for JSON output.
type candidateEnvelope struct {
	Models selector.CandidateList `json:"models"`
}

// PrintCandidates writes the indexed candidate list as JSON.
func PrintCandidates(w io.Writer, items selector.CandidateList) error {
	if items == nil {
		items = selector.CandidateList{}
	}
	out, err := json.MarshalIndent(candidateEnvelope{Models: items}, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// PrintGGUFChoices lists GGUF filenames with their selection index.
func PrintGGUFChoices(w io.Writer, files []string) {
	fmt.Fprintln(w, "GGUF files available:")
	for i, f := range files {
		fmt.Fprintf(w, "  %d: %s\n", i, f)
	}
}

// PrintLocalSummary describes what is on disk after a download.
func PrintLocalSummary(w io.Writer, inv localfiles.Inventory) {
	fmt.Fprintln(w, strings.Repeat("=", reportWidth))
	fmt.Fprintf(w, "📁 %s\n", inv.Root)
	fmt.Fprintf(
		w,
		"   %s files, %s total, %d GGUF\n",
		humanize.Comma(int64(len(inv.Files))),
		humanize.Bytes(uint64(inv.TotalSize())), //nolint:gosec // sizes are non-negative.
		inv.GGUFCount(),
	)
	mark := lipgloss.NewStyle().Foreground(lipgloss.Color(greenColor))
	for _, f := range inv.Files {
		prefix := "  "
		if f.GGUF {
			prefix = mark.Render("✓ ")
		}
		fmt.Fprintf(w, "   %s%s (%s)\n", prefix, f.Path, humanize.Bytes(uint64(f.Size))) //nolint:gosec // sizes are non-negative.
	}
	fmt.Fprintln(w, strings.Repeat("=", reportWidth))
}

// HumanDuration returns a compact, human-readable duration string.
// Examples: 850ms, 1.23s, 2m05s, 1h02m.
func HumanDuration(d time.Duration) string {
	if d < time.Millisecond {
		us := d / time.Microsecond
		return fmt.Sprintf("%dµs", us)
	}
	if d < time.Second {
		ms := d / time.Millisecond
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		secs := float64(d) / float64(time.Second)
		return fmt.Sprintf("%.2fs", secs)
	}
	if d < time.Hour {
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%dh%02dm", h, m)
}
