package registry

import (
	"sort"
	"strings"
	"time"
)

// GGUFSuffix identifies files already in GGUF format.
const GGUFSuffix = ".gguf"

// Sibling is one file of a model repository.
type Sibling struct {
	RFilename string `json:"rfilename"`
}

// ModelInfo is the registry's model record. Listing endpoints leave SHA and
// Siblings empty; ModelInfo fills them.
type ModelInfo struct {
	ID           string    `json:"id"`
	ModelID      string    `json:"modelId,omitempty"`
	SHA          string    `json:"sha,omitempty"`
	LastModified time.Time `json:"lastModified"`
	Private      bool      `json:"private"`
	Tags         []string  `json:"tags"`
	Downloads    int       `json:"downloads"`
	Likes        int       `json:"likes"`
	Siblings     []Sibling `json:"siblings,omitempty"`
}

// Name returns the model identifier, preferring the legacy modelId field.
func (m ModelInfo) Name() string {
	if m.ModelID != "" {
		return m.ModelID
	}
	return m.ID
}

// GGUFFiles returns the repository files with a .gguf suffix, in listing order.
func (m ModelInfo) GGUFFiles() []string {
	var out []string
	for _, s := range m.Siblings {
		if strings.HasSuffix(strings.ToLower(s.RFilename), GGUFSuffix) {
			out = append(out, s.RFilename)
		}
	}
	return out
}

// SortByName orders models by case-insensitive name, keeping registry order for ties.
func SortByName(models []ModelInfo) {
	sort.SliceStable(models, func(i, j int) bool {
		return strings.ToLower(models[i].Name()) < strings.ToLower(models[j].Name())
	})
}

// Names returns the model names in order.
func Names(models []ModelInfo) []string {
	out := make([]string, 0, len(models))
	for _, m := range models {
		out = append(out, m.Name())
	}
	return out
}
