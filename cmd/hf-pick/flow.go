package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensigniasec/hf-pick/internal/fetch"
	"github.com/ensigniasec/hf-pick/internal/match"
	"github.com/ensigniasec/hf-pick/internal/registry"
	"github.com/ensigniasec/hf-pick/internal/report"
	"github.com/ensigniasec/hf-pick/internal/selector"
	"github.com/ensigniasec/hf-pick/internal/tui"
)

// chooser returns the index picked from items.
type chooser func(items selector.CandidateList, pageSize int) (int, error)

type fetcher interface {
	Run(ctx context.Context, req fetch.Request) (fetch.Result, error)
}

// flow is the interactive search, select, inspect and fetch sequence.
type flow struct {
	reg         registry.Registry
	choose      chooser
	prompter    fetch.Prompter
	fetcher     fetcher
	out         io.Writer
	pageSize    int
	searchLimit int
	listLimit   int
}

func chooseWithTUI(items selector.CandidateList, pageSize int) (int, error) {
	return tui.Run(items, pageSize)
}

func newFlow(cmd *cobra.Command, choose chooser) *flow {
	out := cmd.OutOrStdout()
	p := fetch.NewLinePrompter(cmd.InOrStdin(), out)
	return &flow{
		reg:         newClient(),
		choose:      choose,
		prompter:    p,
		fetcher:     fetch.New(newInvoker(cmd), p, tools(), fetch.WithOutput(out)),
		out:         out,
		pageSize:    cfg.Selector.PageSize,
		searchLimit: cfg.Registry.SearchLimit,
		listLimit:   cfg.Registry.ListLimit,
	}
}

// run searches for query (asking for one when empty), lets the user pick a
// model, shows its metadata and offers to download it.
func (f *flow) run(ctx context.Context, query string) error {
	if query == "" {
		fmt.Fprintln(f.out, "Hugging Face model search")
		q, err := f.prompter.Ask("Enter a model name or id to search for: ")
		if err != nil {
			return err
		}
		query = q
	}

	models, err := f.search(ctx, query)
	if err != nil || len(models) == 0 {
		return err
	}

	items := selector.NewCandidateList(registry.Names(models))
	fmt.Fprintln(f.out, "\nModel list as JSON:")
	if err := report.PrintCandidates(f.out, items); err != nil {
		return err
	}

	idx, err := f.choose(items, f.pageSize)
	if errors.Is(err, tui.ErrQuit) {
		fmt.Fprintln(f.out, "\n⛔ Selection cancelled.")
		return nil
	}
	if err != nil {
		return err
	}
	id := items[idx].Label
	fmt.Fprintf(f.out, "\n✅ Selected model: %s\n", id)

	info, err := f.describe(ctx, id)
	if err != nil {
		return err
	}
	if err := report.PrintMetadata(f.out, report.NewMetadata(info), report.FormatJSON, true); err != nil {
		return err
	}

	ok, err := fetch.AskYesNo(f.prompter, "\nDo you want to download this model?")
	if err != nil || !ok {
		return err
	}
	return f.fetch(ctx, info, "")
}

// search returns the sorted matches for query. When there are none it offers
// the closest model name instead and searches again if the user accepts.
// An empty result with a nil error means the user has already been told why.
func (f *flow) search(ctx context.Context, query string) ([]registry.ModelInfo, error) {
	fmt.Fprintln(f.out, "\nSearching models...")
	models, err := f.reg.Search(ctx, query, f.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(models) > 0 {
		registry.SortByName(models)
		return models, nil
	}

	fmt.Fprintln(f.out, "No model matched your search. Looking for close matches...")
	all, err := f.reg.List(ctx, f.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	name, found := match.Closest(query, registry.Names(all))
	if !found {
		fmt.Fprintln(f.out, "⚠️ No similar model found.")
		return nil, nil
	}
	logrus.Debugf("closest match for %q among %d models: %s", query, len(all), name)

	fmt.Fprintf(f.out, "\n📌 Closest match: %s\n", name)
	ok, err := fetch.AskYesNo(f.prompter, fmt.Sprintf("Did you mean '%s'?", name))
	if err != nil {
		return nil, err
	}
	if !ok {
		fmt.Fprintln(f.out, "⚠️ No model matches the search.")
		return nil, nil
	}

	models, err = f.reg.Search(ctx, name, f.searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", name, err)
	}
	if len(models) == 0 {
		fmt.Fprintln(f.out, "⚠️ The suggested model could not be found.")
		return nil, nil
	}
	registry.SortByName(models)
	return models, nil
}

// describe fetches the model record and says whether a conversion will follow.
func (f *flow) describe(ctx context.Context, id string) (registry.ModelInfo, error) {
	info, err := f.reg.ModelInfo(ctx, id)
	if err != nil {
		return registry.ModelInfo{}, fmt.Errorf("model info %s: %w", id, err)
	}
	if len(info.GGUFFiles()) > 0 {
		fmt.Fprintln(f.out, "\n✅ This model has files in GGUF format.")
	} else {
		fmt.Fprintln(f.out, "\n⚠️ This model has no GGUF files. It will be converted after download.")
	}
	return info, nil
}

// download fetches id into dir without the selection steps.
func (f *flow) download(ctx context.Context, id, dir string) error {
	info, err := f.describe(ctx, id)
	if err != nil {
		return err
	}
	return f.fetch(ctx, info, dir)
}

func (f *flow) fetch(ctx context.Context, info registry.ModelInfo, dir string) error {
	for dir == "" {
		d, err := f.prompter.Ask("Directory to download the model into (e.g. ./models): ")
		if err != nil {
			return err
		}
		dir = d
	}
	res, err := f.fetcher.Run(ctx, fetch.Request{
		ModelID:   info.Name(),
		Revision:  info.SHA,
		GGUFFiles: info.GGUFFiles(),
		Dir:       dir,
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", info.Name(), err)
	}
	logrus.WithFields(logrus.Fields{
		"dir":        res.Dir,
		"downloaded": res.Downloaded,
		"converted":  res.Converted,
	}).Debug("fetch finished")
	return nil
}
