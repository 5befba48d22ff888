// Package fetch downloads a selected model and, when it has no GGUF files,
// converts it with the external converter.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/hf-pick/internal/invoker"
	"github.com/ensigniasec/hf-pick/internal/localfiles"
	"github.com/ensigniasec/hf-pick/internal/report"
	"github.com/ensigniasec/hf-pick/internal/storage"
	"github.com/ensigniasec/hf-pick/internal/validate"
)

// Step names, also recorded in the manifest.
const (
	StepDownload = "download"
	StepConvert  = "convert"
)

// Tools names the external programs the workflow drives.
type Tools struct {
	DownloadBin   string
	PythonBin     string
	ConvertScript string
	OutputName    string
}

// DownloadCommand fetches the whole repository, or just file when non-empty.
func (t Tools) DownloadCommand(modelID, dir, file string) invoker.Command {
	args := []string{"download", modelID}
	if file != "" {
		args = append(args, file)
	}
	args = append(args, "--local-dir", dir)
	return invoker.Command{Name: t.DownloadBin, Args: args}
}

// ConvertCommand converts the checkpoint in src into a single GGUF file at out.
func (t Tools) ConvertCommand(src, out string, q Quantization) invoker.Command {
	return invoker.Command{
		Name: t.PythonBin,
		Args: []string{t.ConvertScript, src, "--outfile", out, "--outtype", string(q)},
	}
}

// Request describes what to fetch and where.
type Request struct {
	ModelID  string `validate:"required,repo_id"`
	Revision string
	// GGUFFiles, when non-empty, are offered for a single-file download and
	// conversion is skipped.
	GGUFFiles []string
	Dir       string `validate:"required"`
}

// Result reports what the workflow achieved. Exhausted retries are not errors.
type Result struct {
	Dir          string
	File         string
	Downloaded   bool
	Converted    bool
	Quantization Quantization
	Output       string
	// Declined is set when the user chose not to retry a failed conversion.
	Declined bool
}

// Workflow runs the download and conversion steps through a retrying invoker.
type Workflow struct {
	invoker  *invoker.Invoker
	prompter Prompter
	tools    Tools
	out      io.Writer
	now      func() time.Time
}

// Option mutates Workflow configuration.
type Option func(*Workflow)

// WithOutput sets where progress messages are written.
func WithOutput(w io.Writer) Option {
	return func(wf *Workflow) {
		wf.out = w
	}
}

// WithClock replaces time.Now for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(wf *Workflow) {
		wf.now = now
	}
}

func New(iv *invoker.Invoker, p Prompter, tools Tools, opts ...Option) *Workflow {
	wf := &Workflow{
		invoker:  iv,
		prompter: p,
		tools:    tools,
		out:      os.Stdout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(wf)
	}
	return wf
}

// Run creates the destination, downloads, and converts when needed.
func (w *Workflow) Run(ctx context.Context, req Request) (Result, error) {
	if err := validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("invalid request: %w", err)
	}
	dir, err := localfiles.ExpandPath(req.Dir)
	if err != nil {
		return Result{}, fmt.Errorf("expand %s: %w", req.Dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create %s: %w", dir, err)
	}
	res := Result{Dir: dir}

	manifest, err := storage.NewOrExistingStorage(dir)
	if err != nil {
		return res, fmt.Errorf("open manifest: %w", err)
	}
	manifest.Data.ModelID = req.ModelID
	manifest.Data.Revision = req.Revision
	if err := manifest.Save(); err != nil {
		return res, fmt.Errorf("save manifest: %w", err)
	}

	if len(req.GGUFFiles) > 0 {
		return w.downloadGGUF(ctx, manifest, req, res)
	}

	if prev, ok := manifest.LastSuccess(StepDownload); ok && prev.ModelID == req.ModelID && prev.Target == "" {
		fmt.Fprintf(w.out, "\nℹ️ %s was downloaded here %s ago, resuming.\n", req.ModelID, report.HumanDuration(w.now().Sub(prev.FinishedAt)))
	}
	fmt.Fprintf(w.out, "\nDownloading %s...\n", req.ModelID)
	ok, err := w.runStep(ctx, manifest, invoker.Step{
		Name:    StepDownload,
		Command: w.tools.DownloadCommand(req.ModelID, dir, ""),
	}, storage.Run{ModelID: req.ModelID})
	if err != nil || !ok {
		return res, err
	}
	res.Downloaded = true
	fmt.Fprintln(w.out, "\n✅ Model downloaded.")

	fmt.Fprintln(w.out, "\nThe model will be converted to GGUF.")
	output := filepath.Join(dir, w.tools.OutputName)
	for {
		q, err := AskQuantization(w.prompter, w.out)
		if err != nil {
			return res, fmt.Errorf("choose quantization: %w", err)
		}
		ok, err := w.runStep(ctx, manifest, invoker.Step{
			Name:    StepConvert,
			Command: w.tools.ConvertCommand(dir, output, q),
		}, storage.Run{ModelID: req.ModelID, Target: w.tools.OutputName, Quantization: string(q)})
		if err != nil {
			return res, err
		}
		if ok {
			res.Converted = true
			res.Quantization = q
			res.Output = output
			fmt.Fprintf(w.out, "✅ Model converted to GGUF: %s\n", output)
			break
		}
		again, err := AskYesNo(w.prompter, "Choose a different quantization?")
		if err != nil {
			return res, err
		}
		if !again {
			res.Declined = true
			fmt.Fprintln(w.out, "⛔ GGUF conversion cancelled.")
			return res, nil
		}
	}

	w.summarize(ctx, dir)
	return res, nil
}

func (w *Workflow) downloadGGUF(ctx context.Context, manifest *storage.Storage, req Request, res Result) (Result, error) {
	fmt.Fprintln(w.out)
	report.PrintGGUFChoices(w.out, req.GGUFFiles)
	i, err := AskIndex(w.prompter, w.out, "Which GGUF file do you want to download? Enter an index: ", len(req.GGUFFiles))
	if err != nil {
		return res, fmt.Errorf("choose GGUF file: %w", err)
	}
	file := req.GGUFFiles[i]
	res.File = file

	fmt.Fprintf(w.out, "\nDownloading %s from %s...\n", file, req.ModelID)
	ok, err := w.runStep(ctx, manifest, invoker.Step{
		Name:    StepDownload,
		Command: w.tools.DownloadCommand(req.ModelID, res.Dir, file),
	}, storage.Run{ModelID: req.ModelID, Target: file})
	if err != nil || !ok {
		return res, err
	}
	res.Downloaded = true
	fmt.Fprintln(w.out, "✅ GGUF file downloaded.")
	w.summarize(ctx, res.Dir)
	return res, nil
}

// runStep invokes step and appends its outcome to the manifest. It returns an
// error only when the step was interrupted or the manifest could not be written.
func (w *Workflow) runStep(ctx context.Context, manifest *storage.Storage, step invoker.Step, run storage.Run) (bool, error) {
	run.Step = step.Name
	run.StartedAt = w.now().UTC()
	outcome := w.invoker.Invoke(ctx, step)
	run.FinishedAt = w.now().UTC()
	run.Attempts = outcome.Attempts
	run.Succeeded = outcome.Succeeded()

	if _, err := manifest.Record(run); err != nil {
		return false, fmt.Errorf("record %s: %w", step.Name, err)
	}
	if outcome.State == invoker.Canceled {
		return false, fmt.Errorf("%s interrupted: %w", step.Name, outcome.Err)
	}
	logrus.Debugf("%s finished in %s (%s)", step.Name, report.HumanDuration(run.FinishedAt.Sub(run.StartedAt)), outcome.State)
	return run.Succeeded, nil
}

func (w *Workflow) summarize(ctx context.Context, dir string) {
	inv, err := localfiles.Walk(ctx, dir)
	if err != nil {
		logrus.Warnf("Could not list %s: %v", dir, err)
		return
	}
	report.PrintLocalSummary(w.out, inv)
}
