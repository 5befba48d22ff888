package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ensigniasec/hf-pick/internal/config"
	"github.com/ensigniasec/hf-pick/internal/fetch"
	"github.com/ensigniasec/hf-pick/internal/invoker"
	"github.com/ensigniasec/hf-pick/internal/registry"
	"github.com/ensigniasec/hf-pick/internal/report"
	"github.com/ensigniasec/hf-pick/internal/selector"
)

//nolint:gochecknoglobals // Cobra requires package-level vars for flag bindings in current structure.
var (
	// Version metadata populated at build time via -ldflags.
	releaseVersion = "dev"
	commit         = "none"
	date           = "unknown"

	// Used for flags.
	verbose    bool
	configFile string
	envFile    string
	jsonOutput bool
	outputFmt  string
	rawOutput  bool
	quantFlag  string

	// cfg is resolved once per invocation in PersistentPreRunE.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "hf-pick [QUERY]",
		Short: "Browse the Hugging Face Hub, pick a model, and fetch it as GGUF.",
		Long: `Search the Hugging Face Hub for models, choose one in a paginated terminal selector, ` +
			`inspect its metadata, and optionally download it. Models without GGUF files are ` +
			`converted with llama.cpp's convert_hf_to_gguf.py after download.`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: loadConfig,
		Run: func(cmd *cobra.Command, args []string) {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			f := newFlow(cmd, chooseWithTUI)
			if err := f.run(cmd.Context(), query); err != nil {
				logrus.Errorf("⚠️ %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n✅ Done.")
		},
	}
)

//nolint:gochecknoinits // Cobra command wiring performed in init in current structure.
func init() {
	// Route logs to stderr to avoid polluting stdout, especially for --json output.
	logrus.SetOutput(os.Stderr)

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging output")
	pflags.StringVar(&configFile, "config", "", "Optional: path to a YAML config file")
	pflags.StringVar(&envFile, "env-file", "", "Optional: path to a .env file (defaults to ./.env when present)")
	pflags.String("endpoint", registry.DefaultBaseURL, "Registry base URL")
	pflags.String("token", "", "Registry access token (defaults to $HF_TOKEN)")
	pflags.Int("page-size", selector.DefaultPageSize, "Rows per selector page")
	pflags.Int("retries", invoker.DefaultPolicy().MaxRetries, "Attempts per download or conversion")
	pflags.Int("timeout", invoker.DefaultPolicy().TimeoutSeconds, "Seconds before an attempt is abandoned")
	pflags.Int("backoff", invoker.DefaultPolicy().BackoffSeconds, "Seconds to wait between attempts")

	searchCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the candidate list as JSON")
	infoCmd.Flags().StringVarP(&outputFmt, "output", "o", "json", "Metadata format: json or yaml")
	infoCmd.Flags().BoolVar(&rawOutput, "raw", false, "Print the metadata without header or line numbers")
	convertCmd.Flags().StringVarP(&quantFlag, "quant", "q", string(fetch.Q4KM), "Quantization: 1-3, q4_k_m, q5_k_m or q8_0")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(convertCmd)

	// Built-in version flag: set version string and a custom template.
	rootCmd.Version = releaseVersion
	rootCmd.Annotations = map[string]string{"commit": commit, "date": date}
	rootCmd.SetVersionTemplate("{{printf \"%s %s\\ncommit: %s\\ndate: %s\\n\" .DisplayName .Version (index .Annotations \"commit\") (index .Annotations \"date\")}}")
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	registry.BuildVersion, registry.BuildCommit, registry.BuildDate = releaseVersion, commit, date

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	v := viper.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	c, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newClient() *registry.Client {
	c, err := registry.NewClient(
		registry.WithBaseURL(cfg.Registry.Endpoint),
		registry.WithToken(cfg.Registry.Token),
	)
	if err != nil {
		logrus.Fatalf("Unable to create registry client: %v", err)
	}
	return c
}

func newInvoker(cmd *cobra.Command) *invoker.Invoker {
	runner := invoker.ExecRunner{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	iv, err := invoker.New(runner, cfg.Retry, invoker.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		logrus.Fatal(err)
	}
	return iv
}

func tools() fetch.Tools {
	return fetch.Tools{
		DownloadBin:   cfg.Tools.DownloadBin,
		PythonBin:     cfg.Tools.PythonBin,
		ConvertScript: cfg.Tools.ConvertScript,
		OutputName:    cfg.Tools.OutputName,
	}
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "List models whose id contains QUERY",
	Long:  "Search the registry and print the matching model ids, sorted case-insensitively, with their selection index.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		models, err := newClient().Search(cmd.Context(), args[0], cfg.Registry.SearchLimit)
		if err != nil {
			logrus.Fatal(err)
		}
		registry.SortByName(models)
		items := selector.NewCandidateList(registry.Names(models))
		if jsonOutput {
			if err := report.PrintCandidates(cmd.OutOrStdout(), items); err != nil {
				logrus.Fatal(err)
			}
			return
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models found.")
			return
		}
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", it.Index, it.Label)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var infoCmd = &cobra.Command{
	Use:   "info MODEL_ID",
	Short: "Show a model's metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, err := report.ParseFormat(outputFmt)
		if err != nil {
			logrus.Fatal(err)
		}
		info, err := newClient().ModelInfo(cmd.Context(), args[0])
		if err != nil {
			logrus.Fatal(err)
		}
		if err := report.PrintMetadata(cmd.OutOrStdout(), report.NewMetadata(info), format, !rawOutput); err != nil {
			logrus.Fatal(err)
		}
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var downloadCmd = &cobra.Command{
	Use:   "download MODEL_ID [DIR]",
	Short: "Download a model, converting it to GGUF when it has no GGUF files",
	Long: "Download MODEL_ID into DIR (prompted when omitted). When the model has GGUF files you choose one; " +
		"otherwise the full repository is downloaded and converted.",
	Args: cobra.RangeArgs(1, 2), //nolint:mnd // model id and optional directory
	Run: func(cmd *cobra.Command, args []string) {
		f := newFlow(cmd, chooseWithTUI)
		dir := ""
		if len(args) == 2 { //nolint:mnd // optional directory argument
			dir = args[1]
		}
		if err := f.download(cmd.Context(), args[0], dir); err != nil {
			logrus.Errorf("⚠️ %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\n✅ Done.")
	},
}

//nolint:gochecknoglobals // Cobra command is defined at package scope in current structure.
var convertCmd = &cobra.Command{
	Use:   "convert DIR",
	Short: "Convert a downloaded checkpoint in DIR to GGUF",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		q, err := fetch.ParseQuantization(quantFlag)
		if err != nil {
			logrus.Fatal(err)
		}
		t := tools()
		out := filepath.Join(args[0], t.OutputName)
		outcome := newInvoker(cmd).Invoke(cmd.Context(), invoker.Step{
			Name:    fetch.StepConvert,
			Command: t.ConvertCommand(args[0], out, q),
		})
		if !outcome.Succeeded() {
			logrus.Fatalf("Conversion failed after %d attempts (%s)", outcome.Attempts, outcome.State)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Model converted to GGUF: %s\n", out)
	},
}

func main() {
	Execute()
}
