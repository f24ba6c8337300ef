package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pressroom/supportmail/internal/config"
	"github.com/pressroom/supportmail/internal/normalize"
	"github.com/pressroom/supportmail/internal/pipeline"
	"github.com/pressroom/supportmail/internal/press"
	"github.com/pressroom/supportmail/internal/schema"
	"github.com/pressroom/supportmail/internal/server"
	"github.com/pressroom/supportmail/internal/trends"
)

var version = "dev"

//go:embed upload_template.csv
var uploadTemplateCSV []byte

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "supportmail",
	Short:   "Support mail auto formatter",
	Long:    "supportmail collates support ticket records into a monthly edition and formats it as branded HTML and Markdown.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		setupLogFile(cfg.GetLogFile())
		return nil
	},
}

// setupLogFile appends diagnostics to the configured log file in addition
// to stderr. Logging carries on without the file if it cannot be opened.
func setupLogFile(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Cannot create log directory: %v", err)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("Cannot open log file %s: %v", path, err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(schemaCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("supportmail", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/supportmail/",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		configTarget := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(configTarget); err == nil {
			fmt.Printf("Config already exists: %s\n", configTarget)
		} else {
			if err := os.WriteFile(configTarget, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", configTarget)
		}

		schemaTarget := filepath.Join(config.ConfigDir(), "support_mail.schema.json")
		if _, err := os.Stat(schemaTarget); err == nil {
			fmt.Printf("Schema already exists: %s\n", schemaTarget)
		} else {
			if err := os.WriteFile(schemaTarget, schema.DefaultSchemaJSON, 0o644); err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}
			fmt.Printf("Created schema: %s\n", schemaTarget)
		}

		fmt.Println("Edit the config to set the output directory and trends feed.")
		return nil
	},
}

// --- publish command ---

var (
	jsonInline   string
	jsonFile     string
	csvFile      string
	trendsHTML   string
	trendsFile   string
	trendsFeed   string
	withMarkdown bool
	dateFlag     string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Send to presses: collate, validate, and render an edition",
	Long: "Publish collates support ticket records into an edition, validates the " +
		"assembled payload against the support mail schema, and writes the HTML " +
		"(and optionally Markdown) artifacts.\n\n" +
		"Provide content via exactly one of --json, --json-file, or --csv.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := 0
		for _, s := range []string{jsonInline, jsonFile, csvFile} {
			if s != "" {
				sources++
			}
		}
		if sources == 0 {
			return fmt.Errorf("provide content via --json, --json-file, or --csv")
		}
		if sources > 1 {
			return fmt.Errorf("--json, --json-file, and --csv are mutually exclusive")
		}

		publishDate := time.Now()
		if dateFlag != "" {
			parsed, err := time.Parse(press.DateFormat, dateFlag)
			if err != nil {
				return fmt.Errorf("invalid date format %q, use YYYY-MM-DD", dateFlag)
			}
			publishDate = parsed
		}

		records, err := resolveRecords()
		if err != nil {
			return err
		}

		trendHTML, err := resolveTrends()
		if err != nil {
			return err
		}

		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		result := pipe.Run(context.Background(), publishDate, records, trendHTML, withMarkdown)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.State != pipeline.Rendered {
			return fmt.Errorf("publish pipeline failed, see log output above")
		}

		printSummary(result)
		fmt.Println("\nFiles generated:")
		for _, path := range result.OutputPaths {
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			fmt.Printf("  --> %s\n", abs)
		}
		fmt.Println("\nDone! Files are ready for distribution.")
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVarP(&jsonInline, "json", "j", "", "Inline JSON: a record list, or a payload with content buckets")
	publishCmd.Flags().StringVarP(&jsonFile, "json-file", "J", "", "Path to a JSON file containing the content payload")
	publishCmd.Flags().StringVarP(&csvFile, "csv", "c", "", "Path to a CSV file with support mail items")
	publishCmd.Flags().StringVarP(&trendsHTML, "trends", "t", "", "Inline HTML for the trends section")
	publishCmd.Flags().StringVarP(&trendsFile, "trends-file", "T", "", "Path to an HTML file whose contents populate the trends section")
	publishCmd.Flags().StringVar(&trendsFeed, "trends-feed", "", "RSS/Atom feed URL to build the trends section from")
	publishCmd.Flags().BoolVarP(&withMarkdown, "markdown", "m", false, "Include a Markdown (.md) file alongside the HTML output")
	publishCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Publish date in YYYY-MM-DD format (default: today)")
}

func resolveRecords() ([]map[string]any, error) {
	switch {
	case jsonInline != "":
		fmt.Println("Source: inline JSON")
		return press.ParseJSON([]byte(jsonInline))

	case jsonFile != "":
		fmt.Printf("Source: JSON file %s\n", jsonFile)
		data, err := os.ReadFile(jsonFile)
		if err != nil {
			return nil, fmt.Errorf("reading JSON file: %w", err)
		}
		return press.ParseJSON(data)

	default:
		fmt.Printf("Source: CSV file %s\n", csvFile)
		f, err := os.Open(csvFile)
		if err != nil {
			return nil, fmt.Errorf("opening CSV file: %w", err)
		}
		defer f.Close()

		table, err := normalize.ReadCSV(f)
		if err != nil {
			return nil, err
		}
		records := table.Normalize()

		included := 0
		for _, r := range records {
			if r["include"] == true {
				included++
			}
		}
		fmt.Printf("  %d row(s) read, %d marked for inclusion\n", len(records), included)
		return records, nil
	}
}

func resolveTrends() (string, error) {
	switch {
	case trendsHTML != "":
		return trendsHTML, nil
	case trendsFile != "":
		fmt.Printf("Trends HTML loaded from %s\n", trendsFile)
		return trends.FromFile(trendsFile)
	case trendsFeed != "":
		return trends.FromFeed(trendsFeed)
	case cfg.Trends.Feed != "":
		return trends.FromFeed(cfg.Trends.Feed)
	}
	return "", nil
}

func printSummary(result *pipeline.Result) {
	fmt.Println("\nCollation summary:")
	fmt.Printf("  Issues: %d\n", result.Counts.Issues)
	fmt.Printf("  Oops:   %d\n", result.Counts.Oops)
	fmt.Printf("  Wins:   %d\n", result.Counts.Wins)
	fmt.Printf("  News:   %d\n", result.Counts.News)
	if result.Counts.Invalid > 0 {
		fmt.Printf("  Skipped (bad category): %d\n", result.Counts.Invalid)
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting the presses at http://127.0.0.1:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(pipe, cfg.GetOutputDir(), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run the web UI on (default from config)")
}

// --- template command ---

var templateOutput string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Export the CSV upload template",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.WriteFile(templateOutput, uploadTemplateCSV, 0o644); err != nil {
			return fmt.Errorf("writing template: %w", err)
		}
		abs, err := filepath.Abs(templateOutput)
		if err != nil {
			abs = templateOutput
		}
		fmt.Printf("CSV template written to %s\n", abs)
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "upload_template.csv", "Path to write the CSV template")
}

// --- schema command ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON validation schema for the content payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader := schema.NewLoader(cfg.GetSchemaPath(), cfg.Schema.URL)
		if _, err := loader.Load(cmd.Context()); err != nil {
			log.Printf("Falling back to the embedded schema: %v", err)
		}
		fmt.Println(string(loader.Raw()))
		return nil
	},
}
