package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/output"
	"github.com/gaurav-prasanna/coursecrawl/core/render"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

var (
	flagFormat    string
	flagOutputDir string
	flagName      string
	flagTitle     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert the records file to JSON, Markdown, PDF or normalized text",
	Long: `Export reads the append-only records file and writes it in another format.

Examples:
  coursecrawl export --format json --output_dir ./out
  coursecrawl export --format pdf --title "De Anza 2024-2025"`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagFormat, "format", "json", "output format: json, markdown, pdf or text")
	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "output directory (default: current directory)")
	exportCmd.Flags().StringVar(&flagName, "name", "", "file name without extension (default: derived from catalog.base_url)")
	exportCmd.Flags().StringVar(&flagTitle, "title", "", "document title for markdown and pdf")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	renderer, err := selectRenderer(flagFormat, flagTitle)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()

	f, err := os.Open(a.cfg.Files.Records)
	if err != nil {
		return fmt.Errorf("opening records: %w", err)
	}
	defer f.Close()

	records, err := render.ParseRecords(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", a.cfg.Files.Records, err)
	}

	data, err := renderer.Render(records)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	writer, err := output.New(flagOutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	name := flagName
	if name == "" {
		name = output.ExportName(a.cfg.Catalog.BaseURL)
	}
	path, err := writer.WriteExport(name, data, renderer.Extension())
	if err != nil {
		return err
	}

	a.log.Info("export written",
		logger.String("format", flagFormat),
		logger.Int("records", len(records)),
		logger.String("path", path))
	fmt.Fprintf(a.out, "✓ Written: %s (%d records)\n", path, len(records))
	return nil
}

// selectRenderer creates the Renderer for a --format value.
func selectRenderer(format, title string) (core.Renderer, error) {
	switch format {
	case "json":
		return render.NewJSONRenderer(), nil
	case "markdown", "md":
		return render.NewMarkdownRenderer(title), nil
	case "pdf":
		return render.NewPDFRenderer(title), nil
	case "text", "txt":
		return render.NewTextRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown format %q: want json, markdown, pdf or text", format)
	}
}
