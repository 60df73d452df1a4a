// Package cmd implements the coursecrawl CLI using Cobra.
// Each pipeline stage is its own command; `run` chains them.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/coursecrawl/config"
)

var (
	cfgFile string
	debug   bool

	// v holds the merged configuration once PersistentPreRunE has run.
	v *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "coursecrawl",
	Short: "Scrape a college course catalog into structured course records",
	Long: `coursecrawl crawls a paginated course catalog in three batch stages that
communicate only through plain-text files:

  listings      seed pages  -> listing links  (classlinks.txt, appended)
  canonicalize  dedup + filter a link file in place
  discover      listing links -> course links (classlist.txt, appended)
  extract       course links -> course records (finalclassdata.txt, appended)
  export        course records -> json, markdown, pdf or text

Usage:
  coursecrawl run
  coursecrawl extract --engine http --delay 500ms`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./coursecrawl.yaml if present)")
	pf.BoolVar(&debug, "debug", false, "debug logging with console output")

	pf.String("engine", config.EngineBrowser, "fetch engine: browser or http")
	pf.Duration("delay", 0, "minimum delay between requests (default from config: 1s)")
	pf.Duration("settle", 0, "wait after navigation before reading the page (browser engine)")
	pf.Duration("timeout", 0, "timeout for a single fetch attempt")
	pf.Int("attempts", 0, "fetch attempts per URL before it is recorded as failed")
	pf.Bool("respect-robots", true, "skip URLs disallowed by robots.txt")

	pf.String("seeds", "", "seed URL file for the listings stage")
	pf.String("listings", "", "listing link store")
	pf.String("courses", "", "course link store")
	pf.String("records", "", "course records file")
	pf.String("failures", "", "failed URL log")
}

// flagKeys maps persistent flags to config keys. Flags only override the
// config when set on the command line.
var flagKeys = map[string]string{
	"engine":         "fetch.engine",
	"delay":          "fetch.request_delay",
	"settle":         "fetch.settle_delay",
	"timeout":        "fetch.timeout",
	"attempts":       "fetch.max_attempts",
	"respect-robots": "fetch.respect_robots",
	"seeds":          "files.seeds",
	"listings":       "files.listings",
	"courses":        "files.courses",
	"records":        "files.records",
	"failures":       "files.failures",
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	v, err = config.New(cfgFile)
	if err != nil {
		return err
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	if debug {
		v.Set("log.level", "debug")
		v.Set("log.development", true)
	}
	return nil
}

// Execute runs the root command. ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
