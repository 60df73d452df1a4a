package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/coursecrawl/core/extract"
	"github.com/gaurav-prasanna/coursecrawl/core/output"
	"github.com/gaurav-prasanna/coursecrawl/crawl"
	"github.com/gaurav-prasanna/coursecrawl/logger"
)

var (
	flagStore    string
	flagNoFilter bool
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Fetch seed pages and append course-listing links to the listing store",
	Args:  cobra.NoArgs,
	RunE:  withSession(runListings),
}

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize",
	Short: "Deduplicate a link store and keep only canonical listing links",
	Long: `Canonicalize rewrites a link store in place: first duplicates are removed
(first occurrence wins), then only links ending with catalog.canonical_suffix
and not containing catalog.excluded_substring are kept.

Use --no-filter to only deduplicate (e.g. the course link store).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		path := flagStore
		if path == "" {
			path = a.cfg.Files.Listings
		}
		return canonicalize(a, path, !flagNoFilter)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Visit canonical listing pages and append course-detail links to the course store",
	Args:  cobra.NoArgs,
	RunE:  withSession(runDiscover),
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Visit course pages and append course records to the records file",
	Args:  cobra.NoArgs,
	RunE:  withSession(runExtract),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run listings, canonicalize, discover and extract in order",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, a *app, s *session) error {
		if err := runListings(ctx, a, s); err != nil {
			return err
		}
		if err := canonicalize(a, a.cfg.Files.Listings, true); err != nil {
			return err
		}
		if err := runDiscover(ctx, a, s); err != nil {
			return err
		}
		return runExtract(ctx, a, s)
	}),
}

func init() {
	canonicalizeCmd.Flags().StringVar(&flagStore, "store", "", "link store to rewrite (default: the listing store)")
	canonicalizeCmd.Flags().BoolVar(&flagNoFilter, "no-filter", false, "only deduplicate, skip the canonical filter")

	rootCmd.AddCommand(listingsCmd, canonicalizeCmd, discoverCmd, extractCmd, runCmd)
}

// withSession builds the app and a fetch session, and guarantees the
// session is closed however the stage returns.
func withSession(stage func(ctx context.Context, a *app, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.log.Sync() }()

		s, err := a.openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := s.close(); closeErr != nil {
				a.log.Warn("closing session", logger.Error(closeErr))
			}
		}()

		return stage(cmd.Context(), a, s)
	}
}

func runListings(ctx context.Context, a *app, s *session) error {
	seeds, err := a.seeds()
	if err != nil {
		return err
	}

	stage := &crawl.LinkStage{
		Driver:    a.driver(s, "listings"),
		Base:      a.cfg.Catalog.BaseURL,
		Predicate: extract.SubstringPredicate{Substring: a.cfg.Catalog.ListingSubstring},
		Store:     crawl.LinkStore{Path: a.cfg.Files.Listings},
	}
	res, err := stage.Run(ctx, seeds)
	a.report("listings", res)
	return err
}

func runDiscover(ctx context.Context, a *app, s *session) error {
	listings, err := crawl.LinkStore{Path: a.cfg.Files.Listings}.Load()
	if err != nil {
		return err
	}

	courses := crawl.LinkStore{Path: a.cfg.Files.Courses}
	stage := &crawl.LinkStage{
		Driver: a.driver(s, "discover"),
		Base:   a.cfg.Catalog.BaseURL,
		Predicate: extract.PrefixPredicate{
			Prefix: a.cfg.Catalog.CoursePrefix,
			Base:   a.cfg.Catalog.BaseURL,
		},
		Store: courses,
	}
	res, err := stage.Run(ctx, listings)
	a.report("discover", res)
	if err != nil {
		return err
	}
	return canonicalize(a, courses.Path, false)
}

func runExtract(ctx context.Context, a *app, s *session) error {
	courses, err := crawl.LinkStore{Path: a.cfg.Files.Courses}.Load()
	if err != nil {
		return err
	}

	sink, err := output.OpenTextSink(a.cfg.Files.Records)
	if err != nil {
		return err
	}
	defer sink.Close()

	stage := &crawl.DetailStage{
		Driver:    a.driver(s, "extract"),
		Extractor: a.courseExtractor(),
		Sink:      sink,
	}
	res, err := stage.Run(ctx, courses)
	a.report("extract", res)
	if err != nil {
		return err
	}
	return sink.Close()
}

func canonicalize(a *app, path string, filter bool) error {
	stats, err := crawl.CanonicalizeStore(crawl.LinkStore{Path: path}, a.canonicalRule(), filter)
	if err != nil {
		return fmt.Errorf("canonicalizing %s: %w", path, err)
	}
	a.log.Info("store canonicalized",
		logger.String("store", path),
		logger.Int("loaded", stats.Loaded),
		logger.Int("after_dedup", stats.AfterDedup),
		logger.Int("after_filter", stats.AfterFilter))
	fmt.Fprintf(a.out, "✓ %s: %d -> %d links\n", path, stats.Loaded, stats.AfterFilter)
	return nil
}
