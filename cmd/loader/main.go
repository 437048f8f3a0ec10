package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gotourism_loader/config"
	"gotourism_loader/internal/app"
	"gotourism_loader/internal/atdw"
	"gotourism_loader/internal/loader"
	"gotourism_loader/internal/loader/normalize"
	"gotourism_loader/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("loader", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	state := flags.String("state", "", "state code, e.g. VIC")
	region := flags.String("region", "", "region name")
	city := flags.String("city", "", "city name")
	term := flags.String("term", "", "free-text search term")
	categories := flags.StringSlice("category", nil, "category names or codes (repeatable)")
	near := flags.String("near", "", `search centre as "lat,lng"`)
	radius := flags.Float64("radius", 0, "search radius in km (with --near)")
	minRate := flags.Float64("min-rate", 0, "minimum rate")
	maxRate := flags.Float64("max-rate", 0, "maximum rate")
	starRating := flags.Float64("star-rating", 0, "minimum star rating")
	since := flags.String("since", "", "load the delta feed since YYYY-MM-DD instead of searching")
	limit := flags.Int("limit", 0, "load at most N products")
	maxPages := flags.Int("max-pages", 0, "stop search pagination after N pages")
	migrate := flags.Bool("migrate", false, "apply schema migrations before loading")

	flags.Int("batch-size", 10, "products per commit")
	flags.BoolP("yes", "y", false, "register newly discovered attributes without asking")
	flags.Int("workers", 1, "parallel detail fetchers")
	flags.Bool("skip-unchanged", false, "skip products whose fingerprint did not change")
	flags.String("facets", "", "YAML file with facet keywords")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	flags.String("log-level", "info", "log level")
	flags.Int("page-size", atdw.MaxPageSize, "search page size (max 5000)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log := logger.Must(cfg.Log.Env, cfg.Log.Level)
	defer log.Sync()

	if cfg.ATDW.APIKey == "" {
		log.Error("ATDW_API_KEY is not set")
		return 2
	}

	filter := atdw.Filter{
		Term:       *term,
		Categories: *categories,
		RadiusKm:   *radius,
		State:      strings.ToUpper(*state),
		City:       *city,
		Region:     *region,
		MaxPages:   *maxPages,
	}
	if *near != "" {
		lat, lng := normalize.Australia.ExtractCoordinates(*near)
		if lat == nil {
			log.Error("invalid --near, expected lat,lng inside Australia", zap.String("near", *near))
			return 2
		}
		filter.Lat, filter.Lng = lat, lng
	}
	if flags.Changed("min-rate") {
		filter.MinRate = minRate
	}
	if flags.Changed("max-rate") {
		filter.MaxRate = maxRate
	}
	if flags.Changed("star-rating") {
		filter.StarRating = starRating
	}
	if *since != "" {
		if _, ok := normalize.Date(*since); !ok {
			log.Error("invalid --since, expected YYYY-MM-DD", zap.String("since", *since))
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.NewLoaderApp(cfg, log)
	a.In, a.Out = os.Stdin, os.Stdout

	stats, err := a.Run(ctx, loader.Request{
		Filter:     filter,
		Since:      *since,
		Categories: *categories,
		Limit:      *limit,
	}, *migrate)
	printStats(stats)

	if err != nil {
		log.Error("load aborted", zap.Error(err))
		return 1
	}
	return 0
}

func printStats(s loader.Stats) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("LOAD STATISTICS")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Products processed:     %d\n", s.Processed)
	fmt.Printf("Products inserted:      %d\n", s.Inserted)
	fmt.Printf("Products updated:       %d\n", s.Updated)
	fmt.Printf("Products skipped:       %d\n", s.Skipped)
	fmt.Printf("Attributes added:       %d\n", s.AttributesAdded)
	fmt.Printf("Attributes registered:  %d\n", s.AttributesRegistered)
	fmt.Printf("Media items added:      %d\n", s.MediaAdded)
	fmt.Printf("Coverage gaps:          %d\n", s.CoverageGaps)
	fmt.Printf("Commits:                %d\n", s.Commits)
	fmt.Printf("Errors:                 %d\n", s.Errors)
	fmt.Printf("Duration:               %s\n", s.Duration.Round(time.Millisecond))
}
