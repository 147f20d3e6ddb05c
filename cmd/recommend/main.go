// Command recommend prints explained recommendations for a user id or a
// movie title:
//
//	recommend -user 42 -n 5
//	recommend -movie "Toy Story (1995)"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agenthands/reelgraph/internal/app"
	"github.com/agenthands/reelgraph/internal/core/model"
	"github.com/agenthands/reelgraph/internal/logging"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	var (
		userID  = flag.Int64("user", 0, "recommend for this user id")
		title   = flag.String("movie", "", "recommend movies similar to this exact title")
		search  = flag.String("search", "", "list titles matching this query")
		n       = flag.Int("n", 0, "number of recommendations (0 uses the configured default)")
		cfgPath = flag.String("config", "", "config file (defaults to CONFIG_PATH or config/config.toml)")
	)
	flag.Parse()

	if *search == "" && *title == "" && *userID == 0 {
		flag.Usage()
		return 2
	}

	_ = godotenv.Load()
	cfg, err := app.LoadConfig(*cfgPath)
	if err != nil {
		return fail(err)
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			color.Red("Error closing resources: %v", err)
		}
	}()

	switch {
	case *search != "":
		matches, err := a.Recommender.SearchTitles(ctx, *search, *n)
		if err != nil {
			return fail(err)
		}
		if len(matches) == 0 {
			color.Yellow("No titles match %q.", *search)
			return 0
		}
		for _, m := range matches {
			fmt.Printf("%s  %s\n", color.CyanString("%6d", m.MovieID), m.Title)
		}

	case *title != "":
		rec, err := a.Recommender.RecommendForMovie(ctx, *title, *n)
		if err != nil {
			return fail(err)
		}
		printRecommendation(rec)

	default:
		rec, err := a.Recommender.RecommendForUser(ctx, *userID, *n)
		if err != nil {
			return fail(err)
		}
		printRecommendation(rec)
	}
	return 0
}

func printRecommendation(rec *model.Recommendation) {
	bold := color.New(color.Bold)
	if rec.SourceMovie != nil {
		bold.Printf("Based on your love for %s:\n\n", color.MagentaString(rec.SourceMovie.Title))
	}
	if rec.Message != "" {
		color.Yellow("%s", rec.Message)
		fmt.Println()
	}

	for i, c := range rec.Candidates {
		fmt.Printf("%s %s %s\n", color.GreenString("%d.", i+1), bold.Sprint(c.Title), color.HiBlackString("(%.3f)", c.Similarity))
		fmt.Printf("   %s\n", c.Explanation)
	}
}

func fail(err error) int {
	color.Red("Error: %v (%s)", err, model.Code(err))
	return 1
}
