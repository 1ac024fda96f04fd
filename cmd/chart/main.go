// Command chart computes a natal chart, resonant weather, or full reading
// from the command line and prints the same JSON the HTTP API returns.
//
// Usage:
//
//	go run ./cmd/chart \
//	  -ephe ./ephe -mode full \
//	  -birth 1985-12-08T13:15 -lat 35.68 -lon 51.42 \
//	  -here-lat 35.68 -here-lon 51.42
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/couchcryptid/astro-resonance-service/internal/adapter/ephemeris"
	"github.com/couchcryptid/astro-resonance-service/internal/config"
	"github.com/couchcryptid/astro-resonance-service/internal/domain"
	"github.com/couchcryptid/astro-resonance-service/internal/observability"
	"github.com/couchcryptid/astro-resonance-service/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(out io.Writer) error {
	ephe := flag.String("ephe", sharedcfg.EnvOrDefault("EPHEMERIS_PATH", "./ephe"), "directory containing the VSOP87B files")
	mode := flag.String("mode", "natal", "one of: natal, sky, weather, full")
	birth := flag.String("birth", "", "birth moment in UTC, YYYY-MM-DDTHH:MM")
	lat := flag.Float64("lat", 0, "birth latitude")
	lon := flag.Float64("lon", 0, "birth longitude")
	hereLat := flag.Float64("here-lat", 0, "current latitude")
	hereLon := flag.Float64("here-lon", 0, "current longitude")
	at := flag.String("at", "", "evaluate transits at this UTC moment instead of now, YYYY-MM-DDTHH:MM")
	flag.Parse()

	if *at != "" {
		t, err := time.Parse("2006-01-02T15:04", *at)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		// A fixed clock makes the output reproducible.
		pipeline.SetClock(clockwork.NewFakeClockAt(t))
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger := observability.NewLoggerTo(os.Stderr, &config.Config{
		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat: "text",
	})
	engine, err := ephemeris.NewEngine(*ephe, logger)
	if err != nil {
		return err
	}
	composer := pipeline.NewComposer(engine, logger, observability.NewMetrics())
	ctx := context.Background()

	if *mode == "sky" {
		snap, err := composer.CurrentSnapshot(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, pipeline.FormatSnapshot(snap))
	}

	if *birth == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -birth")
	}
	bt, err := time.Parse("2006-01-02T15:04", *birth)
	if err != nil {
		return fmt.Errorf("parse -birth: %w", err)
	}
	bd := domain.BirthData{Moment: domain.MomentOf(bt), Location: domain.Location{Lat: *lat, Lon: *lon}}
	if err := bd.Location.Validate(); err != nil {
		return err
	}
	here := domain.Location{Lat: *hereLat, Lon: *hereLon}
	if err := here.Validate(); err != nil {
		return err
	}

	switch *mode {
	case "natal":
		chart, err := composer.NatalChart(ctx, bd)
		if err != nil {
			return err
		}
		return printJSON(out, pipeline.FormatNatalChart(pipeline.Now(), chart))
	case "weather":
		rw, err := composer.ResonantWeather(ctx, bd, here)
		if err != nil {
			return err
		}
		return printJSON(out, pipeline.FormatResonantWeather(rw))
	case "full":
		fr, err := composer.FullReading(ctx, bd, here)
		if err != nil {
			return err
		}
		return printJSON(out, pipeline.FormatFullReading(fr))
	default:
		return fmt.Errorf("unknown -mode %q", *mode)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
