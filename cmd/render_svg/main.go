package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/icodeforyou/doctypes-dashboard/chartview"
	"github.com/icodeforyou/doctypes-dashboard/config"
	"github.com/icodeforyou/doctypes-dashboard/doctypes"
	"github.com/icodeforyou/doctypes-dashboard/render"
	"github.com/lmittmann/tint"
)

func main() {
	url := flag.String("url", config.DefaultUpstreamURL, "document types endpoint")
	out := flag.String("out", "output.svg", "file to write the chart to")
	wait := flag.Duration("wait", time.Minute, "how long to wait for the document types")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))
	slog.SetDefault(logger)

	view := chartview.New(doctypes.New(*url, 0))
	view.Mount(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()
	if err := view.Wait(ctx); err != nil {
		logger.Error("gave up waiting for document types", slog.Any("error", err))
		os.Exit(1)
	}

	state := view.State()
	if !state.IsValid() {
		logger.Error("document types never loaded")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Error("creating output file", slog.Any("error", err))
		os.Exit(1)
	}
	defer f.Close()

	if err := render.PieSVG(f, state.Value(), chartview.Title, chartview.ContainerWidth, chartview.ContainerHeight); err != nil {
		logger.Error("rendering chart", slog.Any("error", err))
		f.Close()
		os.Remove(*out)
		os.Exit(1)
	}

	fmt.Println("wrote", *out)
}
