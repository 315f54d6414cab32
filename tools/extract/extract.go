// Command extract runs the full dump extraction pipeline: tracked
// pages, redirects, page ids, and inbound link counts.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"wikiextract"
)

func main() {
	app := &cli.App{
		Name:  "extract",
		Usage: "turn a multistream dump and its SQL exports into page-addressable records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the yaml configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "logging verbosity (debug, info, warn, error)",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	if err := wikiextract.SetLogLevel(c.String("log-level")); err != nil {
		return err
	}

	cfg, err := wikiextract.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	dumpDate, err := cfg.DumpDate()
	if err != nil {
		return err
	}

	// Output is keyed by dump date so runs against different dumps
	// never collide.
	outputPath := filepath.Join(cfg.OutputPath, dumpDate.Format(time.DateOnly))

	data, err := wikiextract.Extract(cfg, dumpDate, outputPath)
	if err != nil {
		return err
	}

	_, err = wikiextract.InboundLinkCounts(
		cfg.LinkTargetsPath, cfg.PageLinksPath, outputPath, data.Entities)
	return err
}
