package merge

import (
	"fmt"
	"os"
	"sort"

	"github.com/jdfmerge/jdfmerge/pkg/config"
	"github.com/jdfmerge/jdfmerge/pkg/database"
	"github.com/jdfmerge/jdfmerge/pkg/gtfs"
	"github.com/jdfmerge/jdfmerge/pkg/jdf"
	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge timetable batches into one consistent dataset",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Merge batch directories and export the result",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "input",
						Usage:    "Batch directory, repeatable",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output zip path",
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "Config file path",
					},
					&cli.BoolFlag{
						Name:  "upload",
						Usage: "Upload the merged dataset to MongoDB",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					if c.String("output") == "" && !c.Bool("upload") {
						return fmt.Errorf("nothing to do: pass --output and/or --upload")
					}

					batches, err := loadBatches(c.StringSlice("input"))
					if err != nil {
						return err
					}

					engine := New(Options{
						LocationDistanceWarn: cfg.Merge.LocationDistanceWarn,
					})

					for _, batch := range batches {
						if err := engine.Add(batch); err != nil {
							return err
						}
					}

					if err := engine.ResolveOverlaps(); err != nil {
						return err
					}

					dataset := engine.Snapshot()

					if output := c.String("output"); output != "" {
						file, err := os.Create(output)
						if err != nil {
							return err
						}
						defer file.Close()

						if err := gtfs.Export(dataset, cfg.Output.Timezone, file); err != nil {
							return err
						}

						log.Info().Str("path", output).Msg("Wrote merged feed")
					}

					if c.Bool("upload") {
						if err := database.Connect(); err != nil {
							log.Fatal().Err(err).Msg("Failed to connect to database")
						}

						if err := database.UploadDataset(dataset); err != nil {
							return err
						}
					}

					return nil
				},
			},
			{
				Name:  "dump",
				Usage: "Parse a single batch directory and pretty-print it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "Batch directory",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					batch, err := jdf.ParseBatch(c.String("input"))
					if err != nil {
						return err
					}

					pretty.Println(batch)

					return nil
				},
			},
		},
	}
}

// loadBatches parses every input directory and orders the batches by
// source creation date. The sort is stable so batches sharing a date
// keep their command-line order, which becomes the resolver's final
// tie-break.
func loadBatches(dirs []string) ([]*jdf.Batch, error) {
	var batches []*jdf.Batch

	for _, dir := range dirs {
		batch, err := jdf.ParseBatch(dir)
		if err != nil {
			return nil, fmt.Errorf("parsing batch %s: %w", dir, err)
		}

		log.Info().Str("dir", dir).Str("date", batch.Version.Date.String()).Msg("Parsed batch")
		batches = append(batches, batch)
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].Version.Date.Before(batches[j].Version.Date)
	})

	return batches, nil
}
