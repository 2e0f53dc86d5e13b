package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bodgit/nesimg"
	"github.com/bodgit/nesimg/nes"
	"github.com/bodgit/nesimg/quantize"
	"github.com/urfave/cli/v2"
)

const defaultDB = "nesimg.db"

var errNoDB = errors.New("nesimg: no export database with --no-db")

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func loadPalette(c *cli.Context) (*nes.Palette, error) {
	file := c.String("pal")
	if file == "" {
		return nes.Default(), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return nes.Decode(f)
}

func options(c *cli.Context) quantize.Options {
	opts := quantize.DefaultOptions()
	opts.Attempts = c.Int("attempts")
	opts.MaxIterations = c.Int("iterations")
	opts.MedianCut = c.Bool("median-cut")
	opts.Workers = c.Int("workers")
	if c.IsSet("seed") {
		opts.Seed = c.Int64("seed")
	}
	return opts
}

func openDB(c *cli.Context) (*nesimg.ExportDB, error) {
	if c.Bool("no-db") {
		return nil, nil
	}
	return nesimg.NewExportDB(c.String("db"))
}

func newConverter(c *cli.Context) (*nesimg.Converter, func(), error) {
	p, err := loadPalette(c)
	if err != nil {
		return nil, nil, err
	}

	db, err := openDB(c)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if db != nil {
			db.Close()
		}
	}

	return nesimg.New(p, options(c), db, newLogger(c)), closer, nil
}

func newApp(ctx context.Context, cwd string) *cli.App {
	app := cli.NewApp()

	app.Name = "nesimg"
	app.Usage = "NES background graphics converter"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"NESIMG_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to export database",
		},
		&cli.BoolFlag{
			Name:  "no-db",
			Usage: "don't record exports, list is unavailable",
		},
		&cli.StringFlag{
			Name:    "pal",
			EnvVars: []string{"NESIMG_PALETTE"},
			Usage:   "load hardware palette from .pal `FILE`",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	convertFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  "attempts",
			Value: 5,
			Usage: "number of clustering attempts",
		},
		&cli.IntFlag{
			Name:  "iterations",
			Value: 300,
			Usage: "maximum iterations per clustering attempt",
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed of the first attempt",
		},
		&cli.BoolFlag{
			Name:  "median-cut",
			Usage: "add an attempt seeded with a median cut palette",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: runtime.NumCPU(),
			Usage: "clustering attempts to run at once",
		},
		&cli.BoolFlag{
			Name:  "crop",
			Usage: "crop images to a whole number of tiles",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "convert",
			Usage:       "Convert images",
			Description: "Writes FILE.export.png, FILE.pallet.json and FILE.chr next to each image",
			ArgsUsage:   "FILE...",
			Flags:       convertFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				n, closer, err := newConverter(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				for _, file := range c.Args().Slice() {
					start := time.Now()
					if _, err := n.ConvertFile(ctx, file, c.Bool("crop")); err != nil {
						return cli.NewExitError(err, 1)
					}
					newLogger(c).Printf("Converted \"%s\" in %s\n", file, time.Since(start))
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Convert every image in a directory tree",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Flags: append(convertFlags, &cli.IntFlag{
				Name:  "jobs",
				Value: 4,
				Usage: "images to convert at once",
			}),
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				n, closer, err := newConverter(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				if err := n.Scan(ctx, c.Args().First(), c.Int("jobs"), c.Bool("crop")); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "list",
			Usage: "List recorded exports",
			Action: func(c *cli.Context) error {
				if c.Bool("no-db") {
					return errNoDB
				}

				db, err := nesimg.NewExportDB(c.String("db"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer db.Close()

				exports, err := db.List()
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for _, e := range exports {
					fmt.Printf("%s %4dx%-4d % X %.4f %s\n", e.Hash, e.Width, e.Height, e.Colors[:], e.Score, e.Path)
				}

				return nil
			},
		},
		{
			Name:  "palette",
			Usage: "Print the hardware palette",
			Action: func(c *cli.Context) error {
				p, err := loadPalette(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				for i := 0; i < p.Len(); i++ {
					rgb := p.RGB(i)
					fmt.Printf("$%02X #%02X%02X%02X\n", i, rgb.R, rgb.G, rgb.B)
				}

				return nil
			},
		},
	}

	return app
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(ctx, cwd).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
