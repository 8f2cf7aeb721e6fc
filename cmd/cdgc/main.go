// Command cdgc renders a TOML project description into a raw .cdg packet
// stream, per SPEC_FULL.md §6.4.
package main

import (
	"flag"
	"fmt"
	"os"

	"cdgforge/internal/cdgproj"
	"cdgforge/internal/cdgscheduler"
	"cdgforge/internal/cdgstream"
	"cdgforge/internal/cdgtimeline"
	"cdgforge/internal/obslog"
)

const (
	exitOK           = 0
	exitOverbudget   = 1
	exitInvalidInput = 2
	exitIOError      = 3
)

type fileBmpReader struct{}

func (fileBmpReader) ReadBmp(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cdgc", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "print per-event packet budgets")
	if err := fs.Parse(args); err != nil {
		return exitInvalidInput
	}
	rest := fs.Args()
	if len(rest) > 3 {
		// flag stops at the first positional argument, so parse any flags
		// given after <out.cdg> as well.
		if err := fs.Parse(rest[3:]); err != nil {
			return exitInvalidInput
		}
		rest = append(rest[:3:3], fs.Args()...)
	}
	if len(rest) != 3 || rest[0] != "render" {
		fmt.Fprintf(os.Stderr, "Usage: %s render <project.toml> <out.cdg> [-v]\n", os.Args[0])
		return exitInvalidInput
	}
	projectPath, outPath := rest[1], rest[2]

	logger := obslog.New(512)

	raw, err := os.ReadFile(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdgc: %v\n", err)
		return exitIOError
	}

	project, err := cdgproj.Load(raw, fileBmpReader{}, nil, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cdgc: invalid project: %v\n", err)
		return exitInvalidInput
	}

	timeline := cdgtimeline.New()
	if err := timeline.InsertAll(project.Events); err != nil {
		fmt.Fprintf(os.Stderr, "cdgc: invalid project: %v\n", err)
		return exitInvalidInput
	}

	totalPacks := project.TotalPacks()
	logger.Logf(obslog.ComponentScheduler, obslog.LevelInfo, "rendering %d events over %d packs", len(project.Events), totalPacks)

	packets, reports, err := cdgscheduler.Schedule(timeline, totalPacks, cdgscheduler.Options{
		InitialPalette:     project.InitialPalette,
		InitialBorder:      project.InitialBorder,
		InitialClearColor:  project.InitialClearColor,
		InitialTransparent: project.InitialTransparent,
		Logger:             logger,
	})
	if err != nil {
		switch err.(type) {
		case *cdgscheduler.OverbudgetError:
			fmt.Fprintf(os.Stderr, "cdgc: %v\n", err)
			return exitOverbudget
		default:
			fmt.Fprintf(os.Stderr, "cdgc: %v\n", err)
			return exitInvalidInput
		}
	}

	if *verbose {
		for _, r := range reports {
			fmt.Printf("event %d (track %d): budgeted %d packs, used %d packets\n", r.EventIndex, r.Track, r.PacketsBudgeted, r.PacketsUsed)
		}
	}

	if err := cdgstream.WriteFile(outPath, packets, logger); err != nil {
		fmt.Fprintf(os.Stderr, "cdgc: %v\n", err)
		return exitIOError
	}

	logger.Logf(obslog.ComponentCLI, obslog.LevelInfo, "wrote %s (%d packets)", outPath, len(packets))
	if *verbose {
		for _, e := range logger.Entries() {
			fmt.Println(e.Format())
		}
	}
	return exitOK
}
