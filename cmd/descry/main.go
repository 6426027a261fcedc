package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkmill/descry/internal/config"
	"github.com/inkmill/descry/internal/metrics"
	"github.com/inkmill/descry/internal/orchestrator"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigPath string
	Mode       string
	Processors string
	ChapterID  string
	InputFile  string
	Timeout    time.Duration
	Status     bool
	Verbose    bool
	Version    bool
}

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("descry", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigPath, "config", "", "path to descry.yml (defaults apply when absent)")
	fs.StringVar(&flags.Mode, "mode", "", "processing mode: single, parallel, sequential, ensemble, adaptive")
	fs.StringVar(&flags.Processors, "processors", "", "comma-separated processor names to restrict the call to")
	fs.StringVar(&flags.ChapterID, "chapter", "chapter-1", "chapter identifier for the extraction")
	fs.StringVar(&flags.InputFile, "input", "-", "chapter text file, or - for stdin")
	fs.DurationVar(&flags.Timeout, "timeout", 0, "per-call timeout override")
	fs.BoolVar(&flags.Status, "status", false, "print processor status and exit")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if flags.Verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	loader := config.NewFileLoader(flags.ConfigPath)
	sink := &metrics.ZerologSink{Logger: logger}

	manager, err := orchestrator.NewManager(loader, sink, logger)
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := context.Background()
	if err := manager.Initialize(ctx); err != nil {
		return err
	}

	if flags.Status {
		return printJSON(os.Stdout, manager.ProcessorStatus())
	}

	text, err := readInput(flags.InputFile)
	if err != nil {
		return err
	}

	var opts []orchestrator.ExtractOption
	if flags.Mode != "" {
		opts = append(opts, orchestrator.WithMode(flags.Mode))
	}
	if flags.Processors != "" {
		opts = append(opts, orchestrator.WithProcessors(strings.Split(flags.Processors, ",")...))
	}
	if flags.Timeout > 0 {
		opts = append(opts, orchestrator.WithTimeout(flags.Timeout))
	}

	// Drain progress events to the log while the extraction runs.
	go func() {
		for ev := range manager.Progress() {
			logger.Debug().Msg(orchestrator.FormatProgress(ev))
		}
	}()

	result, err := manager.ExtractDescriptions(ctx, text, flags.ChapterID, opts...)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, result)
}

// readInput reads the chapter text from a file or stdin.
func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading input %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
