package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-wal/pkg/config"
	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

const version = "0.3.0"

var (
	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			Width(16)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00FF00")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage")

type app struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("walctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	configPath := fs.String("config", os.Getenv("WAL_CONFIG"), "YAML configuration file")
	logPath := fs.String("log", "", "log file path (overrides log.path)")
	syncMode := fs.String("sync", "", "append sync mode: always or none (overrides log.sync)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		printUsage(stderr)
		return 2
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "walctl v%s\n", version)
		return 0
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *logPath != "" {
		cfg.Log.Path = *logPath
	}
	if *syncMode != "" {
		cfg.Log.Sync = *syncMode
	}
	if level := os.Getenv(logging.EnvLevel); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	a := &app{
		cfg:     cfg,
		logger:  cfg.Logger(stderr).With(logging.Component("walctl")),
		metrics: metrics.NewRegistry(),
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
	}

	handler, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}

	err := handler(context.Background(), a, rest)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

type commandFunc func(ctx context.Context, a *app, args []string) error

var commands = map[string]commandFunc{
	"append":  cmdAppend,
	"cat":     cmdCat,
	"stat":    cmdStat,
	"inspect": cmdInspect,
	"compact": cmdCompact,
	"restart": cmdRestart,
	"export":  cmdExport,
	"import":  cmdImport,
	"archive": cmdArchive,
	"browse":  cmdBrowse,
}

// openLog opens the configured log with logging and metrics attached.
func (a *app) openLog() (*wal.LogFile, error) {
	opts, err := a.cfg.Options(a.logger, a.metrics)
	if err != nil {
		return nil, err
	}
	return wal.Open(a.cfg.Log.Path, opts)
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func printUsage(w io.Writer) {
	usage := `walctl - inspect and maintain a write-ahead log file

Usage:
  walctl [-config file] [-log path] [-sync mode] <command> [options]

Available Commands:
  append      Append entries (arguments, or lines of stdin with -stdin)
  cat         Print entries in a range
  stat        Show first index, last index and size
  inspect     Verify every checksum without opening the log
  compact     Discard entries before an index
  restart     Discard all entries and set the next index
  export      Write a range of entries to an export file
  import      Append the entries of an export file
  archive     Upload a prefix to the archive and compact it away
  browse      Page through entries interactively
  help        Show this help message
  version     Show version information

Environment:
  WAL_CONFIG  default for -config
  LOG_LEVEL   overrides logging.level

Examples:
  walctl -log data/log.wal append "first entry" "second entry"
  walctl -log data/log.wal cat -from 10 -to 20
  walctl -config wal.yaml archive -upto 5000
`
	fmt.Fprint(w, usage)
}
