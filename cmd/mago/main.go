package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mago-lang/mago/internal/cache"
	"github.com/mago-lang/mago/internal/config"
	"github.com/mago-lang/mago/internal/pipeline"
)

// Version can be set at build time using: -ldflags "-X main.Version=x.y.z"
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [command] [flags] [paths...]

Commands:
  analyze    Analyze the project (default)
  watch      Re-analyze on file changes
  version    Print the version

Flags:
  --config <path>   Configuration file (default: mago.yaml if present)
  --threads <n>     Worker count override
  --strict          Fail on warnings as well as errors
  --no-cache        Skip the fingerprint cache
`, os.Args[0])
}

type options struct {
	configPath string
	threads    int
	strict     bool
	noCache    bool
	paths      []string
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--strict":
			opts.strict = true
		case arg == "--no-cache":
			opts.noCache = true
		case arg == "--config":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("--config requires a path")
			}
			opts.configPath = args[i]
		case arg == "--threads":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("--threads requires a number")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid thread count: %s", args[i])
			}
			opts.threads = n
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			opts.paths = append(opts.paths, arg)
		}
	}
	return opts, nil
}

func loadSettings(opts *options) (*config.Settings, error) {
	path := opts.configPath
	if path == "" {
		if _, err := os.Stat("mago.yaml"); err == nil {
			path = "mago.yaml"
		}
	}

	var settings *config.Settings
	if path != "" {
		s, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		settings = s
	} else {
		settings = config.Default()
	}

	if opts.threads > 0 {
		settings.Threads = opts.threads
	}
	if opts.strict {
		settings.Strict = true
	}
	if len(opts.paths) > 0 {
		settings.Paths = opts.paths
	}
	return settings, nil
}

// collectFiles walks the configured paths and loads every .php source.
func collectFiles(paths []string) ([]pipeline.File, error) {
	var files []pipeline.File
	seen := make(map[string]bool)

	add := func(path string) error {
		if seen[path] || !strings.HasSuffix(path, ".php") {
			return nil
		}
		seen[path] = true
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, pipeline.File{Path: path, Content: string(content)})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func openCache(ctx context.Context, settings *config.Settings, opts *options) (*cache.Store, error) {
	if opts.noCache {
		return nil, nil
	}
	path := settings.CachePath
	if path == "" {
		path = filepath.Join(".mago", "cache.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return cache.Open(ctx, path)
}

func analyzeOnce(ctx context.Context, settings *config.Settings, store *cache.Store) (*pipeline.Report, error) {
	files, err := collectFiles(settings.Paths)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(settings)
	if store != nil {
		runner = runner.WithCache(store)
	}
	return runner.Run(ctx, files)
}

func runAnalyze(ctx context.Context, opts *options) int {
	settings, err := loadSettings(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	store, err := openCache(ctx, settings, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %s\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}

	report, err := analyzeOnce(ctx, settings, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	newReporter(os.Stdout).print(report)
	return report.ExitCode(settings.Strict)
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	command := "analyze"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "analyze", "watch", "version", "help":
			command = args[0]
			args = args[1:]
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "help":
		usage()
	case "version":
		fmt.Println(Version)
	case "watch":
		opts, err := parseArgs(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			usage()
			os.Exit(1)
		}
		os.Exit(runWatch(ctx, opts))
	default:
		opts, err := parseArgs(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			usage()
			os.Exit(1)
		}
		os.Exit(runAnalyze(ctx, opts))
	}
}
