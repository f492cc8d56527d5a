package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz-lang/franzc/internal/buildcache"
	"github.com/franz-lang/franzc/internal/codegen"
	"github.com/franz-lang/franzc/internal/config"
	"github.com/franz-lang/franzc/internal/diagnostics"
	"github.com/franz-lang/franzc/internal/lexer"
	"github.com/franz-lang/franzc/internal/parser"
	"github.com/franz-lang/franzc/internal/pipeline"
)

type options struct {
	output  string
	emit    string
	noCache bool
	print   bool
	file    string
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <file.fz>

Compiles a Franz program to LLVM IR. With no file, reads from stdin and
prints the IR to stdout.

Flags:
  -o <path>     write output to <path>
  -emit <kind>  "ir" (default) or "ast"
  -print        print to stdout instead of writing a file
  -no-cache     skip the build cache
`, os.Args[0])
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "-help" || arg == "--help":
			usage()
			os.Exit(0)
		case arg == "-o" || arg == "--output":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("%s requires a path", arg)
			}
			opts.output = args[i]
		case arg == "-emit" || arg == "--emit":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("%s requires \"ir\" or \"ast\"", arg)
			}
			opts.emit = args[i]
		case arg == "-print" || arg == "--print":
			opts.print = true
		case arg == "-no-cache" || arg == "--no-cache":
			opts.noCache = true
		case strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag %s", arg)
		case opts.file == "":
			opts.file = arg
		default:
			return nil, fmt.Errorf("unexpected argument %s", arg)
		}
	}
	return opts, nil
}

func readSource(opts *options) (string, error) {
	if opts.file == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			usage()
			os.Exit(1)
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		opts.print = true
		return string(data), nil
	}
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", opts.file, err)
	}
	return string(data), nil
}

// loadConfig discovers franz.yaml starting next to the source file and
// returns the config plus the directory the config lives in (used to anchor
// a relative cache dir).
func loadConfig(opts *options) (*config.Config, string, error) {
	startDir := "."
	if opts.file != "" {
		startDir = filepath.Dir(opts.file)
	}
	cfgPath, err := config.FindConfig(startDir)
	if err != nil {
		return nil, "", err
	}
	if cfgPath == "" {
		return config.Default(), startDir, nil
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(cfgPath), nil
}

func outputPath(opts *options, cfg *config.Config) string {
	if opts.output != "" {
		return opts.output
	}
	if cfg.Output != "" {
		return cfg.Output
	}
	if opts.file == "" {
		return ""
	}
	return strings.TrimSuffix(opts.file, filepath.Ext(opts.file)) + ".ll"
}

func emitResult(opts *options, path, text string) error {
	if opts.print || path == "" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func run() error {
	opts, err := parseArgs(os.Args)
	if err != nil {
		return err
	}

	source, err := readSource(opts)
	if err != nil {
		return err
	}

	cfg, cfgDir, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.emit != "" {
		cfg.Emit = opts.emit
	}
	if cfg.Emit != "ir" && cfg.Emit != "ast" {
		return fmt.Errorf("invalid emit %q (want \"ir\" or \"ast\")", cfg.Emit)
	}

	outPath := outputPath(opts, cfg)

	// The cache only holds rendered IR; AST dumps always recompile.
	var cache *buildcache.Cache
	cacheKey := buildcache.Key(source)
	if cfg.CacheEnabled() && !opts.noCache && cfg.Emit == "ir" {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfgDir, dir)
		}
		if c, err := buildcache.Open(dir); err == nil {
			cache = c
			defer cache.Close()
			if entry, err := cache.Get(cacheKey); err == nil && entry != nil {
				return emitResult(opts, outPath, entry.IR)
			}
		}
	}

	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = opts.file

	stages := []pipeline.Processor{
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
	}
	if cfg.Emit == "ir" {
		stages = append(stages, &codegen.CodeGenProcessor{})
	}
	ctx = pipeline.New(stages...).Run(ctx)

	if ctx.HasErrors() {
		diagnostics.NewReporter().ReportAll(ctx.Errors)
		os.Exit(1)
	}

	if cfg.Emit == "ast" {
		return emitResult(opts, outPath, ctx.AstRoot.String()+"\n")
	}

	if cfg.Target != "" {
		ctx.Module.TargetTriple = cfg.Target
	}
	irText := ctx.Module.String()

	if cache != nil {
		// A failed store is not a compile failure.
		if _, err := cache.Put(cacheKey, irText); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return emitResult(opts, outPath, irText)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
