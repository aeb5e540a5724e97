package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

var cli struct {
	SourceURL string `arg:"" name:"source-url" help:"Entry page of the documentation site to mirror."`
	OutputDir string `arg:"" name:"output-directory" optional:"" help:"Output directory (defaults to the host name)."`

	Debug               bool     `help:"Verbose debug logging."`
	Force               bool     `help:"Re-fetch the entry page even when a saved copy exists."`
	Ignore              []string `help:"Regex pattern(s); matching URLs are excluded before any fetch." placeholder:"PATTERN"`
	CheckTitleDuplicate bool     `help:"Suppress pages whose title is already claimed by an output file."`
	ListTitles          bool     `help:"Only fetch titles and write a titles report; no HTML output, no cache changes."`
	Text                bool     `help:"Also write a plain-text rendition next to each written page."`
	UserAgent           string   `help:"User-Agent header for outgoing requests."`
	Timeout             int      `help:"Request timeout in seconds." placeholder:"SEC"`
	SnapshotEvery       int      `help:"Write a cache snapshot every N processed URLs." placeholder:"N"`
	Config              string   `help:"Optional YAML config file." placeholder:"FILE" type:"path"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("docmirror"),
		kong.Description("Incrementally mirror a documentation site, skipping pages that have not meaningfully changed."),
		kong.UsageOnError(),
	)

	level := log.WarnLevel
	if cli.Debug {
		level = log.DebugLevel
	}
	debug := log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "docmirror",
	})

	opts, err := buildOptions(debug)
	kctx.FatalIfErrorf(err)

	mirror, err := NewMirror(cli.SourceURL, cli.OutputDir, opts)
	kctx.FatalIfErrorf(err)

	err = mirror.Run()
	kctx.FatalIfErrorf(err)

	stats := mirror.Stats()
	logInfo("done: %d written, %d skipped, %d failed, %d ignored",
		stats.written, stats.skipped, stats.failed, stats.ignored)
}

// buildOptions merges the optional YAML config with the command line; flags
// win wherever both are set.
func buildOptions(debug *log.Logger) (MirrorOptions, error) {
	var fileCfg FileConfig
	if cli.Config != "" {
		loaded, err := LoadFileConfig(cli.Config)
		if err != nil {
			return MirrorOptions{}, err
		}
		fileCfg = *loaded
	}

	userAgent := fileCfg.UserAgent
	if cli.UserAgent != "" {
		userAgent = cli.UserAgent
	}
	timeoutSec := fileCfg.TimeoutSec
	if cli.Timeout > 0 {
		timeoutSec = cli.Timeout
	}
	snapshotEvery := fileCfg.SnapshotEvery
	if cli.SnapshotEvery > 0 {
		snapshotEvery = cli.SnapshotEvery
	}

	patterns := append([]string{}, fileCfg.Ignore...)
	patterns = append(patterns, cli.Ignore...)
	ignore, err := compileIgnorePatterns(patterns)
	if err != nil {
		return MirrorOptions{}, err
	}

	return MirrorOptions{
		Force:               cli.Force,
		Text:                cli.Text || fileCfg.Text,
		CheckTitleDuplicate: cli.CheckTitleDuplicate || fileCfg.CheckTitleDuplicate,
		ListTitles:          cli.ListTitles,
		SnapshotEvery:       snapshotEvery,
		UserAgent:           userAgent,
		Timeout:             time.Duration(timeoutSec) * time.Second,
		Ignore:              ignore,
		Debug:               debug,
	}, nil
}
