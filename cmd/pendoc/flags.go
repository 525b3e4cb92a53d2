package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/aleister1102/pendoc/internal/config"
)

type AppFlags struct {
	URLFile          string
	BurpFile         string
	SubdomainFile    string
	SubdomainFormat  string
	NmapFile         string
	OutputDir        string
	GlobalConfigFile string
	LogLevel         string
	Workers          int
	TimeoutSecs      int
	Retries          int
	Resume           bool
	Recover          bool
	NoCommands       bool
}

// notSet marks numeric flags left at their default so config values survive.
const notSet = -1

var errNoInput = errors.New("at least one input source is required (-urls, -burp, -subdomains or -nmap)")

func ParseFlags(args []string, output io.Writer) (AppFlags, error) {
	fs := flag.NewFlagSet("pendoc", flag.ContinueOnError)
	fs.SetOutput(output)

	flags := AppFlags{}
	var urlAlias, burpAlias, subdomainAlias, nmapAlias, outputAlias, configAlias string

	fs.StringVar(&flags.URLFile, "urls", "", "File containing a list of URLs")
	fs.StringVar(&urlAlias, "u", "", "Alias for -urls")
	fs.StringVar(&flags.BurpFile, "burp", "", "Burp Suite sitemap XML export")
	fs.StringVar(&burpAlias, "b", "", "Alias for -burp")
	fs.StringVar(&flags.SubdomainFile, "subdomains", "", "File containing a list of subdomains (plain, csv or json)")
	fs.StringVar(&subdomainAlias, "s", "", "Alias for -subdomains")
	fs.StringVar(&flags.SubdomainFormat, "subdomain-format", "", "Subdomain file format: auto, simple, csv or json")
	fs.StringVar(&flags.NmapFile, "nmap", "", "Nmap XML scan results")
	fs.StringVar(&nmapAlias, "n", "", "Alias for -nmap")
	fs.StringVar(&flags.OutputDir, "output", "", "Output directory (overrides config file if set)")
	fs.StringVar(&outputAlias, "o", "", "Alias for -output")
	fs.StringVar(&flags.GlobalConfigFile, "config", "", "Path to the global YAML/JSON configuration file. If not set, searches default locations.")
	fs.StringVar(&configAlias, "c", "", "Alias for -config")
	fs.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.IntVar(&flags.Workers, "workers", notSet, "Number of concurrent capture workers")
	fs.IntVar(&flags.TimeoutSecs, "timeout", notSet, "Per-attempt capture timeout in seconds")
	fs.IntVar(&flags.Retries, "retries", notSet, "Retries after a transient capture failure")
	fs.BoolVar(&flags.Resume, "resume", false, "Skip targets captured by previous runs in the same output directory")
	fs.BoolVar(&flags.Recover, "recover", false, "Rebuild the report and command files from stored results without capturing")
	fs.BoolVar(&flags.NoCommands, "no-commands", false, "Do not generate tool command files")

	if err := fs.Parse(args); err != nil {
		return AppFlags{}, err
	}
	if fs.NArg() > 0 {
		return AppFlags{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	mergeAlias(&flags.URLFile, urlAlias)
	mergeAlias(&flags.BurpFile, burpAlias)
	mergeAlias(&flags.SubdomainFile, subdomainAlias)
	mergeAlias(&flags.NmapFile, nmapAlias)
	mergeAlias(&flags.OutputDir, outputAlias)
	mergeAlias(&flags.GlobalConfigFile, configAlias)

	return flags, nil
}

func mergeAlias(value *string, alias string) {
	if *value == "" && alias != "" {
		*value = alias
	}
}

func (f AppFlags) hasInputs() bool {
	return f.URLFile != "" || f.BurpFile != "" || f.SubdomainFile != "" || f.NmapFile != ""
}

// applyOverrides copies every flag that was set onto the loaded configuration.
func (f AppFlags) applyOverrides(cfg *config.GlobalConfig) {
	if f.hasInputs() {
		cfg.InputConfig.URLFile = f.URLFile
		cfg.InputConfig.BurpFile = f.BurpFile
		cfg.InputConfig.SubdomainFile = f.SubdomainFile
		cfg.InputConfig.NmapFile = f.NmapFile
	}
	if f.SubdomainFormat != "" {
		cfg.InputConfig.SubdomainFormat = f.SubdomainFormat
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.LogLevel != "" {
		cfg.LogConfig.LogLevel = f.LogLevel
	}
	if f.Workers != notSet {
		cfg.SchedulerConfig.ConcurrentWorkers = f.Workers
	}
	if f.TimeoutSecs != notSet {
		cfg.SchedulerConfig.TimeoutSecs = f.TimeoutSecs
	}
	if f.Retries != notSet {
		cfg.SchedulerConfig.MaxRetries = f.Retries
	}
	if f.Resume {
		cfg.SchedulerConfig.Resume = true
	}
	if f.NoCommands {
		cfg.ReporterConfig.GenerateCommands = false
	}
}
