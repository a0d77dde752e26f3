// Command prebake partially evaluates a JavaScript program's startup and
// writes the residual source.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"prebake/pkg/driver"
	"prebake/pkg/source"
)

// fileConfig mirrors the YAML config file accepted via --config.
type fileConfig struct {
	Timeout                string `yaml:"timeout"`
	BuildSuffix            string `yaml:"buildSuffix"`
	AbstractInterpretation *bool  `yaml:"abstractInterpretation"`
	DebugNames             bool   `yaml:"debugNames"`
}

func main() {
	var (
		outPath     string
		configPath  string
		timeoutStr  string
		buildSuffix string
		debugNames  bool
		noAbstract  bool
		verbose     bool
		trace       bool
		mapPath     string
	)

	root := &cobra.Command{
		Use:   "prebake [files...]",
		Short: "Whole-program partial evaluator for JavaScript startup code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := driver.DefaultOptions()

			if configPath != "" {
				data, err := os.ReadFile(configPath)
				if err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
				var cfg fileConfig
				if err := yaml.Unmarshal(data, &cfg); err != nil {
					return fmt.Errorf("parsing config: %w", err)
				}
				if cfg.Timeout != "" {
					d, err := time.ParseDuration(cfg.Timeout)
					if err != nil {
						return fmt.Errorf("config timeout: %w", err)
					}
					opts.Timeout = d
				}
				opts.BuildSuffix = cfg.BuildSuffix
				if cfg.AbstractInterpretation != nil {
					opts.AbstractInterpretation = *cfg.AbstractInterpretation
				}
				opts.DebugNames = cfg.DebugNames
			}

			if timeoutStr != "" {
				d, err := time.ParseDuration(timeoutStr)
				if err != nil {
					return fmt.Errorf("--timeout: %w", err)
				}
				opts.Timeout = d
			}
			if buildSuffix != "" {
				opts.BuildSuffix = buildSuffix
			}
			if debugNames {
				opts.DebugNames = true
			}
			if noAbstract {
				opts.AbstractInterpretation = false
			}

			level := zerolog.Disabled
			if verbose {
				level = zerolog.DebugLevel
			}
			if trace {
				level = zerolog.TraceLevel
			}
			opts.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).With().Timestamp().Logger()

			if mapPath != "" {
				data, err := os.ReadFile(mapPath)
				if err != nil {
					return fmt.Errorf("reading source map: %w", err)
				}
				opts.InputSourceMap = data
			}

			var sources []*source.SourceFile
			for _, path := range args {
				src, err := source.FromFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				sources = append(sources, src)
			}

			result, err := driver.Prebake(sources, opts)
			if result != nil && len(result.Diagnostics) > 0 {
				fmt.Fprint(os.Stderr, driver.FormatDiagnostics(result.Diagnostics))
			}
			if err != nil {
				return err
			}

			if outPath == "" {
				fmt.Print(result.Code)
				return nil
			}
			return os.WriteFile(outPath, []byte(result.Code), 0o644)
		},
	}

	root.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	root.Flags().StringVar(&configPath, "config", "", "YAML config file")
	root.Flags().StringVar(&timeoutStr, "timeout", "", "interpretation deadline, e.g. 30s")
	root.Flags().StringVar(&buildSuffix, "suffix", "", "unique identifier suffix for this build")
	root.Flags().BoolVar(&debugNames, "debug-names", false, "derive identifier hints from provenance")
	root.Flags().BoolVar(&noAbstract, "no-abstract", false, "disable abstract interpretation")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.Flags().BoolVar(&trace, "trace", false, "trace-level interpreter logging")
	root.Flags().StringVar(&mapPath, "input-source-map", "", "source map for the input file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
