// Command tabinfo inspects and previews tabular text files: what delimiter
// and encoding they use, whether they look parseable, and what their first
// rows contain.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/shapestone/shape-tabular/internal/logging"
	"github.com/shapestone/shape-tabular/pkg/tabular"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	flagDelimiter string
	flagQuote     string
	flagEncoding  string
	flagFormat    string
	flagHeader    bool
	flagNoHeader  bool
	flagTrim      bool
	flagSkipEmpty bool
)

func main() {
	root := &cobra.Command{
		Use:           "tabinfo",
		Short:         "Inspect and preview tabular text files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(os.Stderr, flagLogLevel, flagLogFormat)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "YAML options file")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&flagDelimiter, "delimiter", "", "field delimiter (default: detect)")
	pf.StringVar(&flagQuote, "quote", "", "quote character (default: detect)")
	pf.StringVar(&flagEncoding, "encoding", "", "byte encoding: utf-8, utf-16le, utf-16be (default: detect)")
	pf.StringVar(&flagFormat, "format", "", "format name (default: detect)")
	pf.BoolVar(&flagHeader, "header", false, "treat the first row as a header")
	pf.BoolVar(&flagNoHeader, "no-header", false, "treat the first row as data")
	pf.BoolVar(&flagTrim, "trim", false, "trim whitespace around unquoted fields")
	pf.BoolVar(&flagSkipEmpty, "skip-empty", false, "skip blank lines")

	root.AddCommand(detectCmd(), headCmd(), validateCmd(), countCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tabinfo:", err)
		os.Exit(1)
	}
}

// buildOptions layers CLI flags over the optional config file.
func buildOptions() (tabular.ReadOptions, error) {
	opts := tabular.DefaultReadOptions()
	if flagConfig != "" {
		loaded, err := tabular.LoadReadOptions(flagConfig)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	var err error
	if opts.Delimiter, err = overrideRune(opts.Delimiter, flagDelimiter, "--delimiter"); err != nil {
		return opts, err
	}
	if opts.Quote, err = overrideRune(opts.Quote, flagQuote, "--quote"); err != nil {
		return opts, err
	}
	if flagEncoding != "" {
		opts.Encoding = flagEncoding
	}
	if flagFormat != "" {
		opts.Format = flagFormat
	}
	if flagHeader && flagNoHeader {
		return opts, fmt.Errorf("--header and --no-header are mutually exclusive")
	}
	if flagHeader {
		opts.HasHeader = tabular.Bool(true)
	}
	if flagNoHeader {
		opts.HasHeader = tabular.Bool(false)
	}
	if flagTrim {
		opts.TrimFields = true
	}
	if flagSkipEmpty {
		opts.SkipEmptyLines = true
	}

	return opts, opts.Validate()
}

func overrideRune(current rune, flag, name string) (rune, error) {
	if flag == "" {
		return current, nil
	}
	r, size := utf8.DecodeRuneInString(flag)
	if size != len(flag) || r == utf8.RuneError {
		return 0, fmt.Errorf("%s must be a single character", name)
	}
	return r, nil
}

// detectReport is the YAML shape of one detect result.
type detectReport struct {
	File          string  `yaml:"file"`
	Format        string  `yaml:"format"`
	Confidence    float64 `yaml:"confidence"`
	Delimiter     string  `yaml:"delimiter"`
	DelimiterConf float64 `yaml:"delimiter_confidence"`
	Quote         string  `yaml:"quote"`
	HasHeader     bool    `yaml:"has_header"`
	HeaderConf    float64 `yaml:"header_confidence"`
	LineEnding    string  `yaml:"line_ending"`
	Encoding      string  `yaml:"encoding"`
	EncodingConf  float64 `yaml:"encoding_confidence"`
	HasBOM        bool    `yaml:"has_bom"`
	EstimatedRows int64   `yaml:"estimated_rows"`
	EstimatedCols int     `yaml:"estimated_columns"`
}

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Detect the dialect and encoding of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions()
			if err != nil {
				return err
			}

			reports := make([]detectReport, 0, len(args))
			for _, path := range args {
				det, err := tabular.DetectFile(path, opts)
				if err != nil {
					return err
				}
				reports = append(reports, detectReport{
					File:          path,
					Format:        det.Format,
					Confidence:    det.Confidence,
					Delimiter:     printableRune(det.Dialect.Delimiter),
					DelimiterConf: det.Dialect.DelimiterConfidence,
					Quote:         printableRune(det.Dialect.Quote),
					HasHeader:     det.Dialect.HasHeader,
					HeaderConf:    det.Dialect.HeaderConfidence,
					LineEnding:    printableEnding(det.Dialect.LineEnding),
					Encoding:      det.Encoding.Encoding,
					EncodingConf:  det.Encoding.Confidence,
					HasBOM:        det.Encoding.HasBOM,
					EstimatedRows: det.EstimatedRows,
					EstimatedCols: det.EstimatedColumns,
				})
			}

			out, err := yaml.Marshal(reports)
			if err != nil {
				return err
			}
			cmd.OutOrStdout().Write(out)
			return nil
		},
	}
}

func printableRune(r rune) string {
	switch r {
	case '\t':
		return "\\t"
	case 0:
		return ""
	default:
		return string(r)
	}
}

func printableEnding(s string) string {
	switch s {
	case "\r\n":
		return "crlf"
	case "\r":
		return "cr"
	default:
		return "lf"
	}
}

func headCmd() *cobra.Command {
	var rowCount int64

	cmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the first rows of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions()
			if err != nil {
				return err
			}
			opts.MaxRows = rowCount

			rows, err := tabular.Open(args[0], opts)
			if err != nil {
				return err
			}
			defer rows.Close()

			// The header row is consumed lazily on the first Next, so buffer
			// the preview before printing it.
			var lines []string
			for rows.Next() {
				lines = append(lines, strings.Join(rows.Row().Fields, "\t"))
			}
			if err := rows.Err(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if headers := rows.Headers(); len(headers) > 0 {
				fmt.Fprintln(out, "# "+strings.Join(headers, "\t"))
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			stats := rows.Stats()
			slog.Debug("head complete",
				"rows", stats.RowsProcessed, "errors", len(stats.Errors))
			return nil
		},
	}

	cmd.Flags().Int64VarP(&rowCount, "rows", "n", 10, "number of rows to print")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check whether files look parseable without reading them fully",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, path := range args {
				res, err := tabular.ValidateFile(path, opts)
				if err != nil {
					return err
				}
				verdict := "ok"
				if !res.Valid {
					verdict = "invalid"
					failures++
				}
				fmt.Fprintf(out, "%s\t%s\tconfidence=%.2f\n", path, verdict, res.Confidence)
				for _, warning := range res.Warnings {
					fmt.Fprintf(out, "\twarning: %s\n", warning)
				}
				for _, fix := range res.SuggestedFixes {
					fmt.Fprintf(out, "\tsuggested: %s\n", fix)
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d files failed validation", failures, len(args))
			}
			return nil
		},
	}
}

func countCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "count <file>...",
		Short: "Count rows across files in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			counts := make(map[string]int64)

			err = tabular.ParseEach(cmd.Context(), args, opts, workers,
				func(ctx context.Context, path string, rows *tabular.Rows) error {
					var n int64
					for rows.Next() {
						n++
						if ctx.Err() != nil {
							return ctx.Err()
						}
					}
					if err := rows.Err(); err != nil {
						return err
					}
					stats := rows.Stats()
					logging.WithSession(slog.Default(), stats.SessionID).Debug("counted file",
						"path", path, "rows", n, "errors", len(stats.Errors))
					mu.Lock()
					counts[path] = n
					mu.Unlock()
					return nil
				})
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(counts))
			for path := range counts {
				paths = append(paths, path)
			}
			sort.Strings(paths)

			out := cmd.OutOrStdout()
			var total int64
			for _, path := range paths {
				fmt.Fprintf(out, "%8d\t%s\n", counts[path], path)
				total += counts[path]
			}
			if len(paths) > 1 {
				fmt.Fprintf(out, "%8d\ttotal\n", total)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "maximum files parsed concurrently")
	return cmd
}
