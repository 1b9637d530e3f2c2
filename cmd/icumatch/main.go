// Command icumatch runs a match or a census derivation on local files and
// writes the result workbook, without starting the web server.
//
//	icumatch -profile icu.yaml -episodes icu.xlsx -cultures blood.xlsx -out result.xlsx
//	icumatch -census 2025-01.xlsx,2025-02.xlsx -out episodes.xlsx
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/icumatch/internal/config"
	"github.com/JonMunkholm/icumatch/internal/core"
	"github.com/JonMunkholm/icumatch/internal/logging"
	"github.com/JonMunkholm/icumatch/internal/sheet"
)

type options struct {
	profile  string
	episodes string
	cultures string
	info     string
	registry string
	census   string
	idColumn string
	variant  string
	out      string
	logLevel string
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(os.Stderr, "icumatch:", msg)
		slog.Debug("run failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("icumatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.profile, "profile", "", "matching profile (YAML)")
	fs.StringVar(&opts.episodes, "episodes", "", "ICU episode file (.xlsx or .csv)")
	fs.StringVar(&opts.cultures, "cultures", "", "blood culture file")
	fs.StringVar(&opts.info, "info", "", "patient info file for attributes with source \"info\"")
	fs.StringVar(&opts.registry, "registry", "", "registry list file")
	fs.StringVar(&opts.census, "census", "", "comma-separated census files; derives episodes instead of matching")
	fs.StringVar(&opts.idColumn, "id-column", "", "census patient ID column (default: detected)")
	fs.StringVar(&opts.variant, "variant", "", "export layout: internal or external (default: from profile)")
	fs.StringVar(&opts.out, "out", "", "output file (.xlsx or .csv)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "debug | info | warn | error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.out == "" {
		return errors.New("-out is required")
	}

	logger := logging.New(stderr, opts.logLevel, "text")
	slog.SetDefault(logger)

	var (
		export core.Export
		err    error
	)
	if opts.census != "" {
		export, err = deriveEpisodes(opts)
	} else {
		export, err = match(opts, logger, stderr)
	}
	if err != nil {
		return err
	}
	return writeExport(opts.out, export)
}

func match(opts options, logger *slog.Logger, stderr io.Writer) (core.Export, error) {
	if opts.profile == "" || opts.episodes == "" || opts.cultures == "" {
		return core.Export{}, errors.New("-profile, -episodes and -cultures are required")
	}
	p, err := config.LoadProfile(opts.profile)
	if err != nil {
		return core.Export{}, err
	}
	if opts.variant != "" {
		p.Variant = opts.variant
	}
	cfg, err := p.MatchConfig()
	if err != nil {
		return core.Export{}, err
	}
	variant, err := p.ExportVariant()
	if err != nil {
		return core.Export{}, err
	}

	in := core.Inputs{Aux: make(map[string]*core.Table)}
	if in.Episodes, err = sheet.ReadFile(opts.episodes); err != nil {
		return core.Export{}, err
	}
	if in.Cultures, err = sheet.ReadFile(opts.cultures); err != nil {
		return core.Export{}, err
	}
	if opts.info != "" {
		if in.Aux["info"], err = sheet.ReadFile(opts.info); err != nil {
			return core.Export{}, err
		}
	}
	if opts.registry != "" {
		if in.Registry, err = sheet.ReadFile(opts.registry); err != nil {
			return core.Export{}, err
		}
	}

	pipeline, err := core.NewPipeline(cfg, core.WithLogger(logger))
	if err != nil {
		return core.Export{}, err
	}
	res, err := pipeline.Run(in)
	if err != nil {
		return core.Export{}, err
	}

	for outcome, n := range res.Counts() {
		logger.Info("outcome", "outcome", outcome.String(), "records", n)
	}
	for _, w := range res.Warnings {
		fmt.Fprintln(stderr, "warning:", w.String())
	}
	return res.Export(variant), nil
}

func deriveEpisodes(opts options) (core.Export, error) {
	var sheets []core.CensusSheet
	for _, path := range strings.Split(opts.census, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		t, err := sheet.ReadFile(path)
		if err != nil {
			return core.Export{}, err
		}
		sheets = append(sheets, core.CensusSheet{Name: filepath.Base(path), Table: t})
	}
	if len(sheets) == 0 {
		return core.Export{}, fmt.Errorf("census: %w", core.ErrMissingTable)
	}

	idColumn := opts.idColumn
	if idColumn == "" {
		col, ok := core.FindColumn(core.CensusIDCandidates, sheets[0].Table.Header)
		if !ok {
			return core.Export{}, &core.ColumnError{Table: sheets[0].Name, Role: "patient id"}
		}
		idColumn = col
	}

	episodes, err := core.DeriveEpisodes(sheets, core.CensusConfig{IDColumn: idColumn})
	if err != nil {
		return core.Export{}, err
	}
	return core.CensusExport(episodes, idColumn), nil
}

func writeExport(path string, export core.Export) error {
	format, err := sheet.FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := sheet.Write(f, format, export); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
