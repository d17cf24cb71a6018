// Package main provides the card-price-extractor command line tool.
//
//	cardprice search Dark Magician
//	cardprice batch --names "Blue-Eyes White Dragon, Dark Magician"
//	cardprice batch --file cards.csv --yes --out ./exports
//	cardprice history --limit 10
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/names"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
	"github.com/fabio1shot/card-price-extractor/internal/report"
	"github.com/fabio1shot/card-price-extractor/internal/service"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "cardprice",
		Short:         "Yu-Gi-Oh! card price lookups",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("CARDPRICE_CONFIG_PATH"), "config file (default ./config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at info level")

	root.AddCommand(searchCmd(flags))
	root.AddCommand(batchCmd(flags))
	root.AddCommand(setsCmd(flags))
	root.AddCommand(historyCmd(flags))
	return root
}

// app is the wired set of dependencies a command works with.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	cardService *service.CardService
	batchRepo   storage.BatchRepository
	closers     []func()
}

func openApp(flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Development logger on stderr; quiet unless asked so the progress bar stays readable.
	zcfg := zap.NewDevelopmentConfig()
	if !flags.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
		a.Close()
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, func() { db.Close() })

	fs, err := storage.NewFileSystem(cfg.Storage.ImageDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating image cache: %w", err)
	}

	a.batchRepo = storage.NewBatchRepository(db)
	lookupRepo := storage.NewLookupRepository(db)

	ygo := provider.NewYGOProDeckProvider(cfg.YGOProDeck, nil, lookupRepo, logger)
	a.cardService = service.NewCardService(
		ygo,
		a.batchRepo,
		fs,
		service.NewImageProcessor(fs),
		service.BatchOptionsFrom(cfg.Batch),
		nil,
		logger,
	)

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, stopping a running batch
// after the current card.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search NAME",
		Short: "Look up one card by (partial) name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			if names.IsList(query) {
				return fmt.Errorf("%q looks like a list of names: use the batch command", query)
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			sink := newTerminalSink(cmd.ErrOrStderr())
			cards, err := a.cardService.Search(ctx, query, sink)
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				return nil
			}

			if outFormat == report.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), cards)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderCards(cards))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json")
	return cmd
}

type batchOptions struct {
	names  string
	file   string
	yes    bool
	out    string
	noSave bool
	format string
}

func batchCmd(flags *globalFlags) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:   "batch [NAME...]",
		Short: "Price a list of cards and export a JSON report",
		Long: `Price a list of cards, one lookup at a time.

Names come from --file (a CSV with one name per line), from --names
(comma separated) or from the arguments. The JSON report is written to
--out as yugioh-prices-YYYY-MM-DD.json unless --no-save is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, flags, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.names, "names", "n", "", "comma-separated card names")
	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file with one card name per line")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "skip the confirmation for large lists")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "directory for the JSON report (default storage.export_dir)")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not write the JSON report")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, json")
	cmd.MarkFlagsMutuallyExclusive("names", "file")
	return cmd
}

func runBatch(cmd *cobra.Command, flags *globalFlags, opts *batchOptions, args []string) error {
	outFormat, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	list, source, err := batchNames(opts, args)
	if err != nil {
		return err
	}

	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	stderr := cmd.ErrOrStderr()
	if a.cardService.NeedsConfirmation(len(list)) && !opts.yes {
		ok, err := confirm(cmd.InOrStdin(), stderr,
			fmt.Sprintf("You are about to process %d cards. This may take a while. Continue?", len(list)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stderr, "Aborted.")
			return nil
		}
	}

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	sink := newTerminalSink(stderr)
	run, err := a.cardService.RunBatch(ctx, source, list, sink)
	sink.Close()
	if err != nil {
		return err
	}

	if outFormat == report.FormatTable {
		fmt.Fprintln(cmd.OutOrStdout(), report.RenderTable(run))
	}

	if outFormat == report.FormatJSON || !opts.noSave {
		artifact, err := report.NewExporter(sink).Export(run)
		if err != nil {
			return err
		}
		if err := deliver(cmd, a.cfg, opts, outFormat, artifact); err != nil {
			return err
		}
	}

	if run.Status == model.RunCancelled {
		return fmt.Errorf("batch cancelled after %d of %d cards", len(run.Entries), run.Total)
	}
	return nil
}

// deliver prints the export for --format json and saves it unless --no-save.
func deliver(cmd *cobra.Command, cfg *config.Config, opts *batchOptions, outFormat report.Format, artifact *report.Artifact) error {
	if outFormat == report.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(artifact.Data))
	}

	if !opts.noSave {
		dir := opts.out
		if dir == "" {
			dir = cfg.Storage.ExportDir
		}
		path, err := report.Save(dir, artifact)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
	}
	return nil
}

// batchNames picks the name source: --file, then --names, then arguments.
func batchNames(opts *batchOptions, args []string) ([]string, model.RunSource, error) {
	switch {
	case opts.file != "":
		if err := names.ValidateUpload(opts.file, ""); err != nil {
			return nil, "", err
		}
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, "", fmt.Errorf("opening names file: %w", err)
		}
		defer f.Close()

		list, err := names.ReadLines(f)
		if err != nil {
			return nil, "", err
		}
		return list, model.SourceFile, nil
	case opts.names != "":
		return names.SplitList(opts.names), model.SourceText, nil
	default:
		return names.Clean(args), model.SourceText, nil
	}
}

func setsCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sets",
		Short: "List every card set",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			sets, err := a.cardService.Sets(ctx)
			if err != nil {
				return err
			}

			if outFormat == report.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), sets)
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderSets(sets))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json")
	return cmd
}

func historyCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "List past batch runs, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if len(args) == 1 {
				run, err := a.batchRepo.GetByID(ctx, args[0])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("no batch run with id %s", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.RenderTable(run))
				return nil
			}

			runs, err := a.batchRepo.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No batch runs yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.RenderRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of runs to list")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
