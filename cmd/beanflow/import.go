package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/cli"
	"github.com/Veraticus/bean-flow/internal/common"
	"github.com/Veraticus/bean-flow/internal/config"
	"github.com/Veraticus/bean-flow/internal/dedup"
	"github.com/Veraticus/bean-flow/internal/feed"
	"github.com/Veraticus/bean-flow/internal/importer"
	"github.com/Veraticus/bean-flow/internal/ofx"
	"github.com/Veraticus/bean-flow/internal/storage"
)

// Statement formats accepted by --format.
const (
	formatAuto = "auto"
	formatOFX  = "ofx"
	formatJSON = "json"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import statements into the ledger",
		Long: `Import OFX/QFX statements or JSON statement feeds.

Files are imported in the order given. Transactions already in the ledger,
or imported earlier in the same run, are skipped. A file or statement that
cannot be read or imported is reported and the remaining files still import.

Examples:
  # Preview a credit card statement without saving
  beanflow import --dry-run ~/Downloads/cmb-2024-03.json

  # Import every QFX file in a directory
  beanflow import ~/Downloads/Chase/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("format", formatAuto, "statement format (auto, ofx, json)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().BoolP("preview", "p", false, "Print imported transactions in ledger syntax")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	preview, _ := cmd.Flags().GetBool("preview")

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	classifier, err := buildClassifier(settings)
	if err != nil {
		return err
	}

	interrupt := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := interrupt.HandleInterrupts(cmd.Context())

	store, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := newImportRun(ctx, store, settings, classifier)
	if err != nil {
		return err
	}
	run.format = format
	run.dryRun = dryRun
	run.preview = preview || dryRun
	run.out = cmd.OutOrStdout()
	run.progress = cli.NewFileProgress(cmd.ErrOrStderr(), len(files))
	run.onSaved = interrupt.Saved

	slog.Info("Importing statements",
		"file_count", len(files),
		"dry_run", dryRun)

	results, err := run.importFiles(ctx, files)
	if len(results) > 0 || len(run.failures) > 0 {
		fmt.Fprintln(run.out, cli.RenderImportSummary(results, run.failures))
	}
	if err != nil {
		if interrupt.WasInterrupted() {
			return nil
		}
		return err
	}

	if dryRun {
		fmt.Fprintln(run.out, cli.FormatInfo("Dry run: nothing was saved."))
	}
	return run.failureError()
}

// importRun imports a batch of files against one duplicate index.
type importRun struct {
	store    *storage.SQLiteStorage
	parser   *ofx.Parser
	importer *importer.Importer
	progress *progressbar.ProgressBar
	onSaved  func(int)
	out      io.Writer
	format   string
	failures []cli.Failure
	saved    int
	dryRun   bool
	preview  bool
}

// newImportRun seeds a duplicate index with every stored transaction.
func newImportRun(ctx context.Context, store *storage.SQLiteStorage, settings *config.Settings, classifier *classify.Classifier) (*importRun, error) {
	existing, err := store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	index := dedup.New(existing, settings.Dedup)

	slog.Debug("Seeded duplicate index",
		"transactions", len(existing),
		"entries", index.Known())

	return &importRun{
		store:    store,
		parser:   ofx.NewParser(settings.Accounts),
		importer: importer.New(classifier, index),
		out:      io.Discard,
		format:   formatAuto,
	}, nil
}

func (r *importRun) importFiles(ctx context.Context, files []string) ([]*importer.Result, error) {
	var results []*importer.Result

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		statements, err := r.parseFile(ctx, path)
		if err != nil {
			if isCanceled(err) {
				return results, err
			}
			common.LogError(err, "Failed to parse statement file", common.Fields{"file": path})
			r.failures = append(r.failures, cli.Failure{Source: filepath.Base(path), Err: err})
			r.advance()
			continue
		}

		for _, stmt := range statements {
			res, err := r.importer.Import(ctx, stmt)
			if err != nil {
				if isCanceled(err) {
					return results, err
				}
				common.LogError(err, "Failed to import statement", common.Fields{"file": path, "source": stmt.Source})
				r.failures = append(r.failures, cli.Failure{Source: stmt.Source, Err: err})
				continue
			}
			results = append(results, res)

			if r.preview {
				fmt.Fprint(r.out, cli.RenderPreview(res))
			}
			if r.dryRun {
				continue
			}

			rec, err := r.store.SaveResult(ctx, res)
			if err != nil {
				return results, fmt.Errorf("failed to save %s: %w", stmt.Source, err)
			}
			r.saved++
			if r.onSaved != nil {
				r.onSaved(r.saved)
			}
			slog.Debug("Saved statement", "import_id", rec.ID, "source", rec.Source)
		}

		r.advance()
	}

	return results, nil
}

func (r *importRun) advance() {
	if r.progress != nil {
		_ = r.progress.Add(1)
	}
}

// failureError summarizes the skipped files and statements, or returns nil
// when everything imported.
func (r *importRun) failureError() error {
	if len(r.failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.failures))
	for i, f := range r.failures {
		errs[i] = fmt.Errorf("%s: %w", f.Source, f.Err)
	}
	msg := fmt.Sprintf("Could not import %d statement(s)", len(r.failures))
	return common.NewUserError(msg, fmt.Errorf("%w: %w", common.ErrImportFailed, errors.Join(errs...)))
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *importRun) parseFile(ctx context.Context, path string) ([]importer.Statement, error) {
	format, err := resolveFormat(r.format, path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	source := filepath.Base(path)
	switch format {
	case formatJSON:
		stmt, err := feed.Decode(source, f)
		if err != nil {
			return nil, err
		}
		return []importer.Statement{stmt}, nil
	default:
		statements, err := r.parser.ParseStatements(ctx, source, f)
		if err != nil {
			return nil, err
		}
		if len(statements) == 0 {
			return nil, fmt.Errorf("%w in %s", common.ErrNoStatements, source)
		}
		return statements, nil
	}
}

// resolveFormat picks the statement format, inferring it from the file
// extension when format is auto.
func resolveFormat(format, path string) (string, error) {
	switch format {
	case formatOFX, formatJSON:
		return format, nil
	case "", formatAuto:
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnknownFormat, format)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return formatOFX, nil
	case ".json":
		return formatJSON, nil
	default:
		return "", fmt.Errorf("%w: cannot infer format of %s, use --format", common.ErrUnknownFormat, filepath.Base(path))
	}
}

// collectFiles expands glob patterns, keeping argument order.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(config.ExpandPath(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, common.NewUserError("No files found to import", nil)
	}
	return files, nil
}
