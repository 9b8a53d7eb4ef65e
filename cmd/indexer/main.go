package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zlibsearch/internal/config"
	"zlibsearch/internal/ingest"
	"zlibsearch/internal/logger"
	"zlibsearch/internal/metrics"
	"zlibsearch/internal/storage/index"
)

type flags struct {
	indexPath   string
	format      string
	charset     string
	batchSize   int
	noProgress  bool
	optimize    bool
	pushgateway string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "indexer [flags] <dump.csv|dump.jsonl|->",
		Short: "Build or update the book search index from a catalogue dump",
		Long: `Reads a catalogue dump (CSV in the fixed column order
id,title,author,publisher,extension,filesize,language,year,pages,isbn,ipfs_cid
or with a header row, or JSON Lines with the same keys), validates every
record and upserts the valid ones into the SQLite search index.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log, logFile, err := logger.Setup(config.Get().Log)
			if err != nil {
				return err
			}
			defer logFile.Close()

			if err := run(ctx, log, args[0], f); err != nil {
				log.WithError(err).Error("indexing failed")
				return err
			}
			return nil
		},
	}

	cfg := config.Get()
	cmd.Flags().StringVarP(&f.indexPath, "index", "i", cfg.Index.Path, "path of the SQLite index to write")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "input format: csv or jsonl (default: from file extension)")
	cmd.Flags().StringVar(&f.charset, "charset", "", "source charset, e.g. windows-1251 (default utf-8)")
	cmd.Flags().IntVar(&f.batchSize, "batch", ingest.DefaultBatchSize, "records per transaction")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&f.optimize, "optimize", true, "merge the full-text index after import")
	cmd.Flags().StringVar(&f.pushgateway, "pushgateway", "", "Pushgateway URL to push ingest metrics to")
	return cmd
}

func run(ctx context.Context, log *logrus.Logger, src string, f *flags) error {
	format, err := detectFormat(src, f.format)
	if err != nil {
		return err
	}

	in, size, err := openSource(src)
	if err != nil {
		return err
	}
	defer in.Close()

	var r io.Reader = in
	if !f.noProgress {
		bar := progressbar.DefaultBytes(size, "📚 indexing")
		defer bar.Finish() //nolint:errcheck
		r = io.TeeReader(in, bar)
	}

	ix, err := index.Open(ctx, f.indexPath, index.Options{}, log)
	if err != nil {
		return err
	}
	defer ix.Close()

	m := metrics.NewIngest()
	start := time.Now()
	st, err := ingest.Run(ctx, r, ix, ingest.Options{
		Format:    format,
		Charset:   f.charset,
		BatchSize: f.batchSize,
		Observer:  m,
		Log:       log,
	})
	fields := logrus.Fields{
		"read":      st.Read,
		"indexed":   st.Indexed,
		"invalid":   st.Invalid,
		"malformed": st.Malformed,
		"took":      time.Since(start).Round(time.Millisecond),
	}
	if err != nil {
		log.WithFields(fields).Warn("ingest interrupted")
		return err
	}

	if f.optimize {
		done := logger.Track(ctx, "index optimize")
		err := ix.Optimize(ctx)
		done()
		if err != nil {
			return err
		}
	}

	total, err := ix.Count(ctx)
	if err != nil {
		return err
	}
	fields["total"] = total
	log.WithFields(fields).Info("✅ index updated")

	if f.pushgateway != "" {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := m.Push(pctx, f.pushgateway, "zlibsearch_indexer"); err != nil {
			log.WithError(err).Warn("failed to push metrics")
		}
	}
	return nil
}

func detectFormat(src, explicit string) (ingest.Format, error) {
	if explicit != "" {
		return ingest.ParseFormat(explicit)
	}
	switch {
	case strings.HasSuffix(src, ".jsonl"), strings.HasSuffix(src, ".ndjson"):
		return ingest.FormatJSONL, nil
	case strings.HasSuffix(src, ".csv"), src == "-":
		return ingest.FormatCSV, nil
	}
	return "", fmt.Errorf("cannot guess format of %q, pass --format", src)
}

// openSource opens a file or stdin ("-"). size is -1 when unknown.
func openSource(src string) (io.ReadCloser, int64, error) {
	if src == "-" {
		return io.NopCloser(os.Stdin), -1, nil
	}
	fh, err := os.Open(src)
	if err != nil {
		return nil, 0, fmt.Errorf("open dump: %w", err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, 0, fmt.Errorf("stat dump: %w", err)
	}
	return fh, info.Size(), nil
}
