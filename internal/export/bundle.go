package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/telemetry"
)

// Bundle lists the files written by WriteBundle.
type Bundle struct {
	ExcelPath string
	PDFPath   string
	Labels    int
}

// Exporter writes labels to Excel and PDF and records export metrics.
type Exporter struct {
	pdf     *PDFWriter
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

func NewExporter(pdf *PDFWriter, metrics *telemetry.Metrics, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{pdf: pdf, metrics: metrics, logger: logger}
}

// Excel streams a workbook to w.
func (e *Exporter) Excel(ctx context.Context, w io.Writer, labels []model.MailingLabelData, opts Options) (int, error) {
	n, err := WriteExcel(w, labels, opts.NameFormat)
	if err != nil {
		return 0, err
	}
	e.metrics.Exported(ctx, "xlsx", n)
	e.logger.Info("Exported labels", zap.String("format", "xlsx"), zap.Int("labels", n))
	return n, nil
}

// PDF streams a label sheet document to w.
func (e *Exporter) PDF(ctx context.Context, w io.Writer, labels []model.MailingLabelData, opts Options) (int, error) {
	n, err := e.pdf.Write(w, labels, opts)
	if err != nil {
		return 0, err
	}
	e.metrics.Exported(ctx, "pdf", n)
	e.logger.Info("Exported labels",
		zap.String("format", "pdf"),
		zap.String("template", opts.Template),
		zap.Int("labels", n))
	return n, nil
}

// WriteBundle writes both formats into dir concurrently using the dated
// file names. A failed write removes its partial file.
func (e *Exporter) WriteBundle(ctx context.Context, dir string, labels []model.MailingLabelData, opts Options, now time.Time) (Bundle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("create output dir: %w", err)
	}
	b := Bundle{
		ExcelPath: filepath.Join(dir, FileName("xlsx", now)),
		PDFPath:   filepath.Join(dir, FileName("pdf", now)),
		Labels:    len(labels),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeFile(b.ExcelPath, func(w io.Writer) error {
			_, err := e.Excel(gctx, w, labels, opts)
			return err
		})
	})
	g.Go(func() error {
		return writeFile(b.PDFPath, func(w io.Writer) error {
			_, err := e.PDF(gctx, w, labels, opts)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
