package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/model"
)

// Exporter renders labels to a document format.
type Exporter interface {
	Excel(ctx context.Context, w io.Writer, labels []model.MailingLabelData, opts export.Options) (int, error)
	PDF(ctx context.Context, w io.Writer, labels []model.MailingLabelData, opts export.Options) (int, error)
}

// ExportExcel downloads the workspace's working labels as a workbook.
func (h *WorkspacesHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	h.exportAs(w, r, "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		h.Exporter.Excel)
}

// ExportPDF downloads the workspace's working labels as printable sheets.
func (h *WorkspacesHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.exportAs(w, r, "pdf", "application/pdf", h.Exporter.PDF)
}

type renderFunc func(context.Context, io.Writer, []model.MailingLabelData, export.Options) (int, error)

// exportAs renders into memory first so a failed export still gets a proper
// error status.
func (h *WorkspacesHandler) exportAs(w http.ResponseWriter, r *http.Request, ext, contentType string, render renderFunc) {
	if !h.Config.Features.ExportEnabled {
		http.Error(w, "Export feature disabled", http.StatusForbidden)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	opts, err := exportOptions(r.URL.Query(), h.Config.Export)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	n, err := render(r.Context(), &buf, ws.Session.Working(), opts)
	if err != nil {
		h.logger().Error("Export failed", zap.String("format", ext), zap.Error(err))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(ext, time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Label-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
