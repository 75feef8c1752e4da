package labels

import (
	"context"

	"go.uber.org/zap"

	"github.com/referral-labels/internal/debug"
	"github.com/referral-labels/internal/model"
	"github.com/referral-labels/internal/normalize"
	"github.com/referral-labels/internal/telemetry"
)

// ParseIssue identifies a record whose address produced no street, city or zip.
type ParseIssue struct {
	OfficeID   string `json:"officeId"`
	OfficeName string `json:"officeName"`
	Address    string `json:"address"`
}

// Result is the output of one build.
type Result struct {
	Labels      []model.MailingLabelData `json:"labels"`
	ParseErrors []ParseIssue             `json:"parseErrors,omitempty"`
}

// Builder turns raw office records into label rows.
type Builder struct {
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewBuilder creates a builder. Either argument may be nil.
func NewBuilder(logger *zap.Logger, metrics *telemetry.Metrics) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger, metrics: metrics}
}

// Build produces one label per record passing filters, in input order.
// Records with unparseable addresses are still emitted; they are also
// reported in ParseErrors.
func (b *Builder) Build(records []model.RawOfficeRecord, filters Filters) Result {
	done := debug.DebugTiming(filters.LogParseErrors, "build labels")
	defer done()

	res := Result{Labels: make([]model.MailingLabelData, 0, len(records))}
	for _, rec := range records {
		if !Matches(rec, filters) {
			continue
		}

		parsed := normalize.ParseAddress(rec.AddressText())
		if parsed.IsParseError() {
			res.ParseErrors = append(res.ParseErrors, ParseIssue{
				OfficeID:   rec.ID,
				OfficeName: rec.Name,
				Address:    rec.AddressText(),
			})
			debug.DebugOutput(filters.LogParseErrors, "Address parse error for %s (%s): %q",
				rec.Name, rec.ID, rec.AddressText())
		}

		res.Labels = append(res.Labels, model.MailingLabelData{
			OfficeName:  rec.Name,
			ContactName: normalize.ExtractContact(rec.Name),
			Address1:    parsed.Address1,
			Address2:    parsed.Address2,
			City:        parsed.City,
			State:       parsed.State,
			Zip:         parsed.Zip,
		})
	}

	ctx := context.Background()
	b.metrics.LabelsBuilt(ctx, len(res.Labels))
	b.metrics.ParseErrors(ctx, len(res.ParseErrors))
	if len(res.ParseErrors) > 0 {
		b.logger.Debug("label build finished with parse errors",
			zap.Int("labels", len(res.Labels)),
			zap.Int("parse_errors", len(res.ParseErrors)))
	}
	return res
}

// Labels is Build without the diagnostics, usable as a session build func.
func (b *Builder) Labels(records []model.RawOfficeRecord, filters Filters) []model.MailingLabelData {
	return b.Build(records, filters).Labels
}
