package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/geocode"
	"github.com/referral-labels/internal/store"
)

// Auditor records applied corrections.
type Auditor interface {
	RecordCorrections(ctx context.Context, localDebug bool, corrections []audit.Correction) error
}

type actorKey struct{}

// WithActor attaches the name of the reviewer applying corrections.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the reviewer name, or "system" if none was attached.
func ActorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// Service answers correction requests from the office store, using a
// standardizer for suggestions. It implements both Requester and Applier.
type Service struct {
	store        store.Store
	standardizer geocode.Standardizer
	auditor      Auditor
	concurrency  int
	logger       *zap.Logger
	localDebug   bool
}

type ServiceOption func(*Service)

func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

// WithConcurrency bounds the number of addresses standardized at once.
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithDebug(enabled bool) ServiceOption {
	return func(s *Service) { s.localDebug = enabled }
}

func NewService(st store.Store, std geocode.Standardizer, opts ...ServiceOption) *Service {
	s := &Service{
		store:        st,
		standardizer: std,
		concurrency:  4,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestCorrections standardizes the address of each requested office.
// Offices the standardizer cannot match come back unchanged; a provider
// outage fails the whole request.
func (s *Service) RequestCorrections(ctx context.Context, req Request) (*Response, error) {
	offices, err := s.store.GetOffices(ctx, req.OfficeIDs)
	if err != nil {
		return nil, fmt.Errorf("load offices: %w", err)
	}

	results := make([]Result, len(offices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, office := range offices {
		i, office := i, office
		g.Go(func() error {
			original := office.AddressText()
			results[i] = Result{ID: office.ID, Original: original, Corrected: original}
			if strings.TrimSpace(original) == "" {
				return nil
			}

			corrected, err := s.standardizer.Standardize(gctx, original)
			switch {
			case err == nil:
				results[i].Corrected = corrected
			case errors.Is(err, geocode.ErrUnavailable), gctx.Err() != nil:
				return err
			default:
				s.logger.Debug("address left unchanged",
					zap.String("office_id", office.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("standardize addresses: %w", err)
	}

	resp := &Response{Results: results}
	for _, r := range results {
		if Differs(r.Original, r.Corrected) {
			resp.NeedsUpdate++
		}
	}
	s.logger.Info("address corrections computed",
		zap.Int("requested", len(req.OfficeIDs)),
		zap.Int("found", len(offices)),
		zap.Int("needs_update", resp.NeedsUpdate))
	return resp, nil
}

// ApplyCorrections writes the approved addresses and audits them. Updated
// may be lower than Total when offices disappeared since the request.
func (s *Service) ApplyCorrections(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	ids := make([]string, len(req.Updates))
	for i, u := range req.Updates {
		ids[i] = u.ID
	}
	before, err := s.store.GetOffices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load offices: %w", err)
	}
	previous := make(map[string]string, len(before))
	for _, o := range before {
		previous[o.ID] = o.AddressText()
	}

	updated, err := s.store.UpdateAddresses(ctx, req.Updates)
	if err != nil {
		return nil, fmt.Errorf("update addresses: %w", err)
	}

	if s.auditor != nil {
		runID := uuid.NewString()
		actor := ActorFrom(ctx)
		records := make([]audit.Correction, 0, len(req.Updates))
		for _, u := range req.Updates {
			old, ok := previous[u.ID]
			if !ok {
				continue
			}
			records = append(records, audit.Correction{
				RunID:      runID,
				OfficeID:   u.ID,
				OldAddress: old,
				NewAddress: u.Address,
				Confidence: Similarity(old, u.Address),
				AppliedBy:  actor,
			})
		}
		// The updates are committed; an audit failure is reported but does
		// not turn the apply into a failure.
		if err := s.auditor.RecordCorrections(ctx, s.localDebug, records); err != nil {
			s.logger.Error("failed to audit corrections", zap.String("run_id", runID), zap.Error(err))
		}
	}

	return &ApplyResult{Updated: updated, Total: len(req.Updates)}, nil
}
