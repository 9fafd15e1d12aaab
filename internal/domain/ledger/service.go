package ledger

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/document"
	"github.com/erp/backoffice/internal/domain/shared"
)

// Service keeps the quantity ledger and the line rollup counters in step.
// Recording is idempotent per downstream line and direction: replaying the
// same conversion or cancellation is a no-op, not a double count.
type Service struct {
	repo Repository
}

// NewService creates a quantity ledger service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordConversion writes one CONSUME row per downstream line of a freshly
// converted document. The rollup counters were already advanced by the
// conversion itself; the ledger is the durable audit trail behind them.
func (s *Service) RecordConversion(ctx context.Context, source, target *document.Document) error {
	kind, ok := document.ConversionKind(source.Type, target.Type)
	if !ok {
		return shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("No conversion from %s to %s", source.Type, target.Type))
	}

	rows := make([]*Consumption, 0, len(target.Lines))
	for i := range target.Lines {
		line := &target.Lines[i]
		if line.UpstreamLineID == nil {
			continue
		}
		exists, err := s.repo.Exists(ctx, line.ID, DirectionConsume)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		upstream := source.GetLine(*line.UpstreamLineID)
		if upstream == nil {
			return shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Upstream line %s not found on %s %s", line.UpstreamLineID, source.Type, source.Number))
		}
		row, err := newConsumption(upstream, source.ID, line, target.ID, kind, DirectionConsume, line.Quantity)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	return s.repo.Save(ctx, rows...)
}

// ReleaseDocument gives the cancelled document's quantities back to its
// upstream lines: one RELEASE row per line, and the matching counter
// decrements on the source. Idempotent per downstream line.
func (s *Service) ReleaseDocument(ctx context.Context, source, cancelled *document.Document) error {
	kind, ok := document.ConversionKind(source.Type, cancelled.Type)
	if !ok {
		return shared.NewDomainError(shared.CodeValidationFailed,
			fmt.Sprintf("No conversion from %s to %s", source.Type, cancelled.Type))
	}

	rows := make([]*Consumption, 0, len(cancelled.Lines))
	for i := range cancelled.Lines {
		line := &cancelled.Lines[i]
		if line.UpstreamLineID == nil {
			continue
		}
		exists, err := s.repo.Exists(ctx, line.ID, DirectionRelease)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		upstream := source.GetLine(*line.UpstreamLineID)
		if upstream == nil {
			return shared.NewDomainError(shared.CodeNotFound,
				fmt.Sprintf("Upstream line %s not found on %s %s", line.UpstreamLineID, source.Type, source.Number))
		}
		if err := upstream.ReleaseConsumed(kind, line.Quantity); err != nil {
			return err
		}
		row, err := newConsumption(upstream, source.ID, line, cancelled.ID, kind, DirectionRelease, line.Quantity)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	return s.repo.Save(ctx, rows...)
}

// Reconcile recomputes the net consumed quantity for one upstream line
// from the ledger rows and compares it with the rollup counter. A non-nil
// drift means the counter and the ledger disagree.
func (s *Service) Reconcile(ctx context.Context, line *document.Line, kind document.ConsumptionKind) (*Drift, error) {
	net, err := s.repo.SumByUpstreamLine(ctx, line.ID, kind)
	if err != nil {
		return nil, err
	}
	counter := line.Consumed(kind)
	if counter.Equal(net) {
		return nil, nil
	}
	return &Drift{
		LineID:  line.ID,
		Kind:    kind,
		Counter: counter,
		Ledger:  net,
	}, nil
}
