package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/culturalatlas/internal/domain"
	"github.com/atvirokodosprendimai/culturalatlas/internal/observability"
	"github.com/atvirokodosprendimai/culturalatlas/internal/platform/logger"
)

type GraphService struct {
	repo         domain.GraphRepository
	files        domain.FileStore
	log          *logger.Logger
	metrics      *observability.Metrics
	defaultLimit int
	maxLimit     int
}

type Option func(*GraphService)

func WithFileStore(files domain.FileStore) Option {
	return func(s *GraphService) { s.files = files }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *GraphService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *GraphService) { s.metrics = m }
}

// WithLimits sets the listing page size used when a caller passes no limit,
// and the ceiling applied to any requested limit.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *GraphService) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

func NewGraphService(repo domain.GraphRepository, opts ...Option) *GraphService {
	s := &GraphService{
		repo:         repo,
		log:          logger.Nop(),
		defaultLimit: 100,
		maxLimit:     1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxLimit < s.defaultLimit {
		s.maxLimit = s.defaultLimit
	}
	return s
}

func (s *GraphService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

func (s *GraphService) Traverse(ctx context.Context, query domain.TraverseQuery) ([]domain.TraversalHop, error) {
	if query.StartEntityID == 0 {
		return nil, fmt.Errorf("start_entity_id is required: %w", domain.ErrInvalidArgument)
	}
	if query.MaxDepth <= 0 {
		query.MaxDepth = 3
	}
	if query.MaxDepth > 8 {
		query.MaxDepth = 8
	}
	codes, err := normalizeCodes(query.Properties)
	if err != nil {
		return nil, err
	}
	query.Properties = codes
	if _, err := s.repo.GetEntity(ctx, query.StartEntityID); err != nil {
		return nil, err
	}

	return s.repo.Traverse(ctx, query)
}

func (s *GraphService) ListLogs(ctx context.Context, entityID uint, limit int) ([]domain.EntityLog, error) {
	if entityID == 0 {
		return nil, fmt.Errorf("entity_id is required: %w", domain.ErrInvalidArgument)
	}
	return s.repo.ListLogs(ctx, entityID, s.clampLimit(limit))
}

func (s *GraphService) Classes() []domain.ClassInfo {
	return domain.Classes()
}

func (s *GraphService) Properties() []domain.Property {
	return domain.Properties()
}

// normalizeCodes upper-cases property codes and rejects codes outside the
// vocabulary.
func normalizeCodes(codes []string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := domain.LookupProperty(code); !ok {
			return nil, fmt.Errorf("unknown property code %q: %w", code, domain.ErrInvalidArgument)
		}
		out = append(out, code)
	}
	return out, nil
}

// runTx executes fn in one transaction. Failures are logged, counted and
// surfaced as a TxError so callers never see partial writes.
func (s *GraphService) runTx(ctx context.Context, op string, fn func(repo domain.GraphRepository) error) error {
	err := s.repo.WithinTx(ctx, fn)
	if err == nil {
		return nil
	}
	s.metrics.TxRolledBack(op)
	s.log.Error("transaction rolled back", "operation", op, "error", err)
	var txErr *domain.TxError
	if errors.As(err, &txErr) {
		return err
	}
	return &domain.TxError{Op: op, Cause: err}
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}
