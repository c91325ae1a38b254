package concepts

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/conceptdb/internal/data/graph"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
)

// MapError maps store and driver failures into engine error codes. Typed
// engine errors pass through with op filled in.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *domain.Error
	if errors.As(err, &typed) {
		return domain.Wrap(typed.Code, op, err)
	}
	switch {
	case errors.Is(err, graph.ErrInvalidIdentifier), errors.Is(err, graph.ErrInvalidValue):
		return domain.Wrap(domain.CodeValidation, op, err)
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		return domain.Wrap(domain.CodeNotFound, op, err)
	case errors.Is(err, graph.ErrNodeHasEdges):
		return domain.Wrap(domain.CodeInvariantViolation, op, err)
	case errors.Is(err, context.Canceled):
		// a caller disconnect is not retryable
		return domain.Wrap(domain.CodeInternal, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.CodeRetryable, op, err)
	case neo4j.IsRetryable(err):
		return domain.Wrap(domain.CodeRetryable, op, err)
	}

	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		switch {
		case strings.Contains(neoErr.Code, "ConstraintValidationFailed"):
			return domain.Wrap(domain.CodeConflict, op, err)
		case strings.Contains(neoErr.Code, "Transaction.DeadlockDetected"),
			strings.Contains(neoErr.Code, "TransientError"):
			return domain.Wrap(domain.CodeRetryable, op, err)
		case strings.Contains(neoErr.Code, "Statement.SyntaxError"):
			return domain.Wrap(domain.CodeInternal, op, err)
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "already exists"):
		return domain.Wrap(domain.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domain.Wrap(domain.CodeRetryable, op, err)
	default:
		return domain.Wrap(domain.CodeInternal, op, err)
	}
}
