package engine

import (
	"sync"

	"github.com/omeister/jpegbatch/internal/domain"
)

// collector accepts outcomes concurrently from workers and, after the pool
// drains, partitions them into the final report preserving input order.
// It is the only writer to the outcome slice; submissions are synchronized.
type collector struct {
	mu        sync.Mutex
	outcomes  []domain.Outcome
	seen      []bool
	onOutcome func(domain.Outcome)
}

func newCollector(total int, onOutcome func(domain.Outcome)) *collector {
	return &collector{
		outcomes:  make([]domain.Outcome, total),
		seen:      make([]bool, total),
		onOutcome: onOutcome,
	}
}

func (c *collector) record(o domain.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// One outcome per input line; a duplicate submission would corrupt
	// the report counts.
	if c.seen[o.Index] {
		return
	}
	c.seen[o.Index] = true
	c.outcomes[o.Index] = o

	if c.onOutcome != nil {
		c.onOutcome(o)
	}
}

func (c *collector) recorded(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[index]
}

// report partitions outcomes by kind. Iterating the slice in index order
// restores input order within each partition.
func (c *collector) report() *domain.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := &domain.Report{
		Total:    len(c.outcomes),
		Written:  []domain.Outcome{},
		Rejected: []domain.Outcome{},
		Failed:   []domain.Outcome{},
	}

	for _, o := range c.outcomes {
		switch o.Kind {
		case domain.OutcomeWritten:
			r.Written = append(r.Written, o)
		case domain.OutcomeRejected:
			r.Rejected = append(r.Rejected, o)
		case domain.OutcomeFailed:
			r.Failed = append(r.Failed, o)
		}
	}

	return r
}
