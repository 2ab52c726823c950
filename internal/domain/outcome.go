package domain

type OutcomeKind string

const (
	OutcomeWritten  OutcomeKind = "written"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// Rejection reasons produced by the normalizer.
const (
	ReasonEmptyLine  = "empty line"
	ReasonInvalidURL = "invalid url"
	ReasonDuplicate  = "duplicate url"
)

// ReasonCancelled marks targets that never ran because the batch was
// interrupted.
const ReasonCancelled = "cancelled"

// Outcome is the terminal result recorded for one input line.
// Exactly one Outcome exists per input line by the end of a run.
type Outcome struct {
	// Index is the zero-based position of the input line this outcome
	// belongs to. The aggregator uses it to restore input order.
	Index int         `json:"index"`
	Input string      `json:"input"`
	Kind  OutcomeKind `json:"kind"`

	// Path and Bytes are set for written outcomes only.
	Path  string `json:"path,omitempty"`
	Bytes int64  `json:"bytes,omitempty"`

	// Reason is set for rejected and failed outcomes.
	Reason string `json:"reason,omitempty"`

	// Attempts counts fetch attempts actually spent on this target.
	Attempts int `json:"attempts,omitempty"`
}
