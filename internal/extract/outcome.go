package extract

import "github.com/nv-h/gmail-debit-client/internal/core"

// SkipReason explains why a message produced no record.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipUntrustedSender SkipReason = "untrusted_sender"
	SkipFetchFailed     SkipReason = "fetch_failed"
	SkipAlreadyIngested SkipReason = "already_ingested"
	SkipDuplicate       SkipReason = "duplicate"
)

// Outcome is the result of processing one message: either a record or the
// reason it was skipped.
type Outcome struct {
	Record core.Transaction
	Skip   SkipReason
	// Err is set for SkipFetchFailed.
	Err error
}

func Accepted(r core.Transaction) Outcome {
	return Outcome{Record: r}
}

func Skipped(reason SkipReason, err error) Outcome {
	return Outcome{Skip: reason, Err: err}
}

// OK reports whether the outcome carries a record.
func (o Outcome) OK() bool {
	return o.Skip == SkipNone
}
