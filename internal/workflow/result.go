// Package workflow orchestrates the tiered approval state machines for
// transactions and loans. Every mutating operation runs as one atomic ledger
// unit: the status transition and its paired balance mutation(s) either all
// commit or all roll back.
package workflow

import "github.com/GiorgiUbiria/banking_backoffice/internal/models"

type Status string

const (
	// StatusSuccess: the operation applied.
	StatusSuccess Status = "success"
	// StatusDenied: policy refused; nothing was mutated.
	StatusDenied Status = "denied"
	// StatusEscalated: a higher tier must act; nothing was mutated.
	StatusEscalated Status = "escalated"
	// StatusNotFound: the record does not exist or was already moved to a
	// terminal state, possibly by a concurrent actor. Safe to retry-read.
	StatusNotFound Status = "not_found"
)

// Result is the structured outcome of a workflow operation. Storage failures
// travel separately as a Go error; Result covers every non-fatal outcome.
type Result struct {
	Status      Status              `json:"status"`
	Reason      string              `json:"reason,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Loan        *models.Loan        `json:"loan,omitempty"`
}

func success() Result { return Result{Status: StatusSuccess} }

func denied(reason string) Result { return Result{Status: StatusDenied, Reason: reason} }

func escalated(reason string) Result { return Result{Status: StatusEscalated, Reason: reason} }

func notFound() Result {
	return Result{Status: StatusNotFound, Reason: "not found or already processed"}
}

func (r Result) withTransaction(t *models.Transaction) Result {
	r.Transaction = t
	return r
}

func (r Result) withLoan(l *models.Loan) Result {
	r.Loan = l
	return r
}
