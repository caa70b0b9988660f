package harness

import (
	"fmt"

	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/store"
)

// Result is the outcome of a scenario.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Outcome is the in-memory result of the batch job.
	Outcome engine.Outcome `json:"-"`

	// Record is the outcome as read back from the compile log.
	Record store.Record `json:"-"`

	// Warnings are the portability warnings of a successful compilation.
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed expectation.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
