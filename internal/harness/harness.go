package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/store"
	"github.com/roach88/pql/internal/testutil"
)

// Harness runs scenarios. The zero value discards logs.
type Harness struct {
	Logger *slog.Logger
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return (&Harness{}).Run(context.Background(), scenario)
}

// Run compiles the scenario query as a one-job batch, logs it to a fresh
// in-memory store and checks the expectations against the logged record.
//
// The error is reserved for scenarios that could not be executed; a
// compiler producing the wrong outcome is a failed Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	log := h.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cat, err := scenario.catalog()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := compiler.Options{
		Catalog:       cat,
		Target:        scenario.Target,
		StrictCatalog: scenario.StrictCatalog,
		IssueTracker:  scenario.IssueTracker,
		Logger:        log,
	}
	eng := engine.New(opts,
		engine.WithStore(st),
		engine.WithWorkers(1),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		engine.WithLogger(log),
	)

	batch, err := eng.Run(ctx, []engine.Job{{Name: scenario.Name, Source: scenario.Query}})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	records, err := st.ReadOutcomes(ctx, batch.Session)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("scenario %s: expected one logged outcome, found %d", scenario.Name, len(records))
	}

	result := NewResult()
	result.Outcome = batch.Outcomes[0]
	result.Record = records[0]
	if res := result.Outcome.Result; res != nil {
		result.Warnings = res.Portability.Warnings
	}

	checkExpectations(scenario, result)
	log.Debug("scenario finished", "name", scenario.Name, "pass", result.Pass, "errors", len(result.Errors))
	return result, nil
}
