package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pql/internal/store"
)

// Render writes a scenario outcome in the stable text form stored in
// golden files. Diagnostics use diagnostic.List.String; a successful
// compilation lists its target, qualified frame columns and portability
// warnings. Fingerprints are left out so goldens survive IR layout changes.
func Render(name string, r *Result) []byte {
	var b strings.Builder
	rec := r.Record
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "status: %s\n", rec.Status)

	if rec.Status != store.StatusOK {
		b.WriteString(rec.Diagnostics.String())
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "target: %s\n", rec.Target)
	b.WriteString("frame:\n")
	for _, c := range rec.Frame {
		fmt.Fprintf(&b, "  - %s\n", c)
	}
	if len(r.Warnings) == 0 {
		b.WriteString("warnings: none\n")
	} else {
		b.WriteString("warnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails t on unmet expectations and
// compares the rendered outcome with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}
