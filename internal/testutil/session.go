package testutil

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "test-session-default"

// FixedSessionGenerator returns the same session id every time, so a
// scenario run twice logs byte-identical records. It satisfies
// engine.SessionGenerator.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id. An empty id means
// DefaultSession.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSession
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
