package stream

// Session is the per-request arena: it owns the block, step and artifact
// trackers for one upstream generation. A Session is used by a single
// goroutine (the producer) and is never shared between requests.
type Session struct {
	ID        string
	Blocks    *BlockTracker
	Steps     *StepCounter
	Artifacts *ArtifactCollector
}

// NewSession returns a session with empty trackers.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Blocks:    NewBlockTracker(),
		Steps:     NewStepCounter(),
		Artifacts: NewArtifactCollector(),
	}
}
