package analysis

import "fmt"

// Stage is a step of one analysis request.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageExtracted  Stage = "extracted"
	StageRefined    Stage = "refined"
	StageAnalyzed   Stage = "analyzed"
	StageReported   Stage = "reported"
	StageFailed     Stage = "failed"
)

var transitions = map[Stage][]Stage{
	StageReceived:   {StageNormalized, StageFailed},
	StageNormalized: {StageExtracted, StageFailed},
	StageExtracted:  {StageRefined, StageFailed},
	StageRefined:    {StageAnalyzed},
	StageAnalyzed:   {StageReported},
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageReported || s == StageFailed
}

// CanTransition reports whether to may follow s.
func (s Stage) CanTransition(to Stage) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// tracker records the stage of one request.
type tracker struct {
	stage Stage
}

func newTracker() *tracker {
	return &tracker{stage: StageReceived}
}

func (t *tracker) advance(to Stage) error {
	if !t.stage.CanTransition(to) {
		return fmt.Errorf("invalid analysis transition %s -> %s", t.stage, to)
	}
	t.stage = to
	return nil
}
