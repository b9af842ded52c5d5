package builder

// Stage is a step of the build pipeline.
type Stage int

const (
	StageConfigured Stage = iota
	StageAnalyzing
	StageEmitting
	StageDeclaring
	StageSynthesizing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageConfigured:
		return "configured"
	case StageAnalyzing:
		return "analyzing"
	case StageEmitting:
		return "emitting"
	case StageDeclaring:
		return "declaring"
	case StageSynthesizing:
		return "synthesizing"
	case StageDone:
		return "done"
	}
	return "unknown"
}
