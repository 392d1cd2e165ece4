package pipeline

type Stage int

const (
	StageValidating Stage = iota
	StageRetrieving
	StageRanking
	StageLoadingHistory
	StagePrompting
	StageGenerating
	StagePersisting
	StageResponding
)

func (s Stage) String() string {
	switch s {
	case StageValidating:
		return "validating"
	case StageRetrieving:
		return "retrieving"
	case StageRanking:
		return "ranking"
	case StageLoadingHistory:
		return "loading_history"
	case StagePrompting:
		return "prompting"
	case StageGenerating:
		return "generating"
	case StagePersisting:
		return "persisting"
	case StageResponding:
		return "responding"
	}
	return "unknown"
}
