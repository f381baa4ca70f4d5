// Package workflow drives one resume optimization run through its stages:
// parse, fetch the job description, analyze, suggest, approve, apply and
// export.
package workflow

// Stage is a node of the workflow state machine.
type Stage string

// Stages
const (
	StageStart        Stage = "start"
	StageParse        Stage = "parse"
	StageFetchJD      Stage = "fetch_jd"
	StageAnalyze      Stage = "analyze"
	StageSuggest      Stage = "suggest"
	StageApprove      Stage = "approve"
	StageApply        Stage = "apply"
	StageExport       Stage = "export"
	StageError        Stage = "error"
	StageEnd          Stage = "end"
	StageRetryParse   Stage = "retry_parse"
	StageRetryFetchJD Stage = "retry_fetch_jd"
)

// Outcome is what a stage reports back to the transition function.
type Outcome struct {
	Err       error
	Cancelled bool
	// Proposals is the number of deduplicated proposals produced by suggest.
	Proposals int
	// Retries is how often the current stage has already been retried.
	Retries    int
	MaxRetries int
}

// Next returns the stage that follows s given its outcome. It has no side
// effects; the runner owns counters and logs.
func Next(s Stage, o Outcome) Stage {
	if o.Cancelled && s != StageError && s != StageEnd {
		return StageError
	}

	switch s {
	case StageStart:
		return StageParse
	case StageParse:
		if o.Err != nil {
			return retryOrFail(StageRetryParse, o)
		}
		return StageFetchJD
	case StageRetryParse:
		return StageParse
	case StageFetchJD:
		if o.Err != nil {
			return retryOrFail(StageRetryFetchJD, o)
		}
		return StageAnalyze
	case StageRetryFetchJD:
		return StageFetchJD
	case StageAnalyze:
		if o.Err != nil {
			return StageError
		}
		return StageSuggest
	case StageSuggest:
		switch {
		case o.Err != nil:
			return StageError
		case o.Proposals > 0:
			return StageApprove
		default:
			return StageExport
		}
	case StageApprove:
		return StageApply
	case StageApply:
		if o.Err != nil {
			return StageError
		}
		return StageExport
	case StageExport:
		if o.Err != nil {
			return StageError
		}
		return StageEnd
	case StageError, StageEnd:
		return StageEnd
	default:
		return StageError
	}
}

func retryOrFail(retry Stage, o Outcome) Stage {
	if o.Retries < o.MaxRetries {
		return retry
	}
	return StageError
}

// retryTarget maps a retry edge to the stage it re-enters.
func retryTarget(s Stage) (Stage, bool) {
	switch s {
	case StageRetryParse:
		return StageParse, true
	case StageRetryFetchJD:
		return StageFetchJD, true
	}
	return "", false
}
