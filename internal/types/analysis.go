package types

// GapAnalysis compares job description keywords against the resume.
type GapAnalysis struct {
	JobKeywords      []string `json:"job_keywords"`
	ResumeKeywords   []string `json:"resume_keywords"`
	Matched          []string `json:"matched"`
	Missing          []string `json:"missing"`
	Coverage         float64  `json:"coverage"`
	UsedHeuristics   bool     `json:"used_heuristics,omitempty"`
	HeuristicReasons []string `json:"heuristic_reasons,omitempty"`
}
