package application

// pipeline is the single authoritative stage order.
var pipeline = []AgentType{AgentSales, AgentVerification, AgentUnderwriting, AgentSanction}

// Pipeline returns the stage order. Callers get a copy.
func Pipeline() []AgentType {
	out := make([]AgentType, len(pipeline))
	copy(out, pipeline)
	return out
}

// IsStage reports whether t is a pipeline stage (master is not).
func IsStage(t AgentType) bool {
	for _, s := range pipeline {
		if s == t {
			return true
		}
	}
	return false
}

// NextStage returns the stage after t, or false when t is the last stage
// or not a pipeline stage at all.
func NextStage(t AgentType) (AgentType, bool) {
	for i, s := range pipeline {
		if s == t && i+1 < len(pipeline) {
			return pipeline[i+1], true
		}
	}
	return "", false
}

// StageIndex returns the zero-based position of t in the pipeline, -1 for
// non-pipeline agents.
func StageIndex(t AgentType) int {
	for i, s := range pipeline {
		if s == t {
			return i
		}
	}
	return -1
}

// ValidateRequest checks the schema bounds of a loan request.
func ValidateRequest(amount float64, tenureMonths int) error {
	if amount < MinAmount {
		return ErrInvalidRequest
	}
	if tenureMonths < MinTenure || tenureMonths > MaxTenure {
		return ErrInvalidRequest
	}
	return nil
}
