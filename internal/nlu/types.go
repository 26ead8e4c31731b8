package nlu

// #region intent
// IntentCandidate is one ranked intent hypothesis from the classifier.
type IntentCandidate struct {
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
}

// IntentResult holds the full candidate list, best first.
type IntentResult struct {
	Candidates []IntentCandidate `json:"candidates"`
}

// Top1 returns the best candidate, or false when the list is empty.
func (r IntentResult) Top1() (IntentCandidate, bool) {
	if len(r.Candidates) == 0 {
		return IntentCandidate{}, false
	}
	return r.Candidates[0], true
}

// #endregion intent

// #region entity
// EntityMatch is one extracted span. Start and End are byte offsets into the
// original message, with End exclusive.
type EntityMatch struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float32 `json:"confidence"`
}

// #endregion entity
