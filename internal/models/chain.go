package models

// ChainSummary describes one registered chain
type ChainSummary struct {
	ID         string `json:"id"`
	Difficulty int    `json:"difficulty"`
	Length     int    `json:"length"`
	TipHash    string `json:"tip_hash"`
}

// ValidationResult is the outcome of validating a chain
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Index  *uint64 `json:"index,omitempty"`  // first failing block
	Reason string  `json:"reason,omitempty"` // why it failed
}
