package analysis

import "encoding/json"

// Confidence orders how strongly the evidence supports a finding.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON serializes the level as its name so reports read
// "low|medium|high" instead of bare integers.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Confidence) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = ParseConfidence(s)
	return nil
}

// ParseConfidence maps free-form model output onto the ordered scale,
// defaulting low for anything unrecognized.
func ParseConfidence(s string) Confidence {
	switch s {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// Finding is a structured insight. Immutable once produced.
type Finding struct {
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	Confidence     Confidence `json:"confidence"`
	Evidence       []string   `json:"evidence,omitempty"`
	Recommendation string     `json:"recommendation,omitempty"`
}
