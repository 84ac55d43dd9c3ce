package search

// Strategy tags mark which engine produced a result.
const (
	StrategyVector = "vector"
	StrategyText   = "text"
	StrategyHybrid = "hybrid"
)

// Result is one retrieved passage.
type Result struct {
	Content  string
	Score    float32
	HasScore bool // lexical fallback entries may carry no comparable score
	Source   string
	Strategy string
}

// Config encapsulates search parameters
type Config struct {
	TopK          int
	MinScore      float64 // vector results below this are treated as noise
	MinChunkLen   int     // runes; shorter chunks are unusable as context
	ContextBudget int     // max runes in the formatted context block
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		TopK:          3,
		MinScore:      0.3,
		MinChunkLen:   40,
		ContextBudget: 8000,
	}
}

// Query length thresholds for strategy selection. Short queries are
// keyword-like and embed well; long narrative queries dilute into a single
// vector, so lexical term matching pulls more weight there.
const (
	shortQueryLen = 20
	longQueryLen  = 100
)
