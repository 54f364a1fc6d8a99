package model

// QueryConfig tunes question answering.
type QueryConfig struct {
	// Vector search
	TopK                int     `json:"top_k" mapstructure:"top_k" yaml:"top_k"`
	ConfidenceThreshold float64 `json:"confidence_threshold" mapstructure:"confidence_threshold" yaml:"confidence_threshold"`

	// Number of distinct articles rebuilt as context for the analyst prompt
	ContextArticles int `json:"context_articles" mapstructure:"context_articles" yaml:"context_articles"`

	// Graph queries
	GraphRowLimit int `json:"graph_row_limit" mapstructure:"graph_row_limit" yaml:"graph_row_limit"`
	MaxHops       int `json:"max_hops" mapstructure:"max_hops" yaml:"max_hops"`
}

// DefaultQueryConfig returns the defaults used by the assistant.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                5,
		ConfidenceThreshold: 0.5,
		ContextArticles:     3,
		GraphRowLimit:       DefaultGraphLimit,
		MaxHops:             2,
	}
}

// WithDefaults fills zero fields from DefaultQueryConfig.
func (c QueryConfig) WithDefaults() QueryConfig {
	d := DefaultQueryConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.ContextArticles <= 0 {
		c.ContextArticles = d.ContextArticles
	}
	if c.GraphRowLimit <= 0 {
		c.GraphRowLimit = d.GraphRowLimit
	}
	if c.GraphRowLimit > MaxGraphLimit {
		c.GraphRowLimit = MaxGraphLimit
	}
	if c.MaxHops <= 0 {
		c.MaxHops = d.MaxHops
	}
	return c
}
