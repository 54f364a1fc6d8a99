package model

import "time"

// SemanticResult is the outcome of a vector search over searchable passages.
type SemanticResult struct {
	Hits      []*Passage `json:"hits"`
	Confident bool       `json:"confident"`
	// RelatedURLs are the distinct article URLs of all hits in rank order.
	RelatedURLs []string `json:"related_urls"`
	// ContextURLs are the distinct article URLs of the best hits, used as
	// analyst context.
	ContextURLs []string `json:"context_urls"`
}

// TopScore returns the similarity of the best hit, or 0 without hits.
func (r *SemanticResult) TopScore() float64 {
	if r == nil || len(r.Hits) == 0 {
		return 0
	}
	return r.Hits[0].Similarity
}

// Answer is the response to a user question.
type Answer struct {
	Question   string         `json:"question"`
	Route      Route          `json:"route"`
	Text       string         `json:"answer"`
	Sources    []string       `json:"sources,omitempty"`
	GraphQuery *GraphQuery    `json:"graph_query,omitempty"`
	Records    []*GraphRecord `json:"records,omitempty"`
	Cached     bool           `json:"cached,omitempty"`
}

// Report is a structured analysis of one article.
type Report struct {
	ArticleURL  string    `json:"article_url"`
	Topic       string    `json:"topic"`
	Text        string    `json:"report"`
	GeneratedAt time.Time `json:"generated_at"`
}
