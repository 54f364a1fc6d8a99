package model

import "strings"

// Route is the retrieval path chosen for a question.
type Route string

const (
	RouteSemantic Route = "semantic"
	RouteGraph    Route = "graph"
)

// ParseRoute reads a router answer. Anything mentioning "graph" selects the
// graph path; everything else falls back to semantic search.
func ParseRoute(text string) Route {
	if strings.Contains(strings.ToLower(text), "graph") {
		return RouteGraph
	}
	return RouteSemantic
}
