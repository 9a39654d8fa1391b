package answer

import "context"

// Provider turns a final transcript into a spoken reply. A single opaque
// call from the orchestrator's point of view: no side effects it can see.
type Provider interface {
	Answer(ctx context.Context, query string) (reply string, sources []string, err error)
}

// CannedReplier exposes the fixed replies a provider may fall back to, so
// the synthesis cache can be warmed for them ahead of time.
type CannedReplier interface {
	CannedReplies() []string
}

// Passage is one retrieved knowledge fragment. Distance is the vector
// distance of the match (smaller is closer).
type Passage struct {
	Title    string
	Content  string
	Distance float64
}

// Retriever finds the passages most similar to a query.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]Passage, error)
}
