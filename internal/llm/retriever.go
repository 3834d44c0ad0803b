package llm

import "context"

// Retriever fetches curated knowledge-base context relevant to a query. A
// nil Retriever on Module means generation runs with no retrieval step at
// all, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}
