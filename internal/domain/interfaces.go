package domain

import "context"

// Strategy names a backend search implementation.
type Strategy string

const (
	StrategyMemory   Strategy = "memory"
	StrategyPostgres Strategy = "postgres"
)

// DefaultTopN is the number of results requested per strategy.
const DefaultTopN = 5

// SearchRequest is the payload sent to the gateway and forwarded to the backend.
type SearchRequest struct {
	Query         string   `json:"query"`
	Strategy      Strategy `json:"strategy"`
	TopN          int      `json:"top_n"`
	QuestionsOnly bool     `json:"questions_only,omitempty"`
}

// SearchResult is a single ranked match returned by a strategy.
type SearchResult struct {
	ExportName          string  `json:"export_name"`
	Key                 string  `json:"key"`
	Question            string  `json:"question"`
	Context             string  `json:"context"`
	FieldTitle          string  `json:"field_title"`
	Score               float64 `json:"score"`
	Rank                int     `json:"rank"`
	ConfidencePercent   float64 `json:"confidence_percent"`
	HighlightedQuestion *string `json:"highlighted_question,omitempty"`
}

// SearchResponse is what one strategy returns for one query.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	Query        string         `json:"query"`
	Strategy     Strategy       `json:"strategy"`
	ElapsedMS    float64        `json:"elapsed_ms"`
	TotalResults int            `json:"total_results"`
}

// StrategyInfo describes a strategy in the backend catalogue.
type StrategyInfo struct {
	ID          Strategy `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Searcher issues a single search against one strategy.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Catalog lists the strategies the backend knows about.
type Catalog interface {
	Strategies(ctx context.Context) ([]StrategyInfo, error)
}

// ViewMode controls how many strategies are queried and how results are laid out.
type ViewMode int

const (
	UserView ViewMode = iota
	DevView
)

func (v ViewMode) String() string {
	if v == DevView {
		return "dev"
	}
	return "user"
}
