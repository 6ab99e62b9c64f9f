package models

import (
	"time"

	"github.com/amirhf/imageSearch/services/search-web/catalog"
)

// SearchResponse is the body returned by the backend on success.
type SearchResponse struct {
	RPCurve       *string   `json:"rp_curve,omitempty"`
	SimilarImages *[]string `json:"similar_images,omitempty"`
}

// SearchResult is a parsed backend response. Ranking order is preserved.
type SearchResult struct {
	RPCurve       string            `json:"rp_curve,omitempty"`
	SimilarImages []catalog.ImageID `json:"similar_images"`
}

// Outcome statuses recorded for a resolved search.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// SearchOutcome describes one resolved submission, for diagnostics.
type SearchOutcome struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	Descriptor  string    `json:"descriptor"`
	Similarity  string    `json:"similarity"`
	TopN        string    `json:"topn"`
	Status      string    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	ResultCount int       `json:"result_count"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
