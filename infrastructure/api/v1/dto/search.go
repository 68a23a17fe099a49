// Package dto holds the request and response bodies of the v1 API that are
// not JSON:API documents.
package dto

import "time"

// ProfileSummary is one profile in a semantic search response.
type ProfileSummary struct {
	ID           int64    `json:"id"`
	FullName     string   `json:"full_name"`
	Role         string   `json:"role"`
	Title        string   `json:"title"`
	Bio          string   `json:"bio"`
	Skills       []string `json:"skills"`
	Tags         []string `json:"tags"`
	Availability string   `json:"availability"`
	// Similarity is 1 - cosine distance; absent for text matches.
	Similarity *float64 `json:"similarity,omitempty"`
}

// EventSummary is one event in a semantic search response.
type EventSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Format      string     `json:"format"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    int        `json:"capacity"`
	Similarity  *float64   `json:"similarity,omitempty"`
}
