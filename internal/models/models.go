// Package models contains the domain types and DTOs for the video discovery service.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a video.
type Status string

// Status constants define the possible lifecycle states of a video.
const (
	StatusDraft      Status = "draft"
	StatusPublished  Status = "published"
	StatusArchived   Status = "archived"
	StatusProcessing Status = "processing"
)

// ParseStatus converts a raw string into a Status. The second return value is
// false when the string does not name a known status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusPublished, StatusArchived, StatusProcessing:
		return st, true
	default:
		return "", false
	}
}

// Video is the central entity served by the discovery engine.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Video struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title" validate:"required,max=255"`
	Description   string    `json:"description"`
	Tags          string    `json:"tags"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Duration      int       `json:"duration" validate:"gte=1"`
	Views         int64     `json:"views" validate:"gte=0"`
	Likes         int64     `json:"likes" validate:"gte=0"`
	CategoryID    *int64    `json:"category_id,omitempty"`
	SeriesID      *int64    `json:"series_id,omitempty"`
	EpisodeNumber *int      `json:"episode_number,omitempty" validate:"omitempty,gte=1"`
	FileSize      *int64    `json:"file_size,omitempty" validate:"omitempty,gte=0"`
	Width         *int      `json:"width,omitempty" validate:"omitempty,gte=1"`
	Height        *int      `json:"height,omitempty" validate:"omitempty,gte=1"`
	Status        Status    `json:"status" validate:"required,oneof=draft published archived processing"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewVideo creates a draft video with zeroed counters.
func NewVideo(title, description, tags string, duration int) *Video {
	now := time.Now()
	return &Video{
		Title:       title,
		Description: description,
		Tags:        tags,
		Duration:    duration,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPublished reports whether the video is visible to public strategies.
func (v *Video) IsPublished() bool {
	return v.Status == StatusPublished
}

// TagList splits the comma separated tags field into trimmed, non-empty labels.
// The original casing is preserved.
func (v *Video) TagList() []string {
	return SplitTags(v.Tags)
}

// SplitTags splits a comma separated tag string into trimmed, non-empty labels.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// NormalizeTag lowercases and trims a tag for index lookups.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// InteractionType identifies a viewer interaction recorded for analytics.
type InteractionType string

// InteractionType constants define the recorded interaction kinds.
const (
	InteractionView   InteractionType = "view"
	InteractionLike   InteractionType = "like"
	InteractionUnlike InteractionType = "unlike"
	InteractionShare  InteractionType = "share"
)

// Interaction is an append-only analytics record of a viewer action.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Interaction struct {
	ID        uuid.UUID         `json:"id"`
	VideoID   int64             `json:"video_id"`
	Type      InteractionType   `json:"type"`
	ClientIP  string            `json:"client_ip"`
	UserAgent string            `json:"user_agent"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewInteraction creates an interaction with a fresh id and timestamp.
func NewInteraction(videoID int64, typ InteractionType, clientIP, userAgent string, metadata map[string]string) *Interaction {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &Interaction{
		ID:        uuid.New(),
		VideoID:   videoID,
		Type:      typ,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// SearchQuery records one search request and how many results it matched.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type SearchQuery struct {
	ID        uuid.UUID `json:"id"`
	Query     string    `json:"query"`
	Results   int64     `json:"results"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSearchQuery creates a search record with a fresh id and timestamp.
func NewSearchQuery(query string, results int64, clientIP, userAgent string) *SearchQuery {
	return &SearchQuery{
		ID:        uuid.New(),
		Query:     query,
		Results:   results,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
}

// TagCount is a normalized tag with the number of published videos carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

// Suggestion is a single autocomplete entry.
type Suggestion struct {
	Suggestion string `json:"suggestion"`
	Type       string `json:"type"`
	Count      int64  `json:"count"`
}

// Suggestion types.
const (
	SuggestionTitle = "title"
	SuggestionTag   = "tag"
)

// VideoStats holds the public counters of a single video.
type VideoStats struct {
	ID        int64     `json:"id"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

// GeneralStats aggregates counters across all published videos.
type GeneralStats struct {
	TotalVideos int64 `json:"totalVideos"`
	TotalViews  int64 `json:"totalViews"`
	TotalLikes  int64 `json:"totalLikes"`
	AvgDuration int64 `json:"avgDuration"`
}

// ViewDelta is one entry of a batch view update.
type ViewDelta struct {
	VideoID int64 `json:"videoId" binding:"required,gt=0"`
	Delta   int64 `json:"delta"`
}

// ViewUpdateResult reports the outcome of one batch view update entry.
// Error is empty when the update was applied.
type ViewUpdateResult struct {
	VideoID int64  `json:"videoId"`
	Views   int64  `json:"views"`
	Error   string `json:"error,omitempty"`
}

// CounterResponseDTO is returned by counter update endpoints.
type CounterResponseDTO struct {
	VideoID int64  `json:"videoId"`
	Views   *int64 `json:"views,omitempty"`
	Likes   *int64 `json:"likes,omitempty"`
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
