package domain

import (
	"fmt"
	"strconv"
	"time"
)

// CatalogEntry is a context-free course definition.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CourseInstance is a catalog entry materialized for one delivery context.
type CourseInstance struct {
	ID        string    `json:"id"`
	CatalogID string    `json:"catalogId"`
	Name      string    `json:"name"`
	Medium    string    `json:"medium"`
	Board     string    `json:"board,omitempty"`
	ExamID    string    `json:"examId,omitempty"`
	Order     int       `json:"order"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QuizResult is the immutable outcome of one completed quiz attempt.
// Empty optional fields mean "not set".
type QuizResult struct {
	UID       string `json:"uid" validate:"required"`
	Score     int    `json:"score" validate:"gte=0"`
	State     string `json:"state,omitempty"`
	District  string `json:"district,omitempty"`
	CourseID  string `json:"courseId,omitempty"`
	SubjectID string `json:"subjectId,omitempty"`
	BoardID   string `json:"boardId,omitempty"`
	ExamID    string `json:"examId,omitempty"`
}

// PublicProfile is the display snapshot copied into leaderboard entries.
type PublicProfile struct {
	DisplayName string  `json:"displayName"`
	Avatar      *string `json:"avatar"`
	State       *string `json:"state"`
	District    *string `json:"district"`
}

// PlaceholderProfile is used for users without a public profile yet.
func PlaceholderProfile() PublicProfile {
	return PublicProfile{DisplayName: "User"}
}

// LeaderboardEntry is one user's row inside a bucket.
type LeaderboardEntry struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Avatar      *string   `json:"avatar"`
	State       *string   `json:"state"`
	District    *string   `json:"district"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RankedEntry is a position in a bucket's standings.
type RankedEntry struct {
	Rank  int    `json:"rank"`
	UID   string `json:"uid"`
	Score int    `json:"score"`
	Total int    `json:"total"`
}

// Standings is the ordered view of a bucket.
type Standings struct {
	Bucket    string        `json:"bucket"`
	Entries   []RankedEntry `json:"entries"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// RegistryRecord is one row of admin-authored reference data.
type RegistryRecord map[string]any

// ID returns the record id, or "" when absent or blank.
func (r RegistryRecord) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
