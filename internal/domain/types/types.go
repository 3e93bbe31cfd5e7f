// Package types contains common types used across the application
package types

import "github.com/okian/hotboard/internal/domain/model"

// RankedEntity is a materialized leaderboard row.
type RankedEntity struct {
	Rank   int          `json:"rank"`
	Score  float64      `json:"score"`
	Entity model.Entity `json:"entity"`
}

// Page is one page of a leaderboard read.
type Page struct {
	Granularity string         `json:"granularity"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	Entities    []RankedEntity `json:"entities"`
}

// RecomputeReport summarizes one recompute run.
type RecomputeReport struct {
	Granularity string  `json:"granularity"`
	Now         int64   `json:"now"`
	Candidates  int     `json:"candidates"`
	Scored      int     `json:"scored"`
	Skipped     int     `json:"skipped"`
	Failed      int     `json:"failed"`
	DurationMS  float64 `json:"duration_ms"`
}
