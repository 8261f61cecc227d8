package service

import "time"

const (
	// EngineVersion is reported in every result envelope
	EngineVersion = "1.4.0"

	// History windows loaded for the daily briefing
	ActivityHistoryDays = 60
	RecoveryHistoryDays = 28
	LoadChartDays       = 28

	// Strava paging
	SyncPageSize = 100

	// Overlap re-fetched on incremental syncs so late uploads are picked up
	SyncOverlap = 48 * time.Hour

	// FallbackAdvice is the conservative default when the recommender fails
	FallbackAdvice = "Assume moderate recovery, allow easy training"
)
