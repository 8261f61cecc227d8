package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Strava tokens (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			date TEXT NOT NULL,
			sport TEXT NOT NULL,
			duration_min REAL NOT NULL,
			distance_km REAL NOT NULL,
			training_load REAL NOT NULL,
			avg_hr REAL,
			max_hr REAL,
			zone_minutes TEXT,
			pace_min_per_km REAL,
			power_watts REAL,
			speed_kmh REAL,
			source TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_user_date ON activities(user_id, date)`,

		// One recovery sample per user and calendar day
		`CREATE TABLE IF NOT EXISTS recovery_metrics (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			sleep_score REAL,
			body_battery REAL,
			hrv REAL,
			resting_hr REAL,
			stress_level REAL,
			subjective_fatigue REAL NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, day)
		)`,

		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			workouts TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_plans_user ON plans(user_id, updated_at)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
