package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// UpsertActivity inserts or updates an activity for userID
func (db *DB) UpsertActivity(ctx context.Context, userID string, a model.ActivitySample) error {
	if err := a.Validate(); err != nil {
		return err
	}
	var zones sql.NullString
	if len(a.ZoneMinutes) > 0 {
		data, err := json.Marshal(a.ZoneMinutes)
		if err != nil {
			return fmt.Errorf("encoding zone minutes: %w", err)
		}
		zones = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (
			user_id, id, date, sport, duration_min, distance_km, training_load,
			avg_hr, max_hr, zone_minutes, pace_min_per_km, power_watts, speed_kmh,
			source, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, id) DO UPDATE SET
			date = excluded.date,
			sport = excluded.sport,
			duration_min = excluded.duration_min,
			distance_km = excluded.distance_km,
			training_load = excluded.training_load,
			avg_hr = excluded.avg_hr,
			max_hr = excluded.max_hr,
			zone_minutes = excluded.zone_minutes,
			pace_min_per_km = excluded.pace_min_per_km,
			power_watts = excluded.power_watts,
			speed_kmh = excluded.speed_kmh,
			source = excluded.source,
			updated_at = CURRENT_TIMESTAMP
	`,
		userID, a.ID, formatTime(a.Date), a.Sport, a.DurationMin, a.DistanceKm, a.TrainingLoad,
		toNullFloat(a.AvgHR), toNullFloat(a.MaxHR), zones,
		toNullFloat(a.PaceMinPerKm), toNullFloat(a.PowerWatts), toNullFloat(a.SpeedKmh),
		a.Source,
	)
	return err
}

// ListActivities returns the user's activities on or after since, oldest first
func (db *DB) ListActivities(ctx context.Context, userID string, since time.Time) ([]model.ActivitySample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, date, sport, duration_min, distance_km, training_load,
			avg_hr, max_hr, zone_minutes, pace_min_per_km, power_watts, speed_kmh, source
		FROM activities
		WHERE user_id = ? AND date >= ?
		ORDER BY date ASC, id ASC
	`, userID, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []model.ActivitySample
	for rows.Next() {
		var a model.ActivitySample
		var date string
		var avgHR, maxHR, pace, power, speed sql.NullFloat64
		var zones, source sql.NullString
		if err := rows.Scan(&a.ID, &date, &a.Sport, &a.DurationMin, &a.DistanceKm, &a.TrainingLoad,
			&avgHR, &maxHR, &zones, &pace, &power, &speed, &source); err != nil {
			return nil, err
		}
		if a.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parsing activity %s date: %w", a.ID, err)
		}
		if zones.Valid {
			if err := json.Unmarshal([]byte(zones.String), &a.ZoneMinutes); err != nil {
				return nil, fmt.Errorf("decoding activity %s zones: %w", a.ID, err)
			}
		}
		a.AvgHR = fromNullFloat(avgHR)
		a.MaxHR = fromNullFloat(maxHR)
		a.PaceMinPerKm = fromNullFloat(pace)
		a.PowerWatts = fromNullFloat(power)
		a.SpeedKmh = fromNullFloat(speed)
		a.Source = source.String
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// CountActivities returns how many activities are stored for userID
func (db *DB) CountActivities(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
