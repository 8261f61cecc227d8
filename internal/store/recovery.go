package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// UpsertRecovery stores the sample for its calendar day. A later write for
// the same day replaces the earlier one.
func (db *DB) UpsertRecovery(ctx context.Context, userID string, r model.RecoveryMetricsSample) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO recovery_metrics (
			user_id, day, sleep_score, body_battery, hrv, resting_hr, stress_level,
			subjective_fatigue, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, day) DO UPDATE SET
			sleep_score = excluded.sleep_score,
			body_battery = excluded.body_battery,
			hrv = excluded.hrv,
			resting_hr = excluded.resting_hr,
			stress_level = excluded.stress_level,
			subjective_fatigue = excluded.subjective_fatigue,
			updated_at = CURRENT_TIMESTAMP
	`,
		userID, model.DayKey(r.Date),
		toNullFloat(r.SleepScore), toNullFloat(r.BodyBattery), toNullFloat(r.HRV),
		toNullFloat(r.RestingHR), toNullFloat(r.StressLevel), r.SubjectiveFatigue,
	)
	return err
}

// ListRecovery returns samples on or after since, oldest first
func (db *DB) ListRecovery(ctx context.Context, userID string, since time.Time) ([]model.RecoveryMetricsSample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day, sleep_score, body_battery, hrv, resting_hr, stress_level, subjective_fatigue
		FROM recovery_metrics
		WHERE user_id = ? AND day >= ?
		ORDER BY day ASC
	`, userID, model.DayKey(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []model.RecoveryMetricsSample
	for rows.Next() {
		var r model.RecoveryMetricsSample
		var day string
		var sleep, battery, hrv, rhr, stress sql.NullFloat64
		if err := rows.Scan(&day, &sleep, &battery, &hrv, &rhr, &stress, &r.SubjectiveFatigue); err != nil {
			return nil, err
		}
		if r.Date, err = model.ParseDay(day); err != nil {
			return nil, err
		}
		r.SleepScore = fromNullFloat(sleep)
		r.BodyBattery = fromNullFloat(battery)
		r.HRV = fromNullFloat(hrv)
		r.RestingHR = fromNullFloat(rhr)
		r.StressLevel = fromNullFloat(stress)
		samples = append(samples, r)
	}
	return samples, rows.Err()
}
