package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// fixed-width so updated_at sorts lexically
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SavePlan inserts or replaces a plan. A plan without an ID gets a new
// one; the stored ID is returned.
func (db *DB) SavePlan(ctx context.Context, p model.Plan) (string, error) {
	if p.UserID == "" {
		return "", errors.New("plan has no user id")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	data, err := json.Marshal(p.Workouts)
	if err != nil {
		return "", fmt.Errorf("encoding plan workouts: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO plans (id, user_id, workouts, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			workouts = excluded.workouts,
			updated_at = excluded.updated_at
	`, p.ID, p.UserID, string(data), time.Now().UTC().Format(timestampLayout))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// GetPlan retrieves a plan by ID
func (db *DB) GetPlan(ctx context.Context, id string) (model.Plan, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, workouts FROM plans WHERE id = ?
	`, id)
	return scanPlan(row)
}

// LatestPlan returns the most recently saved plan for userID
func (db *DB) LatestPlan(ctx context.Context, userID string) (model.Plan, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, workouts FROM plans
		WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC
		LIMIT 1
	`, userID)
	return scanPlan(row)
}

func scanPlan(row *sql.Row) (model.Plan, error) {
	var id, userID, data string
	err := row.Scan(&id, &userID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return model.Plan{}, err
	}

	var workouts []model.PlannedWorkout
	if err := json.Unmarshal([]byte(data), &workouts); err != nil {
		return model.Plan{}, fmt.Errorf("decoding plan %s: %w", id, err)
	}
	return model.NewPlan(id, userID, workouts)
}
