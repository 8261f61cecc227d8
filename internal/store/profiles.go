package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/davidjes1/trAIn-sub002/internal/model"
)

// ErrProfileNotFound is returned when no profile is stored for a user
var ErrProfileNotFound = errors.New("profile not found")

// SaveProfile stores or replaces the athlete profile
func (db *DB) SaveProfile(ctx context.Context, p model.UserTrainingProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, p.UserID, string(data))
	return err
}

// GetProfile retrieves the profile for userID
func (db *DB) GetProfile(ctx context.Context, userID string) (model.UserTrainingProfile, error) {
	var data string
	err := db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserTrainingProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return model.UserTrainingProfile{}, err
	}

	var p model.UserTrainingProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return model.UserTrainingProfile{}, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return p, nil
}
