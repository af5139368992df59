package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/online-store/internal/domain/models"
)

// ProfileStorage описывает методы для работы с профилями пользователей.
type ProfileStorage interface {
	// EnsureProfile создает профиль, если его ещё нет, и возвращает его.
	// Операция идемпотентна: повторный вызов не плодит дубликатов.
	EnsureProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, profile *models.UserProfile) error
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileStorage {
	return &profileRepository{db: db}
}

func (r *profileRepository) EnsureProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user_profiles (user_id, phone, address) VALUES ($1, '', '') ON CONFLICT (user_id) DO NOTHING",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}

	profile := &models.UserProfile{}
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, phone, address FROM user_profiles WHERE user_id = $1", userID)
	if err := row.Scan(&profile.UserID, &profile.Phone, &profile.Address); err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) UpdateProfile(ctx context.Context, profile *models.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_profiles SET phone = $1, address = $2 WHERE user_id = $3",
		profile.Phone, profile.Address, profile.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}
