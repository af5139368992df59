package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/online-store/internal/storage"
)

// ProfileInfo — контактные данные пользователя вместе с полями профиля.
type ProfileInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// ProfileUpdate — изменяемые поля; пустое поле оставляет прежнее значение.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
}

type ProfileService interface {
	GetProfile(ctx context.Context, userID int64) (*ProfileInfo, error)
	UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*ProfileInfo, error)
}

type profileService struct {
	log         *slog.Logger
	userRepo    storage.UserStorage
	profileRepo storage.ProfileStorage
}

func NewProfileService(log *slog.Logger, userRepo storage.UserStorage, profileRepo storage.ProfileStorage) ProfileService {
	return &profileService{
		log:         log,
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// GetProfile возвращает профиль, создавая его при первом обращении,
// если регистрация прошла без него. Повторные вызовы дубликатов не создают.
func (s *profileService) GetProfile(ctx context.Context, userID int64) (*ProfileInfo, error) {
	const op = "service.ProfileService.GetProfile"

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get user", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	profile, err := s.profileRepo.EnsureProfile(ctx, userID)
	if err != nil {
		s.log.Error("failed to ensure profile", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to ensure profile: %w", op, err)
	}

	return &ProfileInfo{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     profile.Phone,
		Address:   profile.Address,
	}, nil
}

// UpdateProfile обновляет контактные данные пользователя и поля профиля.
// Незаполненные поля формы сохраняют текущие значения.
func (s *profileService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*ProfileInfo, error) {
	const op = "service.ProfileService.UpdateProfile"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	current, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName == "" {
		upd.FirstName = current.FirstName
	}
	if upd.LastName == "" {
		upd.LastName = current.LastName
	}
	if upd.Email == "" {
		upd.Email = current.Email
	}
	if upd.Phone == "" {
		upd.Phone = current.Phone
	}
	if upd.Address == "" {
		upd.Address = current.Address
	}

	if err := s.userRepo.UpdateUserContact(ctx, userID, upd.FirstName, upd.LastName, upd.Email); err != nil {
		logger.Error("failed to update user contact", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update user contact: %w", op, err)
	}

	profile, err := s.profileRepo.EnsureProfile(ctx, userID)
	if err != nil {
		logger.Error("failed to ensure profile", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to ensure profile: %w", op, err)
	}
	profile.Phone = upd.Phone
	profile.Address = upd.Address
	if err := s.profileRepo.UpdateProfile(ctx, profile); err != nil {
		logger.Error("failed to update profile", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update profile: %w", op, err)
	}

	logger.Info("profile updated")
	return &ProfileInfo{
		FirstName: upd.FirstName,
		LastName:  upd.LastName,
		Email:     upd.Email,
		Phone:     upd.Phone,
		Address:   upd.Address,
	}, nil
}
