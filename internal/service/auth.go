package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/online-store/internal/domain/models"
	security "github.com/linemk/online-store/internal/jwt-new"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// время жизни токена сброса пароля
const resetTokenTTL = time.Hour

type AuthService struct {
	log         *slog.Logger
	userRepo    storage.UserStorage
	profileRepo storage.ProfileStorage
	sessions    session.Store
	tokenTTL    time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, profileRepo storage.ProfileStorage, sessions session.Store, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:         log,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessions:    sessions,
		tokenTTL:    tokenTTL,
	}
}

type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Register создаёт пользователя вместе с профилем (один профиль на пользователя,
// создание идемпотентно) и сразу выдаёт JWT-токен, как логин после регистрации.
func (a *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (string, error) {
	const op = "auth.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("registering user")

	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	newUser := &models.User{
		Email:     email,
		PassHash:  passHash,
		FirstName: firstName,
		LastName:  lastName,
	}
	user, err := a.userRepo.CreateUser(ctx, newUser)
	if err != nil {
		logger.Error("failed to create user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	// профиль заводится сразу при регистрации
	if _, err := a.profileRepo.EnsureProfile(ctx, user.ID); err != nil {
		logger.Error("failed to ensure profile", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to ensure profile: %w", op, err)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// Login осуществляет аутентификацию пользователя: введённый пароль
// сравнивается с сохранённым хэшированным значением, после успешной
// проверки генерируется JWT-токен (секрет берется из переменной окружения).
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// RequestPasswordReset выписывает одноразовый токен сброса пароля и кладёт его
// в сессионное хранилище с ограниченным временем жизни. Отправка письма вне
// рамок сервиса, токен попадает в лог. Несуществующий email не выдаём наружу.
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "auth.RequestPasswordReset"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("password reset requested for unknown email")
			return "", nil
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	token := uuid.NewString()
	if err := a.sessions.PutToken(ctx, token, strconv.FormatInt(user.ID, 10), resetTokenTTL); err != nil {
		logger.Error("failed to store reset token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to store reset token: %w", op, err)
	}

	logger.Info("password reset token issued", slog.String("token", token))
	return token, nil
}

// ConfirmPasswordReset обменивает одноразовый токен на смену пароля.
// Повторное использование токена невозможно: он изымается при первом обращении.
func (a *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "auth.ConfirmPasswordReset"
	logger := a.log.With(slog.String("op", op))

	val, err := a.sessions.TakeToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			logger.Warn("reset token not found or already used")
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to take reset token", slog.Any("error", err))
		return fmt.Errorf("%s: failed to take reset token: %w", op, err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		logger.Error("corrupt reset token payload", slog.Any("error", err))
		return fmt.Errorf("%s: corrupt reset token payload: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	if err := a.userRepo.UpdateUserPassword(ctx, userID, passHash); err != nil {
		logger.Error("failed to update password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to update password: %w", op, err)
	}

	logger.Info("password reset completed", slog.Int64("userID", userID))
	return nil
}
