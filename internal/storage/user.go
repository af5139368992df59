package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/linemk/online-store/internal/domain/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUserContact(ctx context.Context, id int64, firstName, lastName, email string) error
	UpdateUserPassword(ctx context.Context, id int64, passHash []byte) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

// получение уже существующего пользователя
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, pass_hash, first_name, last_name, created_at FROM users WHERE email = $1", email)
	if err := row.Scan(&user.ID, &user.Email, &user.PassHash, &user.FirstName, &user.LastName, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, email, pass_hash, first_name, last_name, created_at FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.Email, &user.PassHash, &user.FirstName, &user.LastName, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (email, pass_hash, first_name, last_name, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id",
		user.Email, user.PassHash, user.FirstName, user.LastName,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return nil, ErrEmailTaken
			}
		}
		return nil, err
	}
	user.ID = id
	return user, nil
}

func (r *userRepository) UpdateUserContact(ctx context.Context, id int64, firstName, lastName, email string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET first_name = $1, last_name = $2, email = $3 WHERE id = $4",
		firstName, lastName, email, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateUserPassword(ctx context.Context, id int64, passHash []byte) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET pass_hash = $1 WHERE id = $2", passHash, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
