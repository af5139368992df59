package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session data not found")

// Store — интерфейс сессионного хранилища: непрозрачные блобы с ключом
// (идентификатор сессии, имя). Срок жизни обновляется при каждой записи.
type Store interface {
	Get(ctx context.Context, sessionID, name string) ([]byte, error)
	Set(ctx context.Context, sessionID, name string, value []byte) error
	Delete(ctx context.Context, sessionID, name string) error
	// PutToken сохраняет одноразовый токен (сброс пароля) со своим TTL.
	PutToken(ctx context.Context, token string, value string, ttl time.Duration) error
	// TakeToken возвращает значение токена и сразу удаляет его.
	TakeToken(ctx context.Context, token string) (string, error)
}

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

// ключи в redis неймспейсятся, чтобы данные разных сессий не пересекались
func sessionKey(sessionID, name string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, name)
}

func tokenKey(token string) string {
	return fmt.Sprintf("token:%s", token)
}

func (s *redisStore) Get(ctx context.Context, sessionID, name string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, sessionKey(sessionID, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session data: %w", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, sessionID, name string, value []byte) error {
	if err := s.rdb.Set(ctx, sessionKey(sessionID, name), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session data: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID, name string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID, name)).Err(); err != nil {
		return fmt.Errorf("failed to delete session data: %w", err)
	}
	return nil
}

func (s *redisStore) PutToken(ctx context.Context, token string, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, tokenKey(token), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *redisStore) TakeToken(ctx context.Context, token string) (string, error) {
	val, err := s.rdb.GetDel(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to take token: %w", err)
	}
	return val, nil
}
