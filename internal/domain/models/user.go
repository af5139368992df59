package models

import "time"

// User представляет зарегистрированного пользователя магазина
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	FirstName string
	LastName  string
	CreatedAt time.Time
}
