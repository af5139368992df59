package models

// UserProfile — профиль пользователя, связь один-к-одному с User.
// Создаётся при регистрации или лениво при первом заходе на страницу профиля.
type UserProfile struct {
	UserID  int64  `json:"user_id"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
