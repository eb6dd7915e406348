package entities

import "time"

// User represents user information
type User struct {
	ID       int       `gorm:"primaryKey;autoIncrement;column:id"`
	Username string    `gorm:"size:50;not null;column:username"`
	Email    string    `gorm:"size:255;not null;uniqueIndex:users_email_idx;column:email"`
	CreateAt time.Time `gorm:"column:create_at;default:CURRENT_TIMESTAMP;not null"`
	Block    bool      `gorm:"column:block"`
}

func (User) TableName() string {
	return "users"
}
