package store

import "time"

type User struct {
	UserID    string    `gorm:"column:user_id;type:text;primaryKey" json:"userId"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`
	Email     string    `gorm:"column:email;type:text;not null" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (User) TableName() string { return "users" }

// ChatExchange is one user message paired with the reply generated for it.
type ChatExchange struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"column:user_id;type:text;not null;index" json:"userId"`
	Message   string    `gorm:"column:message;type:text;not null" json:"message"`
	Reply     string    `gorm:"column:reply;type:text;not null" json:"reply"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (ChatExchange) TableName() string { return "chats" }
