// Package domain holds the records shared between the bot, its services and repositories.
package domain

import "time"

// User is a Telegram user who has talked to the bot.
type User struct {
	ID           int64
	TelegramID   int64
	FirstName    string
	LastName     string
	Username     string
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// DisplayName returns the best available human name for u.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return ""
	}
}
