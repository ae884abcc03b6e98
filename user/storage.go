package user

import (
	"context"
)

// Storage is the single gateway for user and session persistence.
//
// Lookups return (nil, nil) when nothing matches. Session deletes are fail
// soft: errors are logged and reported as "nothing removed".
//
//go:generate mockgen -source=./storage.go -destination=./storage_mock.go -package user Storage
type Storage interface {
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
	AddUser(ctx context.Context, user *User) error
	CreateUserSession(ctx context.Context, userId, jwt string) error
	GetUser(ctx context.Context, email string) (*User, error)
	GetUserSession(ctx context.Context, userId string) (*Session, error)
	DeleteUserSessions(ctx context.Context, userId string) bool
	DeleteUser(ctx context.Context, email string) bool
	UpdateUserPreferences(ctx context.Context, email string, prefs Preferences) (bool, error)
}
