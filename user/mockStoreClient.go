package user

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

// MockStoreClient keeps users and sessions in memory with the same semantics
// as the mongo store. With doBad set every call fails the way a lost
// connection would.
type MockStoreClient struct {
	mu       sync.Mutex
	doBad    bool
	users    map[string]*User
	sessions []Session
}

var _ Storage = &MockStoreClient{}

func NewMockStoreClient(doBad bool) *MockStoreClient {
	return &MockStoreClient{doBad: doBad, users: map[string]*User{}}
}

func (d *MockStoreClient) EnsureIndexes(ctx context.Context) error { return nil }

func (d *MockStoreClient) Close(ctx context.Context) error { return nil }

func (d *MockStoreClient) Ping(ctx context.Context) error {
	if d.doBad {
		return errors.New("Session failure")
	}
	return nil
}

func (d *MockStoreClient) AddUser(ctx context.Context, user *User) error {
	if d.doBad {
		return newPersistenceError("add user", errors.New("AddUser failure"))
	}
	if user == nil || user.Email == "" {
		return newPersistenceError("add user", ErrMissingUserDetails)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[user.Email]; exists {
		return newPersistenceError("add user", errDuplicateEmail)
	}
	cpy := *user
	// empty preferences are omitted from the stored document
	if len(user.Preferences) > 0 {
		cpy.Preferences = copyPreferences(user.Preferences)
	} else {
		cpy.Preferences = nil
	}
	d.users[user.Email] = &cpy
	return nil
}

func (d *MockStoreClient) CreateUserSession(ctx context.Context, userId, jwt string) error {
	if d.doBad {
		return newPersistenceError("create session", errors.New("CreateUserSession failure"))
	}
	if userId == "" || jwt == "" {
		return newPersistenceError("create session", ErrMissingSessionDetails)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeSessions(userId)
	d.sessions = append(d.sessions, Session{UserId: userId, Jwt: jwt})
	return nil
}

// InsertSession stores a session without removing the user's others. Tests
// use it to reproduce the interleaving of two concurrent logins.
func (d *MockStoreClient) InsertSession(userId, jwt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, Session{UserId: userId, Jwt: jwt})
}

func (d *MockStoreClient) GetUser(ctx context.Context, email string) (*User, error) {
	if d.doBad {
		return nil, newPersistenceError("get user", errors.New("GetUser failure"))
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	found, ok := d.users[email]
	if !ok {
		return nil, nil
	}
	cpy := *found
	cpy.Preferences = copyPreferences(found.Preferences)
	return &cpy, nil
}

func (d *MockStoreClient) GetUserSession(ctx context.Context, userId string) (*Session, error) {
	if d.doBad {
		return nil, newPersistenceError("get session", errors.New("GetUserSession failure"))
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.sessions {
		if d.sessions[i].UserId == userId {
			found := d.sessions[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (d *MockStoreClient) removeSessions(userId string) int {
	kept := d.sessions[:0]
	removed := 0
	for _, s := range d.sessions {
		if s.UserId == userId {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	d.sessions = kept
	return removed
}

func (d *MockStoreClient) DeleteUserSessions(ctx context.Context, userId string) bool {
	if d.doBad {
		storeLogger.WithField("user_id", userId).Error("DeleteUserSessions failure")
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeSessions(userId) > 0
}

func (d *MockStoreClient) DeleteUser(ctx context.Context, email string) bool {
	if d.doBad {
		storeLogger.WithField("email", email).Error("DeleteUser failure")
		return false
	}
	d.DeleteUserSessions(ctx, email)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[email]; !ok {
		return false
	}
	delete(d.users, email)
	return true
}

func (d *MockStoreClient) UpdateUserPreferences(ctx context.Context, email string, prefs Preferences) (bool, error) {
	if d.doBad {
		return false, newPersistenceError("update preferences", errors.New("UpdateUserPreferences failure"))
	}
	if prefs == nil {
		return false, newPersistenceError("update preferences", ErrPreferencesRequired)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	found, ok := d.users[email]
	if !ok {
		d.users[email] = &User{Email: email, Preferences: copyPreferences(prefs)}
		return true, nil
	}
	if found.Preferences != nil && reflect.DeepEqual(map[string]interface{}(found.Preferences), map[string]interface{}(prefs)) {
		return false, nil
	}
	found.Preferences = copyPreferences(prefs)
	return true, nil
}

func copyPreferences(prefs Preferences) Preferences {
	if prefs == nil {
		return nil
	}
	cpy := make(Preferences, len(prefs))
	for k, v := range prefs {
		cpy[k] = v
	}
	return cpy
}
