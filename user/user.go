package user

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Preferences is the free-form settings document kept on a user. It is always
// stored and replaced as a whole.
type Preferences map[string]interface{}

type User struct {
	Name           string      `json:"name" bson:"name"`
	Email          string      `json:"email" bson:"email"`
	HashedPassword string      `json:"-" bson:"hashedpw"`
	IsAdmin        bool        `json:"isAdmin" bson:"isAdmin"`
	Preferences    Preferences `json:"preferences,omitempty" bson:"preferences,omitempty"`
}

// Session binds a user to the token issued at login. UserId holds the
// user's email.
type Session struct {
	UserId string `json:"userId" bson:"user_id"`
	Jwt    string `json:"jwt" bson:"jwt"`
}

/*
 * Incoming user details used to register a `User`
 */
type UserDetail struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewUser(details *UserDetail) (*User, error) {
	if details == nil || details.Email == "" || details.Password == "" {
		return nil, ErrMissingUserDetails
	}
	//email is always lowercase
	email := strings.ToLower(strings.TrimSpace(details.Email))

	pwHash, err := GeneratePasswordHash(details.Password)
	if err != nil {
		return nil, err
	}
	name := details.Name
	if name == "" {
		name = email
	}
	return &User{Name: name, Email: email, HashedPassword: pwHash}, nil
}

func (u *User) EmailsMatch(email string) bool {
	return strings.EqualFold(u.Email, email)
}

func (u *User) PwsMatch(pw string) bool {
	if pw == "" {
		return false
	}
	return PasswordMatches(u.HashedPassword, pw)
}

func getUserDetail(req *http.Request) (*UserDetail, error) {
	ud := &UserDetail{}
	if req.ContentLength == 0 || req.Body == nil {
		return nil, ErrMissingUserDetails
	}
	if err := json.NewDecoder(req.Body).Decode(ud); err != nil {
		return nil, err
	}
	return ud, nil
}
