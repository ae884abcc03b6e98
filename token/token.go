package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

type (
	SessionToken struct {
		ID        string `json:"-"`
		UserID    string `json:"userId"`
		Duration  int64  `json:"-"`
		ExpiresAt int64  `json:"expiresAt"`
		CreatedAt int64  `json:"-"`
	}

	TokenData struct {
		UserId       string `json:"userid"`
		Name         string `json:"name"`
		IsAdmin      bool   `json:"isAdmin"`
		DurationSecs int64  `json:"-"`
		ExpiresAt    int64  `json:"expiresAt"`
	}

	TokenConfig struct {
		Secret       string
		DurationSecs int64
	}
)

const (
	MARQUEE_SESSION_TOKEN = "x-marquee-session-token"
	// MARQUEE_TRACE_SESSION Session trace: uuid v4
	MARQUEE_TRACE_SESSION = "x-marquee-trace-session"
	// MARQUEE_REQUEST_ID one request: uuid
	MARQUEE_REQUEST_ID = "x-marquee-request-id"

	defaultDurationSecs = 24 * 60 * 60
)

var (
	SessionToken_error_no_userid = errors.New("SessionToken: userId not set")
	SessionToken_invalid         = errors.New("SessionToken: is invalid")
	SessionToken_error_no_secret = errors.New("SessionToken: secret not set")
)

func UnpackSessionTokenAndVerify(id string, secret string) (*TokenData, error) {
	if id == "" {
		return nil, SessionToken_error_no_userid
	}

	jwtToken, err := jwt.Parse(id, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, SessionToken_invalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !jwtToken.Valid {
		return nil, SessionToken_invalid
	}

	claims, ok := jwtToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, SessionToken_invalid
	}
	userId, ok := claims["usr"].(string)
	if !ok || userId == "" {
		return nil, SessionToken_error_no_userid
	}
	name, ok := claims["name"].(string)
	if !ok {
		name = userId
	}
	isAdmin, _ := claims["adm"].(bool)

	return &TokenData{
		UserId:       userId,
		Name:         name,
		IsAdmin:      isAdmin,
		DurationSecs: numericClaim(claims["dur"]),
		ExpiresAt:    numericClaim(claims["exp"]),
	}, nil
}

// numeric claims come back from JSON as float64
func numericClaim(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func CreateSessionToken(data *TokenData, config TokenConfig) (*SessionToken, error) {
	if data.UserId == "" {
		return nil, SessionToken_error_no_userid
	}
	if config.Secret == "" {
		return nil, SessionToken_error_no_secret
	}

	if data.DurationSecs == 0 {
		data.DurationSecs = config.DurationSecs
	}
	if data.DurationSecs == 0 {
		data.DurationSecs = defaultDurationSecs
	}

	now := time.Now()
	createdAt := now.Unix()
	expiresAt := now.Add(time.Duration(data.DurationSecs) * time.Second).Unix()

	claims := jwt.MapClaims{
		"usr": data.UserId,
		"adm": data.IsAdmin,
		"dur": data.DurationSecs,
		"exp": expiresAt,
		"iat": createdAt,
		"jti": uuid.New().String(),
	}
	if data.Name != "" {
		claims["name"] = data.Name
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Secret))
	if err != nil {
		return nil, err
	}
	data.ExpiresAt = expiresAt

	return &SessionToken{
		ID:        tokenString,
		UserID:    data.UserId,
		Duration:  data.DurationSecs,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}
