package manager

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// The JWT issuer
	issuer = "momentary"
	// The cookie carrying the session token
	SessionCookieName = "momentary_session"
)

type SessionClaims struct {
	UserID      int64  `json:"uid"`
	DisplayName string `json:"displayName"`
	jwt.RegisteredClaims
}

type SessionManager interface {
	Generate(userID int64, displayName string) (string, error)
	Verify(token string) (*SessionClaims, error)
}

type sessionManager struct {
	logger *zap.SugaredLogger
	secret []byte
	ttl    time.Duration
}

func NewSessionManager(logger *zap.SugaredLogger, secret string, ttl time.Duration) SessionManager {
	return &sessionManager{
		logger: logger,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (s *sessionManager) Generate(userID int64, displayName string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *sessionManager) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsedToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.Debugf("Received an unverifiable token: %v", err)
		return nil, err
	}
	if !parsedToken.Valid {
		return nil, fmt.Errorf("received an invalid token")
	}

	return claims, nil
}
