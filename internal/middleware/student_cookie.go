package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/session"
	"github.com/pp-coaching/coaching-api/pkg/config"
)

const studentCookieIssuer = "coaching-portal"

type studentCookieClaims struct {
	Blob string `json:"stu"`
	jwt.RegisteredClaims
}

// studentCookieStore keeps the student blob in a signed cookie. A cookie whose signature or
// expiry does not check out reads as absent.
type studentCookieStore struct {
	c      *gin.Context
	cfg    config.SessionConfig
	logger *zap.Logger

	overridden bool
	value      string
}

func newStudentCookieStore(c *gin.Context, cfg config.SessionConfig, logger *zap.Logger) *studentCookieStore {
	return &studentCookieStore{c: c, cfg: cfg, logger: logger}
}

// Get implements session.LocalStore.
func (s *studentCookieStore) Get(key string) (string, bool) {
	if key != session.StorageKey {
		return "", false
	}
	if s.overridden {
		return s.value, s.value != ""
	}
	raw, err := s.c.Cookie(s.cfg.StudentCookieName)
	if err != nil || raw == "" {
		return "", false
	}
	claims := &studentCookieClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.StudentSecret), nil
	}, jwt.WithIssuer(studentCookieIssuer))
	if err != nil {
		s.logger.Warn("ignoring invalid student session cookie", zap.Error(err))
		return "", false
	}
	return claims.Blob, true
}

// Set implements session.LocalStore.
func (s *studentCookieStore) Set(key, value string) error {
	if key != session.StorageKey {
		return fmt.Errorf("unsupported session key %q", key)
	}
	now := time.Now().UTC()
	claims := &studentCookieClaims{
		Blob: value,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    studentCookieIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.StudentTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.StudentSecret))
	if err != nil {
		return fmt.Errorf("sign student session: %w", err)
	}
	s.write(signed, int(s.cfg.StudentTTL.Seconds()))
	s.overridden, s.value = true, value
	return nil
}

// Remove implements session.LocalStore.
func (s *studentCookieStore) Remove(key string) error {
	if key != session.StorageKey {
		return nil
	}
	s.write("", -1)
	s.overridden, s.value = true, ""
	return nil
}

func (s *studentCookieStore) write(value string, maxAge int) {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(s.cfg.StudentCookieName, value, maxAge, "/", "", s.cfg.SecureCookies, true)
}
