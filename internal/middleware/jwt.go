package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	"github.com/pp-coaching/coaching-api/internal/session"
)

// ContextUserKey is the gin context key storing JWT claims of the signed-in administrator.
const ContextUserKey = "currentUser"

// AdminAuthenticator is the slice of the auth service the bearer provider relies on.
type AdminAuthenticator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	ActiveUser(ctx context.Context, userID string) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	SignOutAll(ctx context.Context, userID string, meta service.AuditMeta) error
}

// bearerProvider adapts the Authorization header of one request to session.AuthProvider.
// The token is checked in the background: the signature first, then the account is reloaded so a
// deactivated administrator stops resolving before the token expires.
type bearerProvider struct {
	c      *gin.Context
	auth   AdminAuthenticator
	logger *zap.Logger
}

func newBearerProvider(c *gin.Context, auth AdminAuthenticator, logger *zap.Logger) *bearerProvider {
	return &bearerProvider{c: c, auth: auth, logger: logger}
}

// Subscribe implements session.AuthProvider.
func (p *bearerProvider) Subscribe(fn func(*session.AdminPrincipal)) func() {
	token := bearerToken(p.c)
	if token == "" || p.auth == nil {
		fn(nil)
		return func() {}
	}

	ctx, cancel := context.WithCancel(p.c.Request.Context())
	go func() {
		principal := p.resolve(ctx, token)
		if ctx.Err() != nil {
			return
		}
		fn(principal)
	}()
	return cancel
}

func (p *bearerProvider) resolve(ctx context.Context, token string) *session.AdminPrincipal {
	claims, err := p.auth.ValidateToken(token)
	if err != nil {
		p.logger.Debug("rejecting bearer token", zap.Error(err))
		return nil
	}
	user, err := p.auth.ActiveUser(ctx, claims.UserID)
	if err != nil {
		p.logger.Warn("bearer token owner not usable", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil
	}
	return &session.AdminPrincipal{UserID: user.ID, Email: user.Email, FullName: user.FullName, Role: user.Role}
}

// SignIn implements session.AuthProvider.
func (p *bearerProvider) SignIn(ctx context.Context, email, password string) (*session.AdminPrincipal, error) {
	resp, err := p.auth.Login(ctx, models.LoginRequest{
		Email:     email,
		Password:  password,
		IP:        p.c.ClientIP(),
		UserAgent: p.c.GetHeader("User-Agent"),
	})
	if err != nil {
		return nil, err
	}
	return &session.AdminPrincipal{
		UserID:   resp.User.ID,
		Email:    resp.User.Email,
		FullName: resp.User.FullName,
		Role:     resp.User.Role,
		Issued:   resp,
	}, nil
}

// SignOut implements session.AuthProvider.
func (p *bearerProvider) SignOut(ctx context.Context, principal session.AdminPrincipal) error {
	return p.auth.SignOutAll(ctx, principal.UserID, AuditMetaFrom(p.c))
}

// AuditMetaFrom collects the acting administrator and client details of a request.
func AuditMetaFrom(c *gin.Context) service.AuditMeta {
	meta := service.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := ClaimsFrom(c); claims != nil {
		meta.UserID = claims.UserID
	}
	return meta
}

// ClaimsFrom returns the administrator claims set by the admin guard.
func ClaimsFrom(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
