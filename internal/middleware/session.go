package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	"github.com/pp-coaching/coaching-api/internal/session"
	"github.com/pp-coaching/coaching-api/pkg/config"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/logger"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

const (
	// ContextResolverKey holds the per-request *session.Resolver.
	ContextResolverKey = "sessionResolver"
	// ContextStudentKey holds the *models.ActiveStudent admitted by the student guard.
	ContextStudentKey = "currentStudent"
)

// SessionDeps wires the session middleware.
type SessionDeps struct {
	Auth     AdminAuthenticator
	Verifier session.StudentVerifier
	Config   config.SessionConfig
	Metrics  *service.MetricsService
	Logger   *zap.Logger
}

// Session starts a resolver for every request. The admin branch follows the bearer token and the
// student branch follows the signed portal cookie; neither waits for the other.
func Session(deps SessionDeps) gin.HandlerFunc {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		resolver := session.NewResolver(session.Options{
			Auth:       newBearerProvider(c, deps.Auth, log),
			Store:      newStudentCookieStore(c, deps.Config, log),
			Verifier:   deps.Verifier,
			Logger:     log,
			Retries:    deps.Config.LoginRetries,
			RetryDelay: deps.Config.LoginRetryDelay,
		})
		resolver.Start()
		defer resolver.Close()

		c.Set(ContextResolverKey, resolver)
		c.Next()
		c.Set(logger.SessionStateKey, resolver.Identity().State().String())
	}
}

// ResolverFrom returns the request's resolver.
func ResolverFrom(c *gin.Context) *session.Resolver {
	value, ok := c.Get(ContextResolverKey)
	if !ok {
		return nil
	}
	resolver, _ := value.(*session.Resolver)
	return resolver
}

// StudentFrom returns the student admitted by the student guard.
func StudentFrom(c *gin.Context) *models.ActiveStudent {
	value, ok := c.Get(ContextStudentKey)
	if !ok {
		return nil
	}
	student, _ := value.(*models.ActiveStudent)
	return student
}

// Guard admits a request once the branch for class has settled. A branch still unresolved when
// the resolve timeout elapses yields 503 with Retry-After; an anonymous branch is sent to the
// login entry point.
func Guard(class session.RouteClass, cfg config.SessionConfig, metrics *service.MetricsService) gin.HandlerFunc {
	timeout := cfg.ResolveTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(c *gin.Context) {
		if class == session.RoutePublic {
			c.Next()
			return
		}
		resolver := ResolverFrom(c)
		if resolver == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session middleware not installed"))
			c.Abort()
			return
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		_ = resolver.Wait(ctx, class)
		cancel()
		decision := session.Decide(class, resolver)
		metrics.ObserveSessionWait(class.String(), decision.String(), time.Since(start))

		switch decision {
		case session.Loading:
			response.Pending(c, appErrors.ErrSessionPending, timeout)
			return
		case session.Redirect:
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, loginPath)
				c.Abort()
				return
			}
			response.Unauthenticated(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"), loginPath)
			return
		}

		switch class {
		case session.RouteAdmin:
			_, principal := resolver.AdminBranch()
			c.Set(ContextUserKey, &models.JWTClaims{
				UserID:   principal.UserID,
				Role:     principal.Role,
				Email:    principal.Email,
				FullName: principal.FullName,
			})
		case session.RouteStudent:
			_, student := resolver.StudentBranch()
			c.Set(ContextStudentKey, student)
		}
		c.Next()
	}
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
