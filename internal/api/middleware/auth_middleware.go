package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/agency-planner/configs"
	"github.com/maheshrc27/agency-planner/pkg/utils"
)

type AuthMiddleware struct {
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (m *AuthMiddleware) renewCookie(c *fiber.Ctx, userID string) {
	now := time.Now()
	token, err := utils.GenerateToken(m.cfg.SecretKey, userID, now, m.cfg.CookieTTL)
	if err != nil {
		slog.Info("could not renew session cookie", "error", err)
		return
	}
	c.Cookie(&fiber.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.cfg.CookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// AuthMiddleware accepts the session cookie or a bearer token and stores
// the user id in c.Locals("user_id"). A cookie past half its lifetime is
// re-issued.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fromCookie := true
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString == "" {
			fromCookie = false
			tokenString = bearerToken(c)
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token or cookie",
			})
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
		if err != nil {
			if fromCookie {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1, // Delete cookie
				})
			}

			slog.Info("token validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if fromCookie && utils.NeedsRenewal(claims, time.Now(), m.cfg.CookieTTL) {
			m.renewCookie(c, claims.UserID)
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
