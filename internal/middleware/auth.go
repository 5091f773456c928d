package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/BayRex1/bayrex-apk/internal/session"
)

const sessionLocal = "session"

// RequireAdmin guards catalog mutations. The session token is read from the
// session cookie and checked against the server-side store.
func RequireAdmin(guard *session.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := guard.Require(c.UserContext(), c.Cookies(session.CookieName))
		if err != nil {
			return err
		}
		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

// CurrentSession returns the session stored by RequireAdmin, or nil.
func CurrentSession(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionLocal).(*session.Session)
	return s
}
