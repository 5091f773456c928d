package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/BayRex1/bayrex-apk/internal/session"
)

type AuthHandler struct {
	guard      *session.Guard
	production bool
	log        logrus.FieldLogger
}

func NewAuthHandler(guard *session.Guard, production bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{guard: guard, production: production, log: log}
}

// Login handles admin login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req session.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
	}

	token, s, err := h.guard.Login(c.UserContext(), req)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"ip":       c.IP(),
			"username": req.Username,
		}).WithError(err).Warn("Admin login failed")
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.production,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	h.log.WithFields(logrus.Fields{
		"ip":       c.IP(),
		"username": s.Username,
	}).Info("Admin logged in")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in successfully",
		"data": fiber.Map{
			"username": s.Username,
		},
	})
}

// Logout destroys the current session, if any
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.guard.Logout(c.UserContext(), c.Cookies(session.CookieName)); err != nil {
		return err
	}
	c.ClearCookie(session.CookieName)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// CheckAuth reports whether the caller holds a live admin session
func (h *AuthHandler) CheckAuth(c *fiber.Ctx) error {
	s, ok := h.guard.Check(c.UserContext(), c.Cookies(session.CookieName))
	if !ok {
		return c.JSON(fiber.Map{
			"success":       true,
			"authenticated": false,
		})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"authenticated": true,
		"data": fiber.Map{
			"username": s.Username,
		},
	})
}
