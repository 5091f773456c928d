package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var idPattern = regexp.MustCompile(`/(\d+)(?:/|$)`)

const auditNameLocal = "audit_name"

// SetAuditName records the name of the app a handler acted on, for requests
// that carry no name field (deletes).
func SetAuditName(c *fiber.Ctx, name string) {
	c.Locals(auditNameLocal, name)
}

// AuditLogger logs successful admin mutations. It must run after
// RequireAdmin so the acting session is known.
func AuditLogger(log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip non-modifying requests
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return c.Next()
		}

		path := c.Path()
		ip := c.IP()
		userAgent := c.Get(fiber.HeaderUserAgent)
		name := strings.TrimSpace(c.FormValue("name"))

		err := c.Next()

		statusCode := c.Response().StatusCode()
		s := CurrentSession(c)
		if err != nil || statusCode < 200 || statusCode >= 400 || s == nil {
			return err
		}

		if name == "" {
			name, _ = c.Locals(auditNameLocal).(string)
		}
		action := auditAction(method)
		if action == "" {
			return err
		}
		fields := logrus.Fields{
			"audit":      true,
			"action":     action,
			"username":   s.Username,
			"path":       path,
			"ip":         ip,
			"user_agent": userAgent,
		}
		if id := extractIDFromPath(path); id != "" {
			fields["app_id"] = id
		}
		if name != "" {
			fields["app_name"] = name
		}
		log.WithFields(fields).Info(describe(action, name))
		return err
	}
}

func auditAction(method string) string {
	switch method {
	case fiber.MethodPost:
		return "create"
	case fiber.MethodPut, fiber.MethodPatch:
		return "update"
	case fiber.MethodDelete:
		return "delete"
	}
	return ""
}

func describe(action, name string) string {
	verb := map[string]string{
		"create": "Created",
		"update": "Updated",
		"delete": "Deleted",
	}[action]
	if name != "" {
		return verb + " app \"" + name + "\""
	}
	return verb + " app"
}

// extractIDFromPath gets the numeric ID from URL path
func extractIDFromPath(path string) string {
	matches := idPattern.FindStringSubmatch(path)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}
