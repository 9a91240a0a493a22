package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

// LogEvent logs an event with structured data
func LogEvent(eventType string, data map[string]interface{}) {
	fmt.Printf("[%s] %+v\n", eventType, data)
}

// Pointer returns a pointer to the given value
func Pointer[T any](v T) *T {
	return &v
}

// ErrorResponse creates a standardized error response. Server-side
// failures are also reported to Sentry when it is configured.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	if status >= fiber.StatusInternalServerError && err != nil {
		sentry.CaptureException(err)
	}
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseUint safely parses a string to uint
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a listing title.
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

var fileNameStrip = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// NormalizeFileName makes an uploaded file name safe for an object path.
func NormalizeFileName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = fileNameStrip.ReplaceAllString(name, "")
	if name == "" {
		return "file"
	}
	return name
}
