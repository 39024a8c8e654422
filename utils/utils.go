package utils

import (
	"os"
	"regexp"
	"strings"
)

var jwtSecret = []byte(getEnvOrDefault("JWT_SECRET_KEY", "dev-secret"))

func GetJWTSecret() []byte {
	return jwtSecret
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and collapses everything that is not a letter
// or digit into single hyphens.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
