package env

import "os"

// Get reads an environment variable, treating unset and empty the
// same and returning fallback for both.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
