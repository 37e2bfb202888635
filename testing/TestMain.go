// Package testing seeds the environment for package tests. Import it for its
// side effects only.
package testing

import "os"

var defaults = map[string]string{
	"SOCIETYHUB_TEST_MODE": "true",
	"SESSION_SECRET":       "test-session-secret",
	"CSRF_SECRET":          "test-csrf-secret",
}

func init() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}
