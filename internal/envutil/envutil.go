package envutil

import (
	"os"
	"strings"
)

// IsDev reports whether TOKEN_PAGE_ENV selects development mode, where
// cookies may be sent over plain HTTP for local testing.
func IsDev() bool {
	env := strings.ToLower(os.Getenv("TOKEN_PAGE_ENV"))
	return env == "development" || env == "dev"
}
