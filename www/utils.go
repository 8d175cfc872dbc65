package www

import (
	"net/url"
	"strconv"
)

// intOrDefault returns the positive integer query parameter key, or defaultValue.
func intOrDefault(u *url.URL, key string, defaultValue int) int {
	if v := u.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}
