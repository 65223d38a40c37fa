package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the variable, or def when it is unset or empty.
func EnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns the variable parsed as an int, or def when it is unset or
// not a number.
func EnvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

// EnvBool is EnvInt for booleans (strconv.ParseBool syntax).
func EnvBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

// EnvDuration is EnvInt for durations such as "90s" or "1h".
func EnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// EnvSet splits a comma separated variable into a set, dropping blanks.
func EnvSet(key string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			set[item] = true
		}
	}
	return set
}
