package config

import (
	"strconv"
	"strings"
	"time"
)

// env wraps a lookup function with typed accessors. Unparseable values fall
// back to the default.
type env func(string) string

func (e env) str(k, d string) string {
	if v := strings.TrimSpace(e(k)); v != "" {
		return v
	}
	return d
}

func (e env) bool(k string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(e(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func (e env) int(k string, d int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(e(k))); err == nil {
		return n
	}
	return d
}

func (e env) dur(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(e(k))); err == nil {
		return v
	}
	return d
}
