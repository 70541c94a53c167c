package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the trimmed value of name, or "" when unset.
func String(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

// First returns the first non-empty value among names.
func First(names ...string) string {
	for _, n := range names {
		if v := String(n); v != "" {
			return v
		}
	}
	return ""
}

// List splits a comma separated value, dropping empty entries.
func List(name string) []string {
	var out []string
	for _, p := range strings.Split(String(name), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Int(name string, def int) int {
	v := String(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Float(name string, def float64) float64 {
	v := String(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func Bool(name string, def bool) bool {
	switch strings.ToLower(String(name)) {
	case "":
		return def
	case "1", "t", "true", "y", "yes", "on":
		return true
	case "0", "f", "false", "n", "no", "off":
		return false
	}
	return def
}

// Duration accepts Go durations ("90s") or integer seconds.
func Duration(name string, def time.Duration) time.Duration {
	v := String(name)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
