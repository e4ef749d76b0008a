package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Helpers for optional variables.  Malformed values fall back to the
// default rather than aborting; only must() is fatal.

func envStr(k, def string) string {
    if v := strings.TrimSpace(os.Getenv(k)); v != "" {
        return v
    }
    return def
}

func envBool(k string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(k string, def int) int {
    n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
    if err != nil {
        return def
    }
    return n
}

func envDur(k string, def time.Duration) time.Duration {
    d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
    if err != nil {
        return def
    }
    return d
}

func atLeast(v, floor int) int {
    if v < floor {
        return floor
    }
    return v
}
