package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides overwrites fields whose DEPTHBOOK_* variable is set and non-empty.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Feed.URL, "DEPTHBOOK_FEED_URL")
	setStringSlice(&cfg.Feed.Symbols, "DEPTHBOOK_FEED_SYMBOLS")
	setInt(&cfg.Feed.Depth, "DEPTHBOOK_FEED_DEPTH")
	setDuration(&cfg.Feed.ThrottleInterval, "DEPTHBOOK_FEED_THROTTLE_INTERVAL")
	setDuration(&cfg.Feed.ReconnectDelay, "DEPTHBOOK_FEED_RECONNECT_DELAY")
	setDuration(&cfg.Feed.HandshakeTimeout, "DEPTHBOOK_FEED_HANDSHAKE_TIMEOUT")
	setDuration(&cfg.Feed.PingInterval, "DEPTHBOOK_FEED_PING_INTERVAL")

	setInt(&cfg.History.Size, "DEPTHBOOK_HISTORY_SIZE")

	setStr(&cfg.Logging.Level, "DEPTHBOOK_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "DEPTHBOOK_LOG_FORMAT")
	setStr(&cfg.Logging.Output, "DEPTHBOOK_LOG_OUTPUT")
	setInt(&cfg.Logging.MaxSizeMB, "DEPTHBOOK_LOG_MAX_SIZE_MB")
	setInt(&cfg.Logging.MaxAgeDays, "DEPTHBOOK_LOG_MAX_AGE_DAYS")
	setInt(&cfg.Logging.MaxBackups, "DEPTHBOOK_LOG_MAX_BACKUPS")
	setBool(&cfg.Logging.Compress, "DEPTHBOOK_LOG_COMPRESS")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
