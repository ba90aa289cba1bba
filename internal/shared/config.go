package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// LinkMode selects how the connectivity monitor reads the link layer.
type LinkMode string

const (
	LinkAuto    LinkMode = "auto"
	LinkOnline  LinkMode = "online"
	LinkOffline LinkMode = "offline"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	BackendBase        string
	BackendToken       string
	BackendRPS         int
	BackendTimeout     time.Duration
	BackendReadRetries int

	ProbeInterval time.Duration
	PushURL       string
	WarmPageSize  int
	Link          LinkMode
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer config value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		BackendBase:        strings.TrimRight(env("BACKEND_BASE_URL", "http://localhost:8000"), "/"),
		BackendToken:       env("BACKEND_TOKEN", ""),
		BackendRPS:         atoi("BACKEND_RPS", 10),
		BackendTimeout:     time.Duration(atoi("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		BackendReadRetries: atoi("BACKEND_READ_RETRIES", 2),

		ProbeInterval: time.Duration(atoi("PROBE_INTERVAL_SECONDS", 5)) * time.Second,
		PushURL:       env("PUSH_WS_URL", ""),
		WarmPageSize:  atoi("WARM_PAGE_SIZE", 10),
		Link:          LinkMode(strings.ToLower(env("LINK_MODE", string(LinkAuto)))),
	}
	switch c.Link {
	case LinkAuto, LinkOnline, LinkOffline:
	default:
		log.Warn().Str("mode", string(c.Link)).Msg("unknown LINK_MODE, using auto")
		c.Link = LinkAuto
	}
	if c.BackendToken == "" {
		log.Warn().Msg("BACKEND_TOKEN is empty, requests are anonymous")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
