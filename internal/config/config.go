package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server settings, all read from the environment.
type Config struct {
	Port          string
	BackendURL    string
	DataDir       string
	FrameInterval time.Duration
	// Demo serves a generated planet instead of the backend's textures.
	Demo     bool
	DemoSeed int64
	// NoCache disables the on-disk texture snapshot cache.
	NoCache bool
}

const (
	defaultPort          = "8000"
	defaultBackendURL    = "http://127.0.0.1:8787"
	defaultFrameInterval = 100 * time.Millisecond
	minFrameInterval     = 10 * time.Millisecond
)

// Load reads the configuration. Malformed numbers fall back to their
// defaults with a log line.
func Load() *Config {
	cfg := &Config{
		Port:          defaultPort,
		BackendURL:    defaultBackendURL,
		DataDir:       os.Getenv("DEVTOOLS_DATA_DIR"),
		FrameInterval: defaultFrameInterval,
		DemoSeed:      1,
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if u := os.Getenv("BACKEND_URL"); u != "" {
		cfg.BackendURL = strings.TrimRight(u, "/")
	}
	if ms := os.Getenv("FRAME_INTERVAL_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			log.Printf("config: ignoring FRAME_INTERVAL_MS=%q", ms)
		} else {
			cfg.FrameInterval = max(time.Duration(n)*time.Millisecond, minFrameInterval)
		}
	}
	cfg.Demo = envBool("DEVTOOLS_DEMO")
	cfg.NoCache = envBool("DEVTOOLS_NO_CACHE")
	if s := os.Getenv("DEVTOOLS_DEMO_SEED"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			log.Printf("config: ignoring DEVTOOLS_DEMO_SEED=%q", s)
		} else {
			cfg.DemoSeed = n
		}
	}
	return cfg
}

// Addr is the listen address for the router.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
