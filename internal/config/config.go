// Package config reads process settings from the environment. Binaries
// import github.com/joho/godotenv/autoload so a local .env file is honoured.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds every tunable of the server and the historian.
type Config struct {
	Port     string
	LogLevel logrus.Level

	CountdownSeconds int
	CountdownTick    time.Duration

	AllowedOrigins []string
	WSSendBuffer   int
	WSMsgRate      float64
	WSMsgBurst     int

	RedisAddr    string
	RedisDB      int
	ResultsQueue string

	DatabaseURL string

	HistorianBatchSize int
	HistorianFlush     time.Duration

	ShutdownTimeout time.Duration
}

// Load reads the environment. Malformed values fall back to their defaults.
func Load() Config {
	return Config{
		Port:               getEnv("PORT", "3001"),
		LogLevel:           getEnvLevel("LOG_LEVEL", logrus.InfoLevel),
		CountdownSeconds:   getEnvInt("COUNTDOWN_SECONDS", 3),
		CountdownTick:      getEnvDuration("COUNTDOWN_TICK", time.Second),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		WSSendBuffer:       getEnvInt("WS_SEND_BUFFER", 64),
		WSMsgRate:          getEnvFloat("WS_MSG_RATE", 30),
		WSMsgBurst:         getEnvInt("WS_MSG_BURST", 60),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		ResultsQueue:       getEnv("RESULTS_QUEUE", "typerace_results"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as a non-negative integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvLevel(key string, def logrus.Level) logrus.Level {
	lvl, err := logrus.ParseLevel(os.Getenv(key))
	if err != nil {
		return def
	}
	return lvl
}

func getEnvList(key string, def []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
