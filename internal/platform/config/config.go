// Package config assembles runtime configuration from the environment so
// main stays lean. Every knob has a development default; production
// deployments override via OMNIGEST_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr     string
	Workers  int
	LogLevel string

	RetentionDays   int
	MinNoticeYear   int
	PseudonymSecret string

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Gateway     GatewayConfig
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

type GatewayConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CMID         string
}

// FromEnv builds the full configuration. Empty DatabaseURL, Redis.URL,
// Kafka.Brokers or Gateway.BaseURL mean the corresponding subsystem runs
// on its in-memory fallback or stays disabled.
func FromEnv() Config {
	return Config{
		Addr:            envString("OMNIGEST_ADDR", ":8080"),
		Workers:         envInt("OMNIGEST_WORKERS", 4),
		LogLevel:        envString("OMNIGEST_LOG_LEVEL", "info"),
		RetentionDays:   envInt("OMNIGEST_RETENTION_DAYS", 365),
		MinNoticeYear:   envInt("OMNIGEST_MIN_NOTICE_YEAR", 2026),
		PseudonymSecret: os.Getenv("OMNIGEST_PSEUDONYM_SECRET"),
		DatabaseURL:     os.Getenv("OMNIGEST_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("OMNIGEST_REDIS_URL"),
			PoolSize:     envInt("OMNIGEST_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("OMNIGEST_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("OMNIGEST_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("OMNIGEST_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("OMNIGEST_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("OMNIGEST_KAFKA_BROKERS"),
			AuditTopic: envString("OMNIGEST_KAFKA_AUDIT_TOPIC", "omnigest.audit"),
		},
		Gateway: GatewayConfig{
			BaseURL:      os.Getenv("OMNIGEST_ABDM_BASE_URL"),
			ClientID:     os.Getenv("OMNIGEST_ABDM_CLIENT_ID"),
			ClientSecret: os.Getenv("OMNIGEST_ABDM_CLIENT_SECRET"),
			CMID:         envString("OMNIGEST_ABDM_CM_ID", "sbx"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
