package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	NodeIP         string
	Host           string
	Port           string
	AdminHost      string
	AdminPort      string
	AccessCode     string
	AdminKey       string
	SeedsFile      string
	MaxServers     int
	MaxIPs         int
	MaxHashLen     int
	MaxConns       int
	IdleTimeout    time.Duration
	ResolveTimeout time.Duration
	MeshTimeout    time.Duration
	JoinTimeout    time.Duration
	MeshSOCKS5     string
	HealthInterval time.Duration
}

func loadConfig() config {
	// .env is optional; real environment wins over it
	_ = godotenv.Load()

	return config{
		NodeIP:         getEnv("NODE_IP", "::1"),
		Host:           getEnv("TRACKER_HOST", "::"),
		Port:           getEnv("TRACKER_PORT", "7777"),
		AdminHost:      getEnv("ADMIN_HOST", "::1"),
		AdminPort:      getEnv("ADMIN_PORT", "8080"),
		AccessCode:     getEnv("ACCESS_CODE", "password123"),
		AdminKey:       getEnv("ADMIN_API_KEY", ""),
		SeedsFile:      getEnv("SEEDS_FILE", "configs/seeds.yaml"),
		MaxServers:     getEnvInt("MAX_SERVERS", 10),
		MaxIPs:         getEnvInt("MAX_IPS", 10),
		MaxHashLen:     getEnvInt("MAX_HASH_LEN", 1000),
		MaxConns:       getEnvInt("MAX_CONNS", 256),
		IdleTimeout:    getEnvDuration("IDLE_TIMEOUT", 30*time.Second),
		ResolveTimeout: getEnvDuration("RESOLVE_TIMEOUT", 5*time.Second),
		MeshTimeout:    getEnvDuration("MESH_TIMEOUT", 3*time.Second),
		JoinTimeout:    getEnvDuration("JOIN_TIMEOUT", 15*time.Second),
		MeshSOCKS5:     getEnv("MESH_SOCKS5", ""),
		HealthInterval: getEnvDuration("HEALTH_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}
