package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultPort      = "4000"
	defaultDSN       = "feedline.db"
	devJWTSecret     = "feedline-development-secret"
	envProduction    = "production"
	driverSQLite     = "sqlite"
	driverPostgres   = "postgres"
	defaultAuthRPS   = 1.0
	defaultAuthBurst = 10
)

type Config struct {
	Port      string
	Env       string
	DBDriver  string
	DBDSN     string
	JWTSecret string
	ClientURI string
	RedisAddr string
	// TrustedProxies are the peers whose forwarding headers are believed.
	TrustedProxies []*net.IPNet
	AuthRPS        float64
	AuthBurst      int
	LogLevel       logrus.Level
	SeedDemo       bool
}

func (c Config) Production() bool {
	return c.Env == envProduction
}

// loadConfig reads the process environment. godotenv.Load should already
// have run so values from .env are visible here.
func loadConfig() (Config, error) {
	cfg := Config{
		Port:      getEnv("PORT", defaultPort),
		Env:       strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", "development"))),
		DBDriver:  strings.ToLower(getEnv("DB_DRIVER", driverSQLite)),
		DBDSN:     getEnv("DB_DSN", defaultDSN),
		JWTSecret: os.Getenv("JWT_SECRET"),
		ClientURI: strings.TrimRight(os.Getenv("CLIENT_URI"), "/"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	if cfg.DBDriver != driverSQLite && cfg.DBDriver != driverPostgres {
		return Config{}, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", driverSQLite, driverPostgres, cfg.DBDriver)
	}

	if cfg.JWTSecret == "" && cfg.Production() {
		return Config{}, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", envProduction)
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.AuthRPS, err = getEnvFloat("RATELIMIT_AUTH_RPS", defaultAuthRPS); err != nil {
		return Config{}, err
	}
	if cfg.AuthBurst, err = getEnvInt("RATELIMIT_AUTH_BURST", defaultAuthBurst); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemo, err = getEnvBool("SEED_DEMO", false); err != nil {
		return Config{}, err
	}
	if cfg.TrustedProxies, err = parseCIDRs(os.Getenv("TRUSTED_PROXY_CIDRS")); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, val)
	}
	return f, nil
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, val)
	}
	return i, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, val)
	}
	return b, nil
}

// parseCIDRs reads a comma-separated list of CIDRs. A bare address is taken
// as a single-host network.
func parseCIDRs(val string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !strings.Contains(field, "/") {
			ip := net.ParseIP(field)
			if ip == nil {
				return nil, fmt.Errorf("TRUSTED_PROXY_CIDRS: invalid address %q", field)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(field)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXY_CIDRS: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}
