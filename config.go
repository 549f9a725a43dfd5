package userauth

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfig reads auth options from the environment, optionally seeded
// from a .env file.
type EnvConfig struct {
	SigningKey      string
	Issuer          string
	TokenExpiration int
	ResetValidity   time.Duration
	RedisAddr       string
	RedisDB         int
	ListenAddr      string
	UserKeyPrefix   string
	EmailKeyPrefix  string
	ResetKeyPrefix  string
}

// LoadConfig builds an EnvConfig from the process environment. A missing
// .env file is not an error; explicit environment always wins.
func LoadConfig() *EnvConfig {
	_ = godotenv.Load()

	return &EnvConfig{
		SigningKey:      getenv("JWT_SECRET_KEY", "change-this-secret"),
		Issuer:          getenv("JWT_ISSUER", "userauth"),
		TokenExpiration: getenvInt("JWT_EXPIRATION_HOURS", 24),
		ResetValidity:   time.Duration(getenvInt("RESET_TOKEN_MINUTES", 30)) * time.Minute,
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getenvInt("REDIS_DB_USERS", 0),
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		UserKeyPrefix:   getenv("USER_KEY", DefaultUserKeyPrefix),
		EmailKeyPrefix:  getenv("EMAIL_KEY", DefaultEmailKeyPrefix),
		ResetKeyPrefix:  getenv("RESET_TOKEN_KEY", DefaultResetKeyPrefix),
	}
}

func (c *EnvConfig) GetSigningKey() string { return c.SigningKey }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *EnvConfig) GetResetTokenValidity() time.Duration { return c.ResetValidity }

func (c *EnvConfig) GetRedisAddr() string { return c.RedisAddr }

func (c *EnvConfig) GetRedisDB() int { return c.RedisDB }

func (c *EnvConfig) GetListenAddr() string { return c.ListenAddr }

func (c *EnvConfig) GetUserKeyPrefix() string { return c.UserKeyPrefix }

func (c *EnvConfig) GetEmailKeyPrefix() string { return c.EmailKeyPrefix }

func (c *EnvConfig) GetResetKeyPrefix() string { return c.ResetKeyPrefix }

var _ Config = (*EnvConfig)(nil)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
