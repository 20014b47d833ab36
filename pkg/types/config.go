package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseSchema   string `envconfig:"DATABASE_SCHEMA" default:"assettrack"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	CORSOrigins     []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	RateLimitPerMin int      `envconfig:"RATE_LIMIT_PER_MIN" default:"300"`

	// Identity is issued upstream. Either an HMAC secret or a JWKS endpoint
	// is used to verify the bearer token.
	AuthHMACSecret string `envconfig:"AUTH_HMAC_SECRET"`
	AuthJWKSURL    string `envconfig:"AUTH_JWKS_URL"`
	AuthCookieName string `envconfig:"AUTH_COOKIE_NAME" default:"access_token"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Optional category registry cache
	RedisAddr           string `envconfig:"REDIS_ADDR"`
	RedisPassword       string `envconfig:"REDIS_PASSWORD"`
	RedisCategoryTTLSec int    `envconfig:"REDIS_CATEGORY_TTL_SEC" default:"300"`
}
