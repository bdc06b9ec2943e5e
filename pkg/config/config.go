package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Analytics     AnalyticsConfig
	Cart          CartConfig
	Printer       PrinterConfig
	SMTP          SMTPConfig
	CORS          CORSConfig
	Cron          CronConfig
	Bootstrap     BootstrapConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const minProdJWTSecretLen = 32

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite, c.DB.Driver)
	}
	if c.Analytics.TrendWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvAnalyticsTrendWindow)
	}
	ratio, err := c.Analytics.EstimateRatio()
	if err != nil {
		return err
	}
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be between 0 and 1", EnvAnalyticsCostRatio)
	}
	if c.JWT.ExpirationMinutes <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	}
	if c.App.IsProd() {
		if c.DB.IsSQLite() {
			return fmt.Errorf("%s=%s is not allowed in prod", EnvDBDriver, DBDriverSQLite)
		}
		if len(c.JWT.Secret) < minProdJWTSecretLen {
			return fmt.Errorf("%s must be at least %d bytes in prod", EnvJWTSecret, minProdJWTSecretLen)
		}
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"POS_APP_ENV" required:"true"`
	Port         string `envconfig:"POS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`
	LogConsole   bool   `envconfig:"POS_LOG_CONSOLE" default:"false"`

	ReadTimeout     time.Duration `envconfig:"POS_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"POS_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"POS_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"POS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"POS_DB_DSN"`
	Driver string `envconfig:"POS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POS_DB_HOST"`
	LegacyPort     int    `envconfig:"POS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POS_DB_USER"`
	LegacyPassword string `envconfig:"POS_DB_PASSWORD"`
	LegacyName     string `envconfig:"POS_DB_NAME"`
	LegacySSLMode  string `envconfig:"POS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the single-node sqlite driver is configured.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"POS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"POS_REDIS_ADDR"`
	Password     string        `envconfig:"POS_REDIS_PASSWORD"`
	DB           int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"POS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POS_JWT_ISSUER" default:"pos-backend"`
	ExpirationMinutes int    `envconfig:"POS_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// AccessTTL returns the access token lifetime.
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"POS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"POS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"POS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"POS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POS_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	// VerifyTotals recomputes the order total server-side and rejects mismatching client totals.
	VerifyTotals   bool          `envconfig:"POS_ORDERS_VERIFY_TOTALS" default:"true"`
	DecrementStock bool          `envconfig:"POS_ORDERS_DECREMENT_STOCK" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"POS_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
}

type AnalyticsConfig struct {
	TrendWindow        int    `envconfig:"POS_ANALYTICS_TREND_WINDOW" default:"7"`
	CostEstimateRatio  string `envconfig:"POS_ANALYTICS_COST_ESTIMATE_RATIO" default:"0.6"`
	LowStockThreshold  int    `envconfig:"POS_ANALYTICS_LOW_STOCK_THRESHOLD" default:"10"`
	LowStockAlertLimit int    `envconfig:"POS_ANALYTICS_LOW_STOCK_ALERT_LIMIT" default:"5"`
}

// EstimateRatio parses the cost estimate ratio used for current stock valuation.
func (a AnalyticsConfig) EstimateRatio() (decimal.Decimal, error) {
	ratio, err := decimal.NewFromString(strings.TrimSpace(a.CostEstimateRatio))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvAnalyticsCostRatio, err)
	}
	return ratio, nil
}

type CartConfig struct {
	TTL time.Duration `envconfig:"POS_CART_TTL" default:"12h"`
}

type PrinterConfig struct {
	Addr    string        `envconfig:"POS_PRINTER_ADDR"`
	Timeout time.Duration `envconfig:"POS_PRINTER_TIMEOUT" default:"5s"`
	Title   string        `envconfig:"POS_PRINTER_TITLE" default:"RECEIPT"`
}

// Enabled reports whether server-side printing is configured.
func (p PrinterConfig) Enabled() bool {
	return strings.TrimSpace(p.Addr) != ""
}

type SMTPConfig struct {
	Host     string `envconfig:"POS_SMTP_HOST"`
	Port     int    `envconfig:"POS_SMTP_PORT" default:"587"`
	Username string `envconfig:"POS_SMTP_USERNAME"`
	Password string `envconfig:"POS_SMTP_PASSWORD"`
	From     string `envconfig:"POS_SMTP_FROM" default:"no-reply@pos.local"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"POS_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"POS_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"POS_CRON_LOCK_TTL" default:"4m"`
}

type BootstrapConfig struct {
	AdminEmail string `envconfig:"POS_BOOTSTRAP_ADMIN_EMAIL"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
