package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	DBUrl      string
	DBMaxConns int32
	JWTSecret  string
	AppEnv     string
	EnableDocs bool

	LogLevel  string
	LogPretty bool

	RedisURL string
	CacheTTL time.Duration

	AMQPURL      string
	AMQPExchange string

	SupabaseURL        string
	SupabaseBucket     string
	SupabaseServiceKey string

	Booking BookingConfig
	Jobs    JobsConfig
}

// BookingConfig holds the knobs of the ledger, calendar and enrollment rules.
type BookingConfig struct {
	AllowEarlyRenewal     bool
	ReportSkippedSlots    bool
	WeekendDays           []time.Weekday
	RangeMaxDays          int
	RangeWorkers          int
	RecurringHorizonWeeks int
}

type JobsConfig struct {
	RecurringCron   string
	ExpirySweepCron string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	weekend, err := parseWeekdays(getEnv("WEEKEND_DAYS", "friday,saturday"))
	if err != nil {
		return nil, fmt.Errorf("WEEKEND_DAYS: %w", err)
	}

	return &Config{
		Port:       getEnv("PORT", "8080"),
		DBUrl:      getEnv("DB_URL", ""),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		JWTSecret:  jwtSecret,
		AppEnv:     normalizeEnv(getEnv("APP_ENV", "production")),
		EnableDocs: getEnvBool("ENABLE_API_DOCS", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvBool("LOG_PRETTY", false),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "codehub.events"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),

		Booking: BookingConfig{
			AllowEarlyRenewal:     getEnvBool("ALLOW_EARLY_RENEWAL", false),
			ReportSkippedSlots:    getEnvBool("SLOT_REPORT_SKIPPED", false),
			WeekendDays:           weekend,
			RangeMaxDays:          getEnvInt("SLOT_RANGE_MAX_DAYS", 93),
			RangeWorkers:          getEnvInt("SLOT_RANGE_WORKERS", 4),
			RecurringHorizonWeeks: getEnvInt("RECURRING_HORIZON_WEEKS", 4),
		},
		Jobs: JobsConfig{
			RecurringCron:   getEnv("RECURRING_CRON", "@daily"),
			ExpirySweepCron: getEnv("EXPIRY_SWEEP_CRON", "@hourly"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseWeekdays(value string) ([]time.Weekday, error) {
	days := []time.Weekday{}
	seen := map[time.Weekday]bool{}
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		day, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) StorageEnabled() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}
