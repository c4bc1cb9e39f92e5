package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment. It is
// passed explicitly to every component at construction; nothing reads the
// environment after Load returns.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		Subscriber      string // contact address sent to the push service
		TTL             int    // seconds
		SendTimeout     time.Duration
		RatePerSecond   int
	}
	Retry struct {
		BatchSize int
		Interval  time.Duration
	}
	Validator struct {
		Interval time.Duration
	}
	Notifier struct {
		QueueSize  int
		MaxWorkers int
	}
	Telegram struct {
		BotToken string
		ChatID   int64
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subscriber = os.Getenv("VAPID_SUBSCRIBER")
	if ttl, err := strconv.Atoi(os.Getenv("PUSH_TTL")); err == nil {
		cfg.Push.TTL = ttl
	}
	if d, err := time.ParseDuration(os.Getenv("PUSH_SEND_TIMEOUT")); err == nil {
		cfg.Push.SendTimeout = d
	}
	if r, err := strconv.Atoi(os.Getenv("PUSH_RATE_PER_SECOND")); err == nil {
		cfg.Push.RatePerSecond = r
	}

	if bs, err := strconv.Atoi(os.Getenv("RETRY_BATCH_SIZE")); err == nil {
		cfg.Retry.BatchSize = bs
	}
	if d, err := time.ParseDuration(os.Getenv("RETRY_INTERVAL")); err == nil {
		cfg.Retry.Interval = d
	}
	if d, err := time.ParseDuration(os.Getenv("VALIDATOR_INTERVAL")); err == nil {
		cfg.Validator.Interval = d
	}

	if qs, err := strconv.Atoi(os.Getenv("QUEUE_SIZE")); err == nil {
		cfg.Notifier.QueueSize = qs
	}
	if mw, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil {
		cfg.Notifier.MaxWorkers = mw
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Push.VAPIDPublicKey == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}
	if cfg.Push.VAPIDPrivateKey == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Push.Subscriber == "" {
		cfg.Push.Subscriber = "ops@push-service.local"
	}
	if cfg.Push.TTL == 0 {
		cfg.Push.TTL = 60 * 60 * 24
	}
	if cfg.Push.SendTimeout == 0 {
		cfg.Push.SendTimeout = 5 * time.Second
	}
	if cfg.Push.RatePerSecond == 0 {
		cfg.Push.RatePerSecond = 50
	}
	if cfg.Retry.BatchSize == 0 {
		cfg.Retry.BatchSize = 50
	}
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = 5 * time.Minute
	}
	if cfg.Validator.Interval == 0 {
		cfg.Validator.Interval = 24 * time.Hour
	}
	if cfg.Notifier.QueueSize == 0 {
		cfg.Notifier.QueueSize = 500
	}
	if cfg.Notifier.MaxWorkers == 0 {
		cfg.Notifier.MaxWorkers = 10
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
