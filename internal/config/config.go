package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"starlit-server/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Допустимые значения переключателей
const (
	AIClientGemini = "gemini"
	AIClientOpenAI = "openai"
	AIClientOllama = "ollama"

	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config содержит конфигурацию сервиса историй
type Config struct {
	Env            string `envconfig:"ENV" default:"development"`
	ServerPort     string `envconfig:"SERVER_PORT" default:"8000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding    string `envconfig:"LOG_ENCODING" default:"json"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	// Оркестрация
	MaxIterations             int           `envconfig:"MAX_ITERATIONS" default:"3"`
	DefaultLengthTier         string        `envconfig:"DEFAULT_LENGTH_TIER" default:"medium"`
	EnableSafetyChecks        bool          `envconfig:"ENABLE_SAFETY_CHECKS" default:"true"`
	ForceDisableLexicalScreen bool          `envconfig:"FORCE_DISABLE_LEXICAL_SCREEN" default:"false"`
	StrictMode                bool          `envconfig:"STRICT_MODE" default:"false"`
	MaxInputLength            int           `envconfig:"MAX_INPUT_LENGTH" default:"500"`
	HistoryWindow             int           `envconfig:"HISTORY_WINDOW" default:"10"`
	RequestTimeout            time.Duration `envconfig:"REQUEST_TIMEOUT" default:"3m"`
	UseLLMRouter              bool          `envconfig:"USE_LLM_ROUTER" default:"true"`
	UseLLMClassics            bool          `envconfig:"USE_LLM_CLASSICS" default:"true"`
	PromptsFile               string        `envconfig:"PROMPTS_FILE"`

	// Лимит запросов генерации на IP в минуту, 0 - без лимита
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"20"`

	// Языковая модель
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"gemini"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
	// Секретные поля БЕЗ envconfig тега
	OpenAIAPIKey string
	GeminiAPIKey string

	// Модели по этапам
	RouterModel    string `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash"`
	GeneratorModel string `envconfig:"GENERATOR_MODEL" default:"gemini-2.5-pro"`
	CheckerModel   string `envconfig:"CHECKER_MODEL" default:"gemini-2.5-flash"`
	MoralModel     string `envconfig:"MORAL_MODEL" default:"gemini-2.5-flash"`
	RetrieverModel string `envconfig:"RETRIEVER_MODEL" default:"gemini-2.5-flash"`

	// Хранилище тредов
	ThreadStore string        `envconfig:"THREAD_STORE" default:"memory"`
	ThreadTTL   time.Duration `envconfig:"THREAD_TTL" default:"24h"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"starlit"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// События
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	StoryEventsQueue string `envconfig:"STORY_EVENTS_QUEUE" default:"story_events"`
}

// GetAllowedOrigins разбивает строку ALLOWED_ORIGINS на срез.
func (c *Config) GetAllowedOrigins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.AllowedOrigins, " ", ""), ",")
}

// LengthTier возвращает уровень длины по умолчанию.
func (c *Config) LengthTier() models.LengthTier {
	return models.LengthTier(strings.ToLower(c.DefaultLengthTier))
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Validate проверяет значения, которые envconfig проверить не может.
func (c *Config) Validate() error {
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0, got %d", c.RateLimitPerMinute)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("MAX_ITERATIONS must be >= 1, got %d", c.MaxIterations)
	}
	if !c.LengthTier().Valid() {
		return fmt.Errorf("DEFAULT_LENGTH_TIER: %w: %q", models.ErrInvalidLengthTier, c.DefaultLengthTier)
	}
	switch strings.ToLower(c.AIClientType) {
	case AIClientGemini, AIClientOpenAI, AIClientOllama:
	default:
		return fmt.Errorf("unknown AI_CLIENT_TYPE %q", c.AIClientType)
	}
	switch strings.ToLower(c.ThreadStore) {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown THREAD_STORE %q", c.ThreadStore)
	}
	return nil
}

// LoadConfig загружает конфигурацию из .env (если есть), окружения и секретов.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	// Секреты необязательны: ключ нужен только выбранному провайдеру
	cfg.GeminiAPIKey = readOptionalSecret("gemini_api_key", "GEMINI_API_KEY")
	cfg.OpenAIAPIKey = readOptionalSecret("openai_api_key", "OPENAI_API_KEY")
	cfg.RedisPassword = readOptionalSecret("redis_password", "REDIS_PASSWORD")
	cfg.DBPassword = readOptionalSecret("db_password", "DB_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded: store=%s ai_client=%s max_iterations=%d strict_mode=%t safety_checks=%t",
		cfg.ThreadStore, cfg.AIClientType, cfg.MaxIterations, cfg.StrictMode, cfg.EnableSafetyChecks)
	return &cfg, nil
}

// GetMaskedDSN возвращает DSN с замаскированным паролем для логирования
func (c *Config) GetMaskedDSN() string {
	dsn := c.GetDSN()
	parts := strings.Split(dsn, "@")
	if len(parts) != 2 {
		return "[invalid dsn format]"
	}
	userInfo := strings.Split(parts[0], ":")
	if len(userInfo) >= 3 {
		userInfo[len(userInfo)-1] = "********"
	}
	return strings.Join(userInfo, ":") + "@" + parts[1]
}
