package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes runtime settings for the API and the job pipeline.
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURL string
	SQLitePath  string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	GeocodeCacheTTL time.Duration

	ApifyToken        string
	ApifyBaseURL      string
	ApifyPollInterval time.Duration
	ScraperTimeout    time.Duration

	LLMProvider   string
	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
	LLMRPS        float64
	LLMBurst      int
	GeminiAPIKey  string
	GeminiModel   string

	TranscribeURL   string
	TranscribeKey   string
	TranscribeModel string
	ToneURL         string
	AudioTimeout    time.Duration
	MaxAudioBytes   int64
	MaxAudioSeconds int
	MemLimitMB      int
	MemHeadroomMB   int
	FFmpegPath      string
	FFprobePath     string
	TempDir         string

	GeonamesUsername string
	GeocodeTimeout   time.Duration

	ContentWebhookURL string
	CreatorWebhookURL string
	WebhookTimeout    time.Duration
}

// Load reads a .env file when present and builds the config from the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "data/creator-scout.db"),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		GeocodeCacheTTL: getEnvDuration("GEOCODE_CACHE_TTL", 24*time.Hour),

		ApifyToken:        getEnv("APIFY_API_TOKEN", ""),
		ApifyBaseURL:      getEnv("APIFY_BASE_URL", "https://api.apify.com/v2"),
		ApifyPollInterval: getEnvDuration("APIFY_POLL_INTERVAL", 3*time.Second),
		ScraperTimeout:    getEnvDuration("SCRAPER_TIMEOUT", 15*time.Minute),

		LLMProvider:   getEnv("LLM_PROVIDER", "openai"),
		LLMGatewayURL: getEnv("LLM_GATEWAY_URL", "https://api.openai.com/v1"),
		LLMAPIKey:     getEnv("LLM_API_KEY", ""),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		LLMRPS:        getEnvFloat("LLM_RPS", 2),
		LLMBurst:      getEnvInt("LLM_BURST", 2),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		TranscribeURL:   getEnv("TRANSCRIBE_URL", "https://api.openai.com/v1"),
		TranscribeKey:   getEnv("TRANSCRIBE_API_KEY", getEnv("LLM_API_KEY", "")),
		TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		ToneURL:         getEnv("TONE_URL", ""),
		AudioTimeout:    getEnvDuration("AUDIO_TIMEOUT", 90*time.Second),
		MaxAudioBytes:   getEnvInt64("MAX_AUDIO_BYTES", 20<<20),
		MaxAudioSeconds: getEnvInt("MAX_AUDIO_SECONDS", 90),
		MemLimitMB:      getEnvInt("MEM_LIMIT_MB", 512),
		MemHeadroomMB:   getEnvInt("MEM_HEADROOM_MB", 80),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:     getEnv("FFPROBE_PATH", "ffprobe"),
		TempDir:         getEnv("TEMP_DIR", os.TempDir()),

		GeonamesUsername: getEnv("GEONAMES_USERNAME", ""),
		GeocodeTimeout:   getEnvDuration("GEOCODE_TIMEOUT", 10*time.Second),

		ContentWebhookURL: getEnv("WORKFLOW_CONTENT_URL", ""),
		CreatorWebhookURL: getEnv("WORKFLOW_CREATOR_URL", ""),
		WebhookTimeout:    getEnvDuration("WEBHOOK_TIMEOUT", 30*time.Second),
	}
}

// Validate reports settings the pipeline cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.ApifyToken == "" {
		errs = append(errs, errors.New("APIFY_API_TOKEN is required"))
	}
	switch c.LLMProvider {
	case "openai":
		if c.LLMAPIKey == "" {
			errs = append(errs, errors.New("LLM_API_KEY is required for LLM_PROVIDER=openai"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for LLM_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, errors.New("LLM_PROVIDER must be openai or gemini"))
	}
	if c.MemLimitMB > 0 && c.MemHeadroomMB >= c.MemLimitMB {
		errs = append(errs, errors.New("MEM_HEADROOM_MB must be lower than MEM_LIMIT_MB"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
