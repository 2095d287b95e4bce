package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chatbot-gateway/bot/dispatch/infra"
	"chatbot-gateway/websearch"
)

type config struct {
	discordToken  string
	openaiKey     string
	openaiBaseURL string
	mode          string
	profilesFile  string
	runsDB        string
	arxivBaseURL  string
	webSearchURL  string
	logLevel      string

	redisAddr     string
	redisPassword string
	redisDB       int

	rateWindow   time.Duration
	rateLimit    int
	rateFailOpen bool

	threadsBackend string
	threadLease    time.Duration

	agentTimeout     time.Duration
	agentConcurrency int
	agentSlotWait    time.Duration
	maxMessageLen    int

	sendRPS   float64
	sendBurst int

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool
}

// readConfig só lê o ambiente; a validação roda depois das flags.
func readConfig() config {
	cfg := config{}
	cfg.discordToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.openaiKey = os.Getenv("OPENAI_API_KEY")
	cfg.openaiBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.mode = strings.ToLower(getenvDefault("BOT_MODE", "question"))
	cfg.profilesFile = os.Getenv("PROFILES_FILE")
	cfg.runsDB = getenvDefault("RUNS_DB", "runs.db")
	cfg.arxivBaseURL = getenvDefault("ARXIV_BASE_URL", "http://export.arxiv.org/api/query")
	cfg.webSearchURL = getenvDefault("WEB_SEARCH_URL", websearch.DefaultBaseURL)
	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	// mesmos valores do bot original: 10 mensagens por usuário a cada 60s
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 60*time.Second)
	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 10)
	cfg.rateFailOpen = getenvBoolDefault("RATE_FAIL_OPEN", false)

	cfg.threadsBackend = strings.ToLower(getenvDefault("THREADS_BACKEND", "memory"))
	cfg.threadLease = getenvDurationDefault("THREAD_LEASE", 10*time.Minute)

	cfg.agentTimeout = getenvDurationDefault("AGENT_TIMEOUT", 2*time.Minute)
	cfg.agentConcurrency = getenvIntDefault("AGENT_CONCURRENCY", 8)
	cfg.agentSlotWait = getenvDurationDefault("AGENT_SLOT_WAIT", 30*time.Second)
	cfg.maxMessageLen = getenvIntDefault("MAX_MESSAGE_LEN", 2000)

	// o Discord aceita ~5 mensagens a cada 5s por canal
	cfg.sendRPS = getenvFloatDefault("SEND_RPS", 1)
	cfg.sendBurst = getenvIntDefault("SEND_BURST", 5)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "bot:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = strings.ToLower(getenvDefault("STATS_BUCKET", infra.BucketMinute))
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	return cfg
}

func (cfg config) validate() error {
	if strings.TrimSpace(cfg.discordToken) == "" {
		return errors.New("DISCORD_BOT_TOKEN is required")
	}
	if strings.TrimSpace(cfg.openaiKey) == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	switch cfg.mode {
	case "question", "arxiv":
	default:
		return fmt.Errorf("BOT_MODE must be question or arxiv, got %q", cfg.mode)
	}
	switch cfg.threadsBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.redisAddr) == "" {
			return errors.New("REDIS_ADDR is required when THREADS_BACKEND=redis")
		}
	default:
		return fmt.Errorf("THREADS_BACKEND must be memory or redis, got %q", cfg.threadsBackend)
	}
	if cfg.statsEnabled && strings.TrimSpace(cfg.redisAddr) == "" {
		return errors.New("REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if cfg.rateWindow <= 0 {
		return errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.rateLimit < 0 {
		return errors.New("RATE_LIMIT must be >= 0")
	}
	if cfg.threadLease <= 0 {
		return errors.New("THREAD_LEASE must be > 0")
	}
	if cfg.agentTimeout <= 0 {
		return errors.New("AGENT_TIMEOUT must be > 0")
	}
	if cfg.threadsBackend == "redis" && cfg.threadLease <= cfg.agentTimeout+cfg.agentSlotWait {
		return fmt.Errorf("THREAD_LEASE (%s) must be > AGENT_TIMEOUT + AGENT_SLOT_WAIT (%s)",
			cfg.threadLease, cfg.agentTimeout+cfg.agentSlotWait)
	}
	if cfg.agentConcurrency < 0 {
		return errors.New("AGENT_CONCURRENCY must be >= 0")
	}
	if cfg.maxMessageLen < 100 {
		return errors.New("MAX_MESSAGE_LEN must be >= 100")
	}
	if !infra.ValidBucket(cfg.statsBucket) {
		return fmt.Errorf("STATS_BUCKET must be minute, hour or none, got %q", cfg.statsBucket)
	}
	if cfg.sendRPS <= 0 {
		return errors.New("SEND_RPS must be > 0")
	}
	if cfg.sendBurst <= 0 {
		return errors.New("SEND_BURST must be > 0")
	}
	return nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
