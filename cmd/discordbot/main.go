package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"chatbot-gateway/arxiv"
	"chatbot-gateway/assistant"
	"chatbot-gateway/bot/dispatch"
	"chatbot-gateway/bot/dispatch/application"
	"chatbot-gateway/bot/dispatch/domain"
	"chatbot-gateway/bot/dispatch/infra"
	"chatbot-gateway/discord"
	"chatbot-gateway/websearch"
)

var (
	flagMode     string
	flagLogLevel string
	flagProfiles string
	flagChunkMax int
)

var rootCmd = &cobra.Command{
	Use:          "discordbot",
	Short:        "Discord bot that answers in threads through an LLM agent",
	SilenceUsage: true,
	RunE:         runBot,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split stdin the way long answers are split before sending",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printChunks(cmd.InOrStdin(), cmd.OutOrStdout(), flagChunkMax)
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagMode, "mode", "", "bot mode: question or arxiv (overrides BOT_MODE)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	rootCmd.Flags().StringVar(&flagProfiles, "profiles", "", "YAML file with agent profiles (overrides PROFILES_FILE)")
	chunkCmd.Flags().IntVar(&flagChunkMax, "max", 2000, "max characters per chunk")
	rootCmd.AddCommand(chunkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// minChunkMax é o menor --max aceito pelo chunk; abaixo disso não cabe nem o fechamento de um bloco.
const minChunkMax = 20

func applyFlags(cmd *cobra.Command, cfg *config) {
	if cmd.Flags().Changed("mode") {
		cfg.mode = flagMode
	}
	if cmd.Flags().Changed("log-level") {
		cfg.logLevel = flagLogLevel
	}
	if cmd.Flags().Changed("profiles") {
		cfg.profilesFile = flagProfiles
	}
}

// loadConfig lê o ambiente, aplica as flags por cima e valida uma única vez.
func loadConfig(cmd *cobra.Command) (config, error) {
	cfg := readConfig()
	applyFlags(cmd, &cfg)
	return cfg, cfg.validate()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.logLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	// agente
	completer, err := assistant.NewOpenAICompleter(assistant.OpenAIConfig{
		APIKey:     cfg.openaiKey,
		BaseURL:    cfg.openaiBaseURL,
		MaxRetries: 2,
	})
	if err != nil {
		log.Fatalf("openai: %v", err)
	}
	profiles, err := assistant.LoadProfiles(cfg.profilesFile)
	if err != nil {
		log.Fatalf("profiles: %v", err)
	}

	var runs assistant.RunStore = assistant.NewMemoryRunStore()
	if cfg.runsDB != "" {
		store, err := assistant.OpenSQLiteRunStore(cfg.runsDB)
		if err != nil {
			log.Fatalf("runs db: %v", err)
		}
		defer store.Close()
		runs = store
	}

	papers, err := arxiv.NewClient(256, arxiv.WithBaseURL(cfg.arxivBaseURL))
	if err != nil {
		log.Fatalf("arxiv: %v", err)
	}
	tools := append(arxiv.Tools(papers), websearch.Tool(websearch.NewClient(websearch.WithBaseURL(cfg.webSearchURL))))
	agent := assistant.New(completer, runs, profiles,
		assistant.WithTools(tools...),
		assistant.WithLogger(logger),
	)

	// rate limit, threads, stats
	var window domain.SlidingWindow
	if rdb != nil {
		window = infra.NewRedisWindow(rdb)
	} else {
		mw := infra.NewMemoryWindow()
		mw.StartJanitor(ctx, cfg.rateWindow)
		window = mw
	}

	var tracker domain.ThreadTracker = infra.NewMemoryThreads()
	if cfg.threadsBackend == "redis" {
		tracker = infra.NewRedisThreads(rdb, infra.WithLease(cfg.threadLease))
	}

	var stats domain.StatsStore
	if cfg.statsEnabled {
		stats = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
	}

	var slots domain.SlotPool
	if cfg.agentConcurrency > 0 {
		slots = infra.NewChanPool(cfg.agentConcurrency)
	}

	pacer := infra.NewSendPacer(cfg.sendRPS, cfg.sendBurst)
	pacer.StartJanitor(ctx)

	// discord
	session, err := discord.NewSession(cfg.discordToken)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}

	var opener domain.Opener = dispatch.QuestionOpener{}
	if cfg.mode == "arxiv" {
		opener = arxiv.Opener{Papers: papers}
	}

	d := dispatch.New(dispatch.Options{
		Limiter: application.Service{
			Store:    window,
			Window:   cfg.rateWindow,
			Limit:    cfg.rateLimit,
			FailOpen: cfg.rateFailOpen,
		},
		Threads:       application.ThreadService{Tracker: tracker, Logger: logger},
		Slots:         application.AgentSlots{Pool: slots, Wait: cfg.agentSlotWait},
		Agent:         agent,
		Messenger:     dispatch.PacedMessenger{Messenger: discord.NewMessenger(session), Pacer: pacer},
		Opener:        opener,
		Stats:         stats,
		Logger:        logger,
		MaxMessageLen: cfg.maxMessageLen,
		AgentTimeout:  cfg.agentTimeout,
	})

	logger.Info("bot starting",
		"mode", cfg.mode,
		"rate_window", cfg.rateWindow,
		"rate_limit", cfg.rateLimit,
		"rate_fail_open", cfg.rateFailOpen,
		"redis", cfg.redisAddr != "",
		"threads", cfg.threadsBackend,
		"agent_concurrency", cfg.agentConcurrency,
		"stats", cfg.statsEnabled,
		"stats_bucket", cfg.statsBucket,
		"profiles", profiles.Names(),
		"runs_db", cfg.runsDB,
	)

	return discord.NewBot(session, logger).Run(ctx, d)
}

func printChunks(in io.Reader, out io.Writer, max int) error {
	text, err := io.ReadAll(bufio.NewReader(in))
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if max < minChunkMax {
		max = minChunkMax
	}
	chunks := application.Chunk(string(text), max)
	for i, c := range chunks {
		fmt.Fprintf(out, "----- chunk %d/%d (%d chars) -----\n", i+1, len(chunks), utf8.RuneCountInString(c))
		fmt.Fprintln(out, c)
	}
	return nil
}
