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
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"chatbot-gateway/arxiv"
	"chatbot-gateway/assistant"
	"chatbot-gateway/bot/dispatch"
	"chatbot-gateway/bot/dispatch/application"
	"chatbot-gateway/bot/dispatch/domain"
	"chatbot-gateway/bot/dispatch/infra"
	"chatbot-gateway/websearch"
)

const (
	botID  = "0"
	userID = "1"
)

func main() {
	// Exemplo: o mesmo dispatcher do bot, mas falando com o terminal (sem Discord)
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		log.Fatalf("OPENAI_API_KEY is required (use any value with OPENAI_BASE_URL pointing to agente-falso)")
	}

	completer, err := assistant.NewOpenAICompleter(assistant.OpenAIConfig{
		APIKey:  key,
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	})
	if err != nil {
		log.Fatalf("openai: %v", err)
	}
	profiles, err := assistant.LoadProfiles(os.Getenv("PROFILES_FILE"))
	if err != nil {
		log.Fatalf("profiles: %v", err)
	}
	papers, err := arxiv.NewClient(64)
	if err != nil {
		log.Fatalf("arxiv: %v", err)
	}
	tools := append(arxiv.Tools(papers), websearch.Tool(websearch.NewClient()))
	agent := assistant.New(completer, assistant.NewMemoryRunStore(), profiles,
		assistant.WithTools(tools...))

	var opener domain.Opener = dispatch.QuestionOpener{}
	if os.Getenv("BOT_MODE") == "arxiv" {
		opener = arxiv.Opener{Papers: papers}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	console := &consoleMessenger{out: os.Stdout}
	d := dispatch.New(dispatch.Options{
		Limiter: application.Service{
			Store:  infra.NewMemoryWindow(),
			Window: time.Minute,
			Limit:  getenvIntDefault("RATE_LIMIT", 10),
		},
		Threads:   application.ThreadService{Tracker: infra.NewMemoryThreads()},
		Agent:     agent,
		Messenger: console,
		Opener:    opener,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})

	fmt.Println("console bot ready. type a message; /new leaves the current thread.")
	repl(ctx, os.Stdin, console, d)
}

type handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.Result
}

// repl lê linhas do terminal. Fora de thread cada linha é uma menção ao bot;
// depois que uma thread é aberta, as linhas seguintes vão para ela.
func repl(ctx context.Context, in io.Reader, console *consoleMessenger, h handler) {
	sc := bufio.NewScanner(in)
	thread := ""
	n := 0

	for ctx.Err() == nil && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "/new" {
			thread = ""
			continue
		}
		n++

		msg := domain.InboundMessage{
			ID:          strconv.Itoa(n),
			GuildID:     "console",
			Author:      domain.Author{ID: userID, Name: "you"},
			BotID:       botID,
			Content:     line,
			MentionsBot: thread == "",
		}
		if thread == "" {
			msg.ChannelID = "console"
			msg.ChannelKind = domain.ChannelText
			msg.Content = "<@" + botID + "> " + line
		} else {
			msg.ChannelID = thread
			msg.ChannelKind = domain.ChannelThread
			msg.ThreadOwnerID = botID
		}

		res := h.Handle(ctx, msg)
		if thread == "" && (res.Outcome == domain.OutcomeOpened || res.Outcome == domain.OutcomeAnswered) {
			thread = console.lastThread()
		}
	}
}

type consoleMessenger struct {
	mu      sync.Mutex
	out     io.Writer
	threads int
}

func (c *consoleMessenger) Reply(_ context.Context, to domain.InboundMessage, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] bot (reply to #%s): %s\n", to.ChannelID, to.ID, content)
	return err
}

func (c *consoleMessenger) Send(_ context.Context, channelID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] bot: %s\n", channelID, content)
	return err
}

func (c *consoleMessenger) CreateThread(_ context.Context, _ domain.InboundMessage, name string) (domain.Thread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads++
	id := fmt.Sprintf("thread-%d", c.threads)
	_, err := fmt.Fprintf(c.out, "--- %s: %s ---\n", id, name)
	return domain.Thread{ID: id, Name: name}, err
}

func (c *consoleMessenger) Typing(context.Context, string) error { return nil }

func (c *consoleMessenger) lastThread() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.threads == 0 {
		return ""
	}
	return fmt.Sprintf("thread-%d", c.threads)
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
