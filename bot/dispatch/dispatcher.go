package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"chatbot-gateway/bot/dispatch/application"
	"chatbot-gateway/bot/dispatch/domain"
)

type Options struct {
	Limiter   application.Service
	Threads   application.ThreadService
	Slots     application.AgentSlots
	Agent     domain.Agent
	Messenger domain.Messenger
	Opener    domain.Opener
	Stats     domain.StatsStore
	Logger    *slog.Logger

	// MaxMessageLen é o limite de caracteres por mensagem da plataforma.
	MaxMessageLen int
	// AgentTimeout limita a chamada ao agente, para que um backend travado
	// não segure a thread indefinidamente.
	AgentTimeout time.Duration
}

type Dispatcher struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Dispatcher {
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = 2000
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = 2 * time.Minute
	}
	if opts.Opener == nil {
		opts.Opener = QuestionOpener{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{opts: opts, log: log}
}

type route int

const (
	routeNone route = iota
	routeThread
	routeMention
	routeWrongChannel
)

// route decide se a mensagem é para o bot, sem mexer em estado nenhum.
func (d *Dispatcher) route(msg domain.InboundMessage) route {
	if msg.Author.Bot || msg.Author.ID == msg.BotID {
		return routeNone
	}
	mentioned := msg.MentionsBot && !msg.MentionEveryone

	switch msg.ChannelKind {
	case domain.ChannelThread:
		if msg.ThreadOwnerID == msg.BotID {
			return routeThread
		}
		if mentioned {
			return routeWrongChannel
		}
	case domain.ChannelText:
		if mentioned {
			return routeMention
		}
	case domain.ChannelDirect:
		if mentioned {
			return routeWrongChannel
		}
	}
	return routeNone
}

// Handle trata uma mensagem de ponta a ponta. Falhas viram resposta ao usuário e log;
// nada sobe para o loop de eventos, nem pânico.
func (d *Dispatcher) Handle(ctx context.Context, msg domain.InboundMessage) (res domain.Result) {
	log := d.log.With("user", msg.Author.ID, "guild", msg.GuildID, "channel", msg.ChannelID, "message", msg.ID)

	// stage acompanha o último estado alcançado, para o recover saber onde parou
	stage := domain.StateIdle
	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panic", "panic", r, "stage", stage, "stack", string(debug.Stack()))
			d.apologize(ctx, log, msg)
			res = failed(stage)
		}
		d.record(ctx, msg, res)
	}()

	r := d.route(msg)
	if r == routeNone {
		return domain.Result{State: domain.StateIdle, Stage: domain.StateIdle, Outcome: domain.OutcomeIgnored}
	}

	dec, err := d.opts.Limiter.Decide(ctx, domain.Key(msg.Author.ID))
	if err != nil {
		log.Warn("rate limit store failed", "err", err, "fail_open", dec.Allowed)
	}
	if !dec.Allowed {
		if err != nil {
			d.reply(ctx, log, msg, ReplyFailed)
			return failed(domain.StateIdle)
		}
		log.Info("rate limited", "retry_after", dec.RetryAfter)
		d.reply(ctx, log, msg, ReplyRateLimited)
		return done(domain.StateRateChecked, domain.OutcomeRateLimited)
	}
	stage = domain.StateRateChecked

	switch r {
	case routeThread:
		return d.continueThread(ctx, log, msg, &stage)
	case routeMention:
		return d.openThread(ctx, log, msg, &stage)
	default:
		d.reply(ctx, log, msg, ReplyWrongChannel)
		return done(domain.StateRateChecked, domain.OutcomeUsage)
	}
}

func (d *Dispatcher) continueThread(ctx context.Context, log *slog.Logger, msg domain.InboundMessage, stage *domain.State) domain.Result {
	text := StripMention(msg.Content, msg.BotID)
	images := ImageURLs(msg.Attachments)
	if text == "" && len(images) == 0 {
		d.reply(ctx, log, msg, ReplyEmptyQuestion)
		return done(domain.StateRateChecked, domain.OutcomeUsage)
	}

	release, ok, err := d.opts.Threads.Acquire(ctx, msg.ChannelID)
	if err != nil {
		log.Error("thread acquire failed", "err", err)
		d.reply(ctx, log, msg, ReplyFailed)
		return failed(domain.StateRateChecked)
	}
	if !ok {
		log.Info("thread busy")
		d.reply(ctx, log, msg, ReplyBusy)
		return done(domain.StateRateChecked, domain.OutcomeBusy)
	}
	defer release()
	*stage = domain.StateThreadResolved

	req := domain.AgentRequest{
		RunID:    msg.ChannelID,
		UserID:   msg.Author.ID,
		UserName: msg.Author.Name,
		Message:  text,
		Images:   images,
	}
	return d.respond(ctx, log.With("thread", msg.ChannelID), msg.ChannelID, req, stage)
}

func (d *Dispatcher) openThread(ctx context.Context, log *slog.Logger, msg domain.InboundMessage, stage *domain.State) domain.Result {
	text := StripMention(msg.Content, msg.BotID)

	opening, err := d.opts.Opener.Open(ctx, msg, text)
	if err != nil {
		var uerr *domain.UserError
		if errors.As(err, &uerr) {
			d.reply(ctx, log, msg, uerr.Reply)
			if uerr.Usage {
				return done(domain.StateRateChecked, domain.OutcomeUsage)
			}
			log.Warn("opening rejected", "err", err, "query", Truncate(text, 200))
			return failed(domain.StateRateChecked)
		}
		log.Error("opening failed", "err", err, "query", Truncate(text, 200))
		d.reply(ctx, log, msg, ReplyFailed)
		return failed(domain.StateRateChecked)
	}

	thread, err := d.opts.Messenger.CreateThread(ctx, msg, Truncate(opening.ThreadName, 100))
	if err != nil {
		log.Error("create thread failed", "err", err)
		d.reply(ctx, log, msg, ReplyThreadFailed)
		return failed(domain.StateRateChecked)
	}
	log = log.With("thread", thread.ID)

	release, ok, err := d.opts.Threads.Acquire(ctx, thread.ID)
	if err != nil || !ok {
		log.Error("new thread acquire failed", "err", err, "ok", ok)
		d.send(ctx, log, thread.ID, ReplyFailed)
		return failed(domain.StateRateChecked)
	}
	defer release()
	*stage = domain.StateThreadResolved

	if opening.Greeting != "" {
		d.send(ctx, log, thread.ID, opening.Greeting)
	}

	req := domain.AgentRequest{
		RunID:    thread.ID,
		UserID:   msg.Author.ID,
		UserName: msg.Author.Name,
		Profile:  opening.Profile,
		Message:  opening.Prompt,
		Images:   ImageURLs(msg.Attachments),
		Paper:    opening.Paper,
		Context:  opening.Context,
	}
	if err := d.opts.Agent.Open(ctx, req); err != nil {
		log.Error("agent open failed", "err", err)
		d.send(ctx, log, thread.ID, ReplyFailed)
		return failed(domain.StateThreadResolved)
	}

	if opening.Prompt == "" {
		if opening.FollowUp != "" {
			d.send(ctx, log, thread.ID, opening.FollowUp)
		}
		return done(domain.StateThreadResolved, domain.OutcomeOpened)
	}

	res := d.respond(ctx, log, thread.ID, req, stage)
	if res.State == domain.StateDone && opening.FollowUp != "" {
		d.send(ctx, log, thread.ID, opening.FollowUp)
	}
	return res
}

// respond cobre ThreadResolved -> Dispatched -> Responding -> Done.
// O chamador é dono do release da thread.
func (d *Dispatcher) respond(ctx context.Context, log *slog.Logger, channelID string, req domain.AgentRequest, stage *domain.State) domain.Result {
	releaseSlot, err := d.opts.Slots.Acquire(ctx)
	if err != nil {
		log.Warn("no agent slot", "err", err)
		d.send(ctx, log, channelID, ReplyOverloaded)
		return failed(domain.StateThreadResolved)
	}
	defer releaseSlot()
	*stage = domain.StateDispatched

	if err := d.opts.Messenger.Typing(ctx, channelID); err != nil {
		log.Debug("typing failed", "err", err)
	}

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, d.opts.AgentTimeout)
	answer, err := d.opts.Agent.Run(runCtx, req)
	cancel()
	releaseSlot()

	if err != nil {
		log.Error("agent run failed",
			"err", err,
			"query", Truncate(req.Message, 200),
			"elapsed", time.Since(started),
			"timeout", errors.Is(err, context.DeadlineExceeded),
		)
		d.send(ctx, log, channelID, ReplyFailed)
		return failed(domain.StateDispatched)
	}

	*stage = domain.StateResponding
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = ReplyEmptyAnswer
	}
	parts := []string{answer}
	if utf8.RuneCountInString(answer) > d.opts.MaxMessageLen {
		parts = application.Chunk(answer, d.opts.MaxMessageLen)
	}

	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := d.opts.Messenger.Send(ctx, channelID, p); err != nil {
			log.Error("send failed", "err", err, "chunk", i, "chunks", len(parts))
			return failed(domain.StateResponding)
		}
	}

	log.Info("answered", "chunks", len(parts), "elapsed", time.Since(started))
	return done(domain.StateResponding, domain.OutcomeAnswered)
}

func (d *Dispatcher) reply(ctx context.Context, log *slog.Logger, msg domain.InboundMessage, content string) {
	if err := d.opts.Messenger.Reply(ctx, msg, content); err != nil {
		log.Error("reply failed", "err", err)
	}
}

// apologize responde com a mensagem genérica de erro. Roda dentro do recover,
// então um pânico do próprio Messenger é contido aqui.
func (d *Dispatcher) apologize(ctx context.Context, log *slog.Logger, msg domain.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("apology panic", "panic", r)
		}
	}()
	d.reply(ctx, log, msg, ReplyFailed)
}

func (d *Dispatcher) send(ctx context.Context, log *slog.Logger, channelID, content string) {
	if err := d.opts.Messenger.Send(ctx, channelID, content); err != nil {
		log.Error("send failed", "err", err, "to", channelID)
	}
}

func (d *Dispatcher) record(ctx context.Context, msg domain.InboundMessage, res domain.Result) {
	if d.opts.Stats == nil || res.Outcome == domain.OutcomeIgnored {
		return
	}
	err := d.opts.Stats.Record(ctx, domain.StatsEvent{
		Key:     domain.Key(msg.Author.ID),
		Allowed: res.Outcome != domain.OutcomeRateLimited,
		Outcome: res.Outcome,
		Guild:   msg.GuildID,
		Channel: msg.ChannelID,
		At:      time.Now(),
	})
	if err != nil {
		d.log.Debug("stats record failed", "err", err)
	}
}

func done(stage domain.State, outcome domain.Outcome) domain.Result {
	return domain.Result{State: domain.StateDone, Stage: stage, Outcome: outcome}
}

func failed(stage domain.State) domain.Result {
	return domain.Result{State: domain.StateFailed, Stage: stage, Outcome: domain.OutcomeFailed}
}
