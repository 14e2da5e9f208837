package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types"
)

//////////////////////////////////////////////////////////////
// CORE LOGIC
//////////////////////////////////////////////////////////////

var errEmptyCompletion = errors.New("LLM returned an empty reply")

// Sender identifies who wrote an inbound message. A contact can write from
// their phone number JID or from a hidden-user LID; when the server reports the
// other address it is kept in AltID/AltJID.
type Sender struct {
	ID     SenderID
	Name   string
	JID    types.JID
	AltID  SenderID
	AltJID types.JID
}

// Key is the id the sender's conversation is stored under: the phone number
// when the message came from a LID and the phone form is known.
func (s Sender) Key() SenderID {
	if s.JID.Server == types.HiddenUserServer && s.AltJID.Server == types.DefaultUserServer && s.AltID != "" {
		return s.AltID
	}
	return s.ID
}

// isWhitelisted matches either address of the sender.
func (r *Router) isWhitelisted(s Sender) bool {
	if r.whitelist.Contains(s.ID) {
		return true
	}
	return s.AltID != "" && r.whitelist.Contains(s.AltID)
}

// Message is an inbound message as the router sees it.
type Message struct {
	ID        types.MessageID
	Chat      types.JID
	Sender    Sender
	Text      string
	Private   bool
	FromSelf  bool
	Timestamp time.Time
}

// Transport is the messaging account the router reads from and answers on.
type Transport interface {
	MarkRead(ctx context.Context, msg Message) error
	SetComposing(ctx context.Context, chat types.JID, composing bool) error
	SendText(ctx context.Context, chat types.JID, text string) error
}

// ChatBackend produces the next model turn for a conversation.
type ChatBackend interface {
	Reply(ctx context.Context, history []Turn, text string) (string, error)
}

// RouterConfig holds the router's fixed inputs.
type RouterConfig struct {
	Persona       string
	OpeningLine   string
	Delay         Delay
	TypingRefresh time.Duration
}

// Router decides which messages get an automated answer and produces it.
type Router struct {
	transport Transport
	backend   ChatBackend
	whitelist *Whitelist
	sessions  *SessionStore
	cfg       RouterConfig
	metrics   *RouterMetrics
	log       zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error

	wg     sync.WaitGroup
	qmu    sync.Mutex
	queues map[SenderID]*senderQueue
}

// senderQueue holds the messages waiting behind the one being handled for a sender.
type senderQueue struct {
	pending []Message
}

func NewRouter(t Transport, b ChatBackend, w *Whitelist, cfg RouterConfig, metrics *RouterMetrics, log zerolog.Logger) *Router {
	if cfg.OpeningLine == "" {
		cfg.OpeningLine = defaultOpeningLine
	}
	if cfg.TypingRefresh <= 0 {
		cfg.TypingRefresh = DEFAULT_TYPING_TICK
	}
	return &Router{
		transport: t,
		backend:   b,
		whitelist: w,
		sessions:  NewSessionStore(),
		cfg:       cfg,
		metrics:   metrics,
		log:       log,
		sleep:     sleepContext,
		queues:    make(map[SenderID]*senderQueue),
	}
}

// Sessions exposes the router's conversation state.
func (r *Router) Sessions() *SessionStore {
	return r.sessions
}

// Dispatch queues msg behind earlier messages from the same sender and returns
// without waiting for the reply. Each sender with pending messages has one
// worker goroutine, so one sender's messages are handled in arrival order while
// different senders proceed concurrently.
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	key := msg.Sender.Key()
	r.wg.Add(1)

	r.qmu.Lock()
	if q, busy := r.queues[key]; busy {
		q.pending = append(q.pending, msg)
		r.qmu.Unlock()
		return
	}
	r.queues[key] = &senderQueue{}
	r.qmu.Unlock()

	go r.drain(ctx, key, msg)
}

// drain handles msg and then every message queued behind it for key.
func (r *Router) drain(ctx context.Context, key SenderID, msg Message) {
	for {
		r.Handle(ctx, msg)
		r.wg.Done()

		r.qmu.Lock()
		q := r.queues[key]
		if len(q.pending) == 0 {
			delete(r.queues, key)
			r.qmu.Unlock()
			return
		}
		msg = q.pending[0]
		q.pending = q.pending[1:]
		r.qmu.Unlock()
	}
}

// Wait blocks until every dispatched message has been handled.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Handle processes one inbound message. Failures are logged; the sender never hears about them.
func (r *Router) Handle(ctx context.Context, msg Message) Outcome {
	outcome := r.handle(ctx, msg)
	r.metrics.ObserveOutcome(outcome)
	return outcome
}

func (r *Router) handle(ctx context.Context, msg Message) Outcome {
	if !msg.Private {
		return OutcomeIgnoredNotPrivate
	}
	if msg.FromSelf {
		return OutcomeIgnoredSelf
	}

	logCtx := r.log.With().
		Str("sender_id", string(msg.Sender.ID)).
		Str("sender_name", msg.Sender.Name)
	if msg.Sender.AltID != "" {
		logCtx = logCtx.Str("sender_alt", string(msg.Sender.AltID))
	}
	log := logCtx.Logger()

	if r.isWhitelisted(msg.Sender) {
		log.Info().Msg("Ignoring message from whitelisted user")
		return OutcomeIgnoredWhitelisted
	}
	if strings.TrimSpace(msg.Text) == "" {
		log.Debug().Str("message_id", msg.ID).Msg("Ignoring message without text")
		return OutcomeIgnoredEmpty
	}

	log.Info().Str("text", msg.Text).Msg("Received new message from UNKNOWN sender")

	session, created := r.sessions.GetOrCreate(msg.Sender.Key(), seedTranscript(r.cfg.Persona, r.cfg.OpeningLine))
	if created {
		log.Info().Msg("Starting new conversation history")
		r.metrics.SessionCreated()
	}

	session.Lock()
	defer session.Unlock()

	log = log.With().Str("turn_id", uuid.NewString()).Logger()
	reply, err := r.reply(ctx, session, msg, log)
	if err != nil {
		log.Error().Err(err).Msg("An error occurred while handling message")
		return OutcomeFailed
	}

	// Only delivered exchanges are recorded.
	session.Append(Turn{Role: RoleUser, Text: msg.Text}, Turn{Role: RoleModel, Text: reply})
	return OutcomeReplied
}

func (r *Router) reply(ctx context.Context, session *Session, msg Message, log zerolog.Logger) (string, error) {
	if err := r.transport.MarkRead(ctx, msg); err != nil {
		log.Warn().Err(err).Msg("Failed to mark message as read")
	}

	stopTyping, err := startComposing(ctx, r.transport, msg.Chat, r.cfg.TypingRefresh, log)
	if err != nil {
		return "", fmt.Errorf("typing indicator: %w", err)
	}
	defer stopTyping()

	delay := r.cfg.Delay.Draw()
	log.Info().Dur("delay", delay).Msg("Simulating typing")
	r.metrics.ObserveDelay(delay.Seconds())
	if err := r.sleep(ctx, delay); err != nil {
		return "", fmt.Errorf("typing delay: %w", err)
	}

	reply, err := r.backend.Reply(ctx, session.Transcript(), msg.Text)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyCompletion
	}
	stopTyping()

	log.Info().Str("reply", reply).Msg("Generated reply")
	if err := r.transport.SendText(ctx, msg.Chat, reply); err != nil {
		return "", fmt.Errorf("send reply: %w", err)
	}
	return reply, nil
}
