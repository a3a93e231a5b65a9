package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"labelops/internal/access"
	"labelops/internal/chatdefaults"
	"labelops/internal/ingest"
	"labelops/internal/metrics"
)

var ErrInvalidClientID = errors.New("unknown client id")

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeRejected
	OutcomeIngested
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIngested:
		return "ingested"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

type Inbound struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type Result struct {
	Outcome Outcome
	Record  ingest.Record
}

type Status struct {
	DefaultClientID string
	ChatClientID    string
	Clients         []string
}

type Writer interface {
	Write(ctx context.Context, clientID, text string) (ingest.Record, error)
}

// Auditor records administrative changes. Optional.
type Auditor interface {
	RecordDefaultChange(ctx context.Context, chatID, userID int64, clientID string) error
}

type Config struct {
	AllowList       *access.AllowList
	Clients         ClientSet
	DefaultClientID string
	Defaults        chatdefaults.Store
	Writer          Writer
	Auditor         Auditor
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

type Pipeline struct {
	allow         *access.AllowList
	clients       ClientSet
	defaultClient string
	defaults      chatdefaults.Store
	writer        Writer
	auditor       Auditor
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

func NewPipeline(cfg Config) *Pipeline {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Pipeline{
		allow:         cfg.AllowList,
		clients:       cfg.Clients,
		defaultClient: cfg.DefaultClientID,
		defaults:      cfg.Defaults,
		writer:        cfg.Writer,
		auditor:       cfg.Auditor,
		logger:        cfg.Logger.With().Str("component", "routing").Logger(),
		metrics:       m,
	}
}

func (p *Pipeline) Allowed(chatID int64, username string) bool {
	return p.allow.IsAllowed(access.ChatIdentity{ChatID: chatID, Username: username})
}

// Ingest routes one inbound message. Unauthorized senders get OutcomeRejected
// and a nil error; nothing is written for them.
func (p *Pipeline) Ingest(ctx context.Context, in Inbound) (Result, error) {
	if !p.Allowed(in.ChatID, in.Username) {
		p.metrics.RejectedMessages.Inc()
		p.logger.Info().Int64("chat_id", in.ChatID).Msg("ignored message from non-allowlisted chat")
		return Result{Outcome: OutcomeRejected}, nil
	}

	chatDefault := p.defaultClient
	defaults, err := p.defaults.Load(ctx)
	if err != nil {
		// Keep the message: route it with the global default and leave the
		// broken file for an operator to inspect.
		p.logger.Error().Err(err).Int64("chat_id", in.ChatID).Msg("failed to load chat defaults, using global default")
	} else {
		chatDefault = defaults.GetDefault(in.ChatID, p.defaultClient)
	}
	clientID := ResolveClient(in.Text, chatDefault)

	rec, err := p.writer.Write(ctx, clientID, in.Text)
	if err != nil {
		p.metrics.IngestFailures.Inc()
		p.logger.Error().Err(err).Int64("chat_id", in.ChatID).Str("client_id", clientID).Msg("failed to persist message")
		return Result{}, fmt.Errorf("ingest message for %s: %w", clientID, err)
	}

	p.metrics.IngestedMessages.WithLabelValues(rec.ClientID).Inc()
	p.logger.Info().
		Int64("chat_id", in.ChatID).
		Str("client_id", rec.ClientID).
		Str("filename", rec.Path).
		Int("length", rec.Length).
		Str("ts", rec.Timestamp).
		Msg("ingested telegram message")
	return Result{Outcome: OutcomeIngested, Record: rec}, nil
}

// SetClient makes requested the default client for chatID. The id is matched
// case-insensitively against the configured clients and stored lowercased.
func (p *Pipeline) SetClient(ctx context.Context, chatID, userID int64, requested string) (string, error) {
	clientID, ok := p.clients.Lookup(requested)
	if !ok {
		return clientID, fmt.Errorf("%w: %q", ErrInvalidClientID, clientID)
	}

	defaults, err := p.defaults.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load chat defaults: %w", err)
	}
	defaults.Set(chatID, clientID)
	if err := p.defaults.Save(ctx, defaults); err != nil {
		return "", fmt.Errorf("save chat defaults: %w", err)
	}

	p.metrics.DefaultsChanged.WithLabelValues(clientID).Inc()
	p.logger.Info().Int64("chat_id", chatID).Int64("user_id", userID).Str("client_id", clientID).Msg("chat default client updated")
	if p.auditor != nil {
		if err := p.auditor.RecordDefaultChange(ctx, chatID, userID, clientID); err != nil {
			p.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to record audit entry")
		}
	}
	return clientID, nil
}

func (p *Pipeline) Status(ctx context.Context, chatID int64) (Status, error) {
	st := Status{
		DefaultClientID: p.defaultClient,
		ChatClientID:    p.defaultClient,
		Clients:         p.clients.List(),
	}
	defaults, err := p.defaults.Load(ctx)
	if err != nil {
		return st, fmt.Errorf("load chat defaults: %w", err)
	}
	st.ChatClientID = defaults.GetDefault(chatID, p.defaultClient)
	return st, nil
}

func (p *Pipeline) Clients() []string {
	return p.clients.List()
}
