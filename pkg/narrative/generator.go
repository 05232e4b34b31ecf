// Package narrative turns window summaries into LLM-written prose.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/capsule/pkg/report"
)

// Defaults for a Generator.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultTemperature = 0.7
)

// ErrNoCompleter is reported when the generator has no LLM client.
var ErrNoCompleter = errors.New("no language model configured")

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a single chat completion request.
type Request struct {
	Messages    []Message
	Temperature float32
}

// Completer sends one chat completion request and returns the text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout bounds the single completion request.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// Generator builds the analysis prompt and asks the LLM for a narrative.
type Generator struct {
	completer   Completer
	timeout     time.Duration
	temperature float32
	logger      *slog.Logger
}

// NewGenerator creates a generator. completer may be nil, in which case
// every call yields the unavailable message.
func NewGenerator(completer Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:   completer,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the narrative for s. It never fails: any error from
// the LLM is rendered with Unavailable.
func (g *Generator) Generate(ctx context.Context, s report.Summary, label string) string {
	text, err := g.generate(ctx, s, label)
	if err != nil {
		g.logger.Warn("narrative generation failed", "label", label, "error", err)
		return Unavailable(err)
	}
	return text
}

func (g *Generator) generate(ctx context.Context, s report.Summary, label string) (string, error) {
	if g.completer == nil {
		return "", ErrNoCompleter
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.completer.Complete(ctx, Request{
		Messages:    []Message{{Role: "user", Content: BuildPrompt(s, label)}},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("empty completion")
	}
	g.logger.Debug("narrative generated", "label", label, "duration", time.Since(start))
	return text, nil
}

// Unavailable is the text shown in place of a narrative that failed.
func Unavailable(err error) string {
	return fmt.Sprintf("⚠️ AI 分析暂时不可用: %v\n\n请查看上方的统计数据。", err)
}

var _ report.Narrator = (*Generator)(nil)
