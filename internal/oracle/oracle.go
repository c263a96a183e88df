// Package oracle builds the confidence oracle named in the configuration.
package oracle

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mind-engage/gradevision/internal/config"
	"github.com/mind-engage/gradevision/internal/grading"
	"github.com/mind-engage/gradevision/internal/oracle/gemini"
	"github.com/mind-engage/gradevision/internal/oracle/natsoracle"
	"github.com/mind-engage/gradevision/internal/oracle/prompt"
)

// Always and Never answer without asking anyone.
var (
	Always grading.Oracle = grading.OracleFunc(func(context.Context, grading.Question) (bool, error) { return true, nil })
	Never  grading.Oracle = grading.OracleFunc(func(context.Context, grading.Question) (bool, error) { return false, nil })
)

// New returns the configured oracle and a func releasing what it holds.
// in and out are only used by the prompt oracle.
func New(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, log *slog.Logger) (grading.Oracle, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Oracle {
	case config.OraclePrompt, "":
		return prompt.New(in, out), noop, nil
	case config.OracleAlways:
		return Always, noop, nil
	case config.OracleNever:
		return Never, noop, nil
	case config.OracleGemini:
		o, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout, log)
		if err != nil {
			return nil, nil, err
		}
		return o, o.Close, nil
	case config.OracleNATS:
		nc, err := Connect(cfg.NATSURL)
		if err != nil {
			return nil, nil, err
		}
		return natsoracle.New(nc, cfg.NATSSubject, cfg.OracleTimeout), func() error { nc.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown oracle %q", cfg.Oracle)
	}
}

func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("gradevision"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}
