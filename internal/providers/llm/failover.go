package llm

import (
	"context"
	"errors"
)

// Logger is the subset of the service logger used by provider wrappers.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Failover tries Primary and, if it fails, Secondary exactly once.
type Failover struct {
	Primary   Provider
	Secondary Provider
	logger    Logger
}

func NewFailover(primary, secondary Provider, log Logger) *Failover {
	return &Failover{Primary: primary, Secondary: secondary, logger: log}
}

func (f *Failover) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Failover) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	text, err := f.Primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	if f.logger != nil {
		f.logger.Warn("primary provider failed, trying secondary", map[string]interface{}{
			"primary":   f.Primary.Name(),
			"secondary": f.Secondary.Name(),
			"class":     FailureClass(err),
			"error":     err,
		})
	}

	text, secondErr := f.Secondary.Complete(ctx, req)
	if secondErr == nil {
		return text, nil
	}
	return "", errors.Join(err, secondErr)
}
