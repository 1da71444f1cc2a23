package email

import (
	"context"
	"log/slog"

	"github.com/viralforge/intranet/credential-service/internal/ports"
)

// LogDispatcher renders the message and logs its envelope instead of sending
// it. The body is never logged since it carries single-use tokens.
type LogDispatcher struct {
	logger   *slog.Logger
	renderer *Renderer
	from     string
}

func NewLogDispatcher(logger *slog.Logger, renderer *Renderer, from string) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger, renderer: renderer, from: from}
}

func (d *LogDispatcher) Send(ctx context.Context, msg ports.EmailMessage) error {
	rendered, err := d.renderer.Render(msg)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "email dispatched",
		"module", "email",
		"layer", "adapter",
		"operation", "send_email",
		"outcome", "success",
		"driver", "log",
		"from", d.from,
		"recipient", msg.To,
		"template", string(msg.Template),
		"subject", rendered.Subject,
		"body_bytes", len(rendered.Body),
	)
	return nil
}
