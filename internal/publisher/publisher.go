package publisher

import (
	"context"

	"github.com/ryosukesatoh/stock-digest/internal/report"
)

// Publisher delivers an assembled report to some output destination.
type Publisher interface {
	Publish(ctx context.Context, r *report.Report, subject string) error
}
