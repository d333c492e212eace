package publisher

import (
	"context"
	"fmt"

	"github.com/ryosukesatoh/stock-digest/internal/report"
)

// StdoutPublisher prints the rendered report, useful for local runs without
// SMTP credentials.
type StdoutPublisher struct{}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{}
}

func (p *StdoutPublisher) Publish(_ context.Context, r *report.Report, subject string) error {
	html, err := Render(r)
	if err != nil {
		return err
	}
	fmt.Printf("Subject: %s\n\n%s\n", subject, html)
	return nil
}
