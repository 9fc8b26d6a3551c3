package mail

import (
	"context"
	"io"
	"log/slog"
)

// Message represents an email payload.
type Message struct {
	// From overrides the sender configured on the implementation.
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	// TextBody is the plain-text alternative.
	TextBody string
	// HTMLBody is sent as multipart/alternative when TextBody is also set.
	HTMLBody string
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Log is a Mail that only logs. Bodies are never logged because they carry codes.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (*Log) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To)+len(msg.Cc)+len(msg.Bcc) == 0 {
		return ErrSMTPNoRecipients
	}
	slog.InfoContext(ctx, "email sent to log sink", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (*Log) Close() error { return nil }
