package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
)

var otpTemplate = template.Must(template.New("otp").Option("missingkey=zero").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <p>Hello,</p>
    <p>Your {{.product}} verification code is:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.code}}</p>
    <p>The code expires in {{.expiry_minutes}} minutes. If you did not request it, you can ignore this email.</p>
    <p style="font-size: 12px; color: #888;">&copy; {{.year}} {{.product}}</p>
  </body>
</html>
`))

type Mail struct {
	client  mail.Mail
	ins     instrument.Instrumentation
	clock   clock.Clocker
	product string
}

func New(client mail.Mail, ins instrument.Instrumentation, clk clock.Clocker, product string) *Mail {
	return &Mail{client: client, ins: ins, clock: clk, product: product}
}

// SendOTP renders the code email and hands it to the mail provider.
func (m *Mail) SendOTP(ctx context.Context, to, code string, expiry time.Duration) error {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "SendOTP")
	defer span.End()

	minutes := max(int64(expiry.Minutes()), 1)

	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, map[string]any{
		"product":        m.product,
		"code":           code,
		"expiry_minutes": minutes,
		"year":           m.clock.Now().Format("2006"),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Send(ctx, mail.Message{
		To:       []string{to},
		Subject:  fmt.Sprintf("Your %s verification code", m.product),
		TextBody: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
		HTMLBody: body.String(),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
