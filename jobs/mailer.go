package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// SMTPConfig carries outbound mail settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// MailJob delivers queued mail over SMTP.
type MailJob struct {
	Config SMTPConfig
	Logger *slog.Logger

	// send is swapped in tests.
	send func(addr, from string, to []string, msg []byte) error
}

// NewMailJob initialises the mail delivery handler.
func NewMailJob(cfg SMTPConfig, logger *slog.Logger) *MailJob {
	return &MailJob{
		Config: cfg,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", j.Config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(payload.Body)

	addr := fmt.Sprintf("%s:%d", j.Config.Host, j.Config.Port)
	if err := j.send(addr, j.Config.From, []string{payload.To}, []byte(msg.String())); err != nil {
		j.Logger.Warn("send mail", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.Logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}
