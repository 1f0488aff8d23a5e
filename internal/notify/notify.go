// Package notify turns domain events into queued emails. Bodies are built by
// hand and every user-supplied value is escaped.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/akademi-id/akademi/internal/account"
	"github.com/akademi-id/akademi/internal/admission"
	"github.com/akademi-id/akademi/internal/escape"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/inquiry"
	"github.com/akademi-id/akademi/jobs"
)

const enqueueTimeout = 5 * time.Second

// Enqueuer queues a mail:send task.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Config addresses the outgoing mail.
type Config struct {
	AdminEmail string
	BaseURL    string
}

// Notifier enqueues notification emails in the background. Failures are
// logged and never reach the request that triggered them.
type Notifier struct {
	queue  Enqueuer
	cfg    Config
	loc    *i18n.Localizer
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New constructs a Notifier.
func New(queue Enqueuer, cfg Config, loc *i18n.Localizer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Notifier{queue: queue, cfg: cfg, loc: loc, logger: logger}
}

var (
	_ inquiry.Notifier   = (*Notifier)(nil)
	_ admission.Notifier = (*Notifier)(nil)
	_ account.Notifier   = (*Notifier)(nil)
)

// InquiryReceived tells the admin inbox about a contact form message.
func (n *Notifier) InquiryReceived(ctx context.Context, inq inquiry.Inquiry) {
	if n.cfg.AdminEmail == "" {
		return
	}
	var b strings.Builder
	row(&b, "Nama", inq.Name)
	row(&b, "Email", inq.Email)
	row(&b, "Nomor HP", inq.Phone)
	row(&b, "Subjek", inq.Subject)
	paragraph(&b, inq.Message)
	n.link(&b, "/admin/inquiries")
	n.send(ctx, jobs.SendEmailPayload{
		To:       n.cfg.AdminEmail,
		Subject:  n.loc.T(i18n.MsgInquirySubject, inq.Name),
		HTMLBody: b.String(),
	})
}

// ApplicationReceived confirms an application to the applicant and copies
// the admin inbox.
func (n *Notifier) ApplicationReceived(ctx context.Context, app admission.Application) {
	var b strings.Builder
	b.WriteString("<p>Halo " + escape.HTML(app.FullName) + ",</p>\n")
	b.WriteString("<p>" + escape.HTML(n.loc.T(i18n.MsgAdmissionSent)) + ".</p>\n")
	if app.CourseTitle != "" {
		row(&b, "Program", app.CourseTitle)
	}
	paragraph(&b, app.Motivation)
	if app.Email != "" {
		n.send(ctx, jobs.SendEmailPayload{
			To:       app.Email,
			Subject:  n.loc.T(i18n.MsgAdmissionSubject),
			HTMLBody: b.String(),
		})
	}
	if n.cfg.AdminEmail != "" {
		var admin strings.Builder
		row(&admin, "Nama", app.FullName)
		row(&admin, "Email", app.Email)
		row(&admin, "Nomor HP", app.Phone)
		paragraph(&admin, app.Motivation)
		n.link(&admin, "/admin/applications")
		n.send(ctx, jobs.SendEmailPayload{
			To:       n.cfg.AdminEmail,
			Subject:  n.loc.T(i18n.MsgAdmissionSubject) + ": " + app.FullName,
			HTMLBody: admin.String(),
		})
	}
}

// PasswordResetRequested mails the reset link.
func (n *Notifier) PasswordResetRequested(ctx context.Context, u account.User, token string) {
	var b strings.Builder
	b.WriteString("<p>Halo " + escape.HTML(u.Name) + ",</p>\n")
	b.WriteString(fmt.Sprintf("<p>Tautan berikut berlaku selama %d menit.</p>\n", int(account.ResetTokenTTL.Minutes())))
	n.link(&b, "/password/reset?token="+url.QueryEscape(token))
	n.send(ctx, jobs.SendEmailPayload{
		To:       u.Email,
		Subject:  n.loc.T(i18n.MsgPasswordResetMail),
		HTMLBody: b.String(),
	})
}

// Wait blocks until every pending enqueue has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(ctx context.Context, payload jobs.SendEmailPayload) {
	if n.queue == nil {
		return
	}
	payload.Subject = strings.Join(strings.Fields(payload.Subject), " ")
	// The request context is cancelled once the response is written.
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, enqueueTimeout)
		defer cancel()
		if err := n.queue.EnqueueSendEmail(ctx, payload); err != nil {
			n.logger.Error("enqueue email", slog.String("subject", payload.Subject), slog.Any("error", err))
		}
	}()
}

func (n *Notifier) link(b *strings.Builder, path string) {
	if n.cfg.BaseURL == "" {
		return
	}
	href := escape.HTML(n.cfg.BaseURL + path)
	b.WriteString(`<p><a href="` + href + `">` + href + "</a></p>\n")
}

func row(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString("<p><strong>" + label + ":</strong> " + escape.HTML(value) + "</p>\n")
}

func paragraph(b *strings.Builder, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.WriteString("<p>" + strings.ReplaceAll(escape.HTML(text), "\n", "<br>") + "</p>\n")
}
