package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/escape"
	jobmetrics "github.com/akademi-id/akademi/internal/jobs"
)

const (
	// TaskAdminDigest mails administrators a summary of unhandled work.
	TaskAdminDigest = "admin:digest"
	// AdminDigestCron is 07:00 WIB; the scheduler runs in UTC.
	AdminDigestCron = "0 0 * * *"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DigestCounts is the backlog reported in the digest.
type DigestCounts struct {
	NewInquiries        int
	PendingApplications int
}

// Empty reports whether there is nothing to report.
func (c DigestCounts) Empty() bool {
	return c.NewInquiries == 0 && c.PendingApplications == 0
}

// DigestSource counts the backlog.
type DigestSource interface {
	DigestCounts(ctx context.Context) (DigestCounts, error)
}

// PGDigestSource counts the backlog in postgres.
type PGDigestSource struct {
	pool *pgxpool.Pool
}

// NewPGDigestSource constructs a PGDigestSource.
func NewPGDigestSource(pool *pgxpool.Pool) *PGDigestSource {
	return &PGDigestSource{pool: pool}
}

// DigestCounts implements DigestSource.
func (s *PGDigestSource) DigestCounts(ctx context.Context) (DigestCounts, error) {
	var c DigestCounts
	err := s.pool.QueryRow(ctx, `SELECT
	(SELECT COUNT(*) FROM inquiries WHERE status = 'NEW'),
	(SELECT COUNT(*) FROM applications WHERE status = 'PENDING')`).Scan(&c.NewInquiries, &c.PendingApplications)
	if err != nil {
		return DigestCounts{}, fmt.Errorf("jobs: digest counts: %w", err)
	}
	return c, nil
}

// AdminDigestJob mails the backlog summary to the admin inbox.
type AdminDigestJob struct {
	Source  DigestSource
	Sender  Sender
	To      string
	BaseURL string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAdminDigestJob constructs the job handler.
func NewAdminDigestJob(source DigestSource, sender Sender, to, baseURL string, logger *slog.Logger, metrics *jobmetrics.Metrics) *AdminDigestJob {
	return &AdminDigestJob{
		Source:  source,
		Sender:  sender,
		To:      to,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Logger:  logger,
		Metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// NewAdminDigestTask creates the scheduled task.
func NewAdminDigestTask() *asynq.Task {
	return asynq.NewTask(TaskAdminDigest, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(2))
}

// Handle executes the digest. An empty backlog sends nothing.
func (j *AdminDigestJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Source == nil || j.Sender == nil {
		return errors.New("admin digest: dependencies not configured")
	}
	if strings.TrimSpace(j.To) == "" {
		j.log().Info("admin digest skipped, no recipient configured")
		return nil
	}

	tracker := j.metrics().Track(ctx, TaskAdminDigest)
	counts, err := j.Source.DigestCounts(ctx)
	if err != nil {
		j.log().Error("count backlog", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().SetBacklog("inquiries", counts.NewInquiries)
	j.metrics().SetBacklog("applications", counts.PendingApplications)
	if counts.Empty() {
		return tracker.End(nil)
	}

	err = j.Sender.Send(ctx, SendEmailPayload{
		To:       j.To,
		Subject:  fmt.Sprintf("Ringkasan harian %s", j.now().Format("02 Jan 2006")),
		HTMLBody: j.body(counts),
	})
	if err != nil {
		j.log().Error("send digest", slog.Any("error", err))
	} else {
		j.log().Info("admin digest sent", slog.Int("inquiries", counts.NewInquiries), slog.Int("applications", counts.PendingApplications))
	}
	return tracker.End(err)
}

func (j *AdminDigestJob) body(c DigestCounts) string {
	var b strings.Builder
	b.WriteString("<p>Pesan kontak baru: <strong>")
	fmt.Fprintf(&b, "%d", c.NewInquiries)
	b.WriteString("</strong></p>\n<p>Pendaftaran menunggu keputusan: <strong>")
	fmt.Fprintf(&b, "%d", c.PendingApplications)
	b.WriteString("</strong></p>\n")
	if j.BaseURL != "" {
		link := escape.HTML(j.BaseURL + "/admin")
		b.WriteString(`<p><a href="` + link + `">` + link + "</a></p>\n")
	}
	return b.String()
}

func (j *AdminDigestJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AdminDigestJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAdminDigest))
	}
	return slog.Default().With(slog.String("job", TaskAdminDigest))
}

func (j *AdminDigestJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *AdminDigestJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
