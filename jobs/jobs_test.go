package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/akademi-id/akademi/internal/jobs"
)

type recordingSender struct {
	sent []SendEmailPayload
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg SendEmailPayload) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestNewSendEmailTaskRequiresRecipient(t *testing.T) {
	_, err := NewSendEmailTask(SendEmailPayload{Subject: "x"})
	assert.Error(t, err)

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@akademi.id", Subject: "Halo", HTMLBody: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, task.Type())
	var decoded SendEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "<p>x</p>", decoded.HTMLBody)
}

func TestSendEmailHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	sender := &recordingSender{}
	h := &SendEmailHandler{Sender: sender, Metrics: jobmetrics.NewMetrics(reg)}

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@akademi.id", Subject: "Halo"})
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), task))
	require.Len(t, sender.sent, 1)

	err = h.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{broken")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	sender.err = errors.New("relay down")
	assert.Error(t, h.Handle(context.Background(), task), "delivery failures are retried")

	count, err := testutil.GatherAndCount(reg, "akademi_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSMTPSenderComposesHTMLMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 2525, From: "noreply@akademi.id", Username: "u", Password: "p"})
	s.now = func() time.Time { return time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC) }
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), SendEmailPayload{To: "sari@example.com", Subject: "Pendaftaran diterima", HTMLBody: "<p>Halo Sari</p>"})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"sari@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, gotMsg, "Subject: Pendaftaran diterima\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\n<p>Halo Sari</p>"))
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@akademi.id"})
	called := false
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}
	err := s.Send(context.Background(), SendEmailPayload{To: "a@x.id\r\nBcc: all@x.id", Subject: "x"})
	assert.Error(t, err)
	assert.False(t, called)
}

type stubDigestSource struct {
	counts DigestCounts
	err    error
}

func (s stubDigestSource) DigestCounts(ctx context.Context) (DigestCounts, error) {
	return s.counts, s.err
}

func TestAdminDigestJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	sender := &recordingSender{}
	job := NewAdminDigestJob(stubDigestSource{counts: DigestCounts{NewInquiries: 3, PendingApplications: 1}}, sender, "admin@akademi.id", "https://akademi.id/", nil, metrics)
	job.WithClock(func() time.Time { return time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC) })

	require.NoError(t, job.Handle(context.Background(), NewAdminDigestTask()))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "admin@akademi.id", msg.To)
	assert.Equal(t, "Ringkasan harian 03 Jun 2024", msg.Subject)
	assert.Contains(t, msg.HTMLBody, "<strong>3</strong>")
	assert.Contains(t, msg.HTMLBody, `href="https://akademi.id/admin"`)

	expected := `
# HELP akademi_admin_backlog Items waiting for an administrator, sampled by the digest job.
# TYPE akademi_admin_backlog gauge
akademi_admin_backlog{kind="applications"} 1
akademi_admin_backlog{kind="inquiries"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "akademi_admin_backlog"))
}

func TestAdminDigestSkipsEmptyBacklog(t *testing.T) {
	sender := &recordingSender{}
	job := NewAdminDigestJob(stubDigestSource{}, sender, "admin@akademi.id", "", nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), NewAdminDigestTask()))
	assert.Empty(t, sender.sent)

	failing := NewAdminDigestJob(stubDigestSource{err: errors.New("db down")}, sender, "admin@akademi.id", "", nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	assert.Error(t, failing.Handle(context.Background(), NewAdminDigestTask()))

	var unconfigured *AdminDigestJob
	assert.Error(t, unconfigured.Handle(context.Background(), NewAdminDigestTask()))
}

type stubInspector struct {
	info     *asynq.QueueInfo
	err      error
	requeued int
}

func (s *stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func (s *stubInspector) RunAllArchivedTasks(queue string) (int, error) {
	return s.requeued, s.err
}

func serveJobs(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestQueueHealth(t *testing.T) {
	h := NewHandler(&stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Archived: 1}}, nil)
	rr := serveJobs(h, http.MethodGet, "/jobs/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"retry":0,"archived":1}`, rr.Body.String())

	down := NewHandler(&stubInspector{err: errors.New("redis down")}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, serveJobs(down, http.MethodGet, "/jobs/health").Code)
}

func TestRetryArchived(t *testing.T) {
	h := NewHandler(&stubInspector{requeued: 4}, nil)
	rr := serveJobs(h, http.MethodPost, "/jobs/archived/retry")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"requeued":4}`, rr.Body.String())

	assert.Equal(t, http.StatusServiceUnavailable, serveJobs(NewHandler(nil, nil), http.MethodPost, "/jobs/archived/retry").Code)
}
