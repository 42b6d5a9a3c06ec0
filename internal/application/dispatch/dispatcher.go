package dispatch

import (
	"context"
	"log/slog"

	"github.com/go-batchform-api/internal/infrastructure/smtp"
	"github.com/go-batchform-api/internal/infrastructure/sns"
)

// EmailJob is one outbound notification: subject, recipient list, HTML body
// and a category tag for the consuming worker.
type EmailJob struct {
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients"`
	HTMLBody   string   `json:"html_body"`
	Category   string   `json:"category"`
}

// Dispatcher hands email jobs off without blocking the request path.
// Delivery is fire-and-forget: the contract is "enqueue succeeded or the
// job is skipped", and delivery failures are logged, never surfaced.
type Dispatcher interface {
	Enqueue(job EmailJob)
	Close()
}

type dispatcher struct {
	jobs      chan EmailJob
	done      chan struct{}
	publisher sns.JobPublisher // nil when no topic is configured
	mailer    smtp.Mailer
}

// New starts a dispatcher with a single worker draining the queue.
// When publisher is non-nil, jobs go to the external task runner (SNS);
// otherwise the worker delivers directly over SMTP.
func New(publisher sns.JobPublisher, mailer smtp.Mailer, queueSize int) Dispatcher {
	if queueSize < 1 {
		queueSize = 128
	}
	d := &dispatcher{
		jobs:      make(chan EmailJob, queueSize),
		done:      make(chan struct{}),
		publisher: publisher,
		mailer:    mailer,
	}
	go d.worker()
	return d
}

// Enqueue never blocks. A full queue drops the job with a warning.
func (d *dispatcher) Enqueue(job EmailJob) {
	select {
	case d.jobs <- job:
	default:
		slog.Warn("dispatch queue full, dropping email job", "subject", job.Subject, "category", job.Category)
	}
}

// Close stops accepting jobs and waits for the worker to drain the queue.
func (d *dispatcher) Close() {
	close(d.jobs)
	<-d.done
}

func (d *dispatcher) worker() {
	defer close(d.done)
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *dispatcher) deliver(job EmailJob) {
	if d.publisher != nil {
		if err := d.publisher.Publish(context.Background(), job.Subject, job, job.Category); err != nil {
			slog.Warn("failed to publish email job", "subject", job.Subject, "category", job.Category, "err", err)
		}
		return
	}
	if err := d.mailer.SendEmail(job.Recipients, job.Subject, job.HTMLBody); err != nil {
		slog.Warn("failed to send email", "subject", job.Subject, "category", job.Category, "err", err)
	}
}
