package automation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"quillpress/internal/db"
	"quillpress/internal/wordpress"
)

const stoppedMessage = "Automation stopped by user."

// ContentGenerator produces article text as a finite chunk stream plus a
// header image. The chunk channel is closed when the stream ends; the error
// channel then yields exactly one value (nil on success).
type ContentGenerator interface {
	GenerateArticle(ctx context.Context, topic, tone, length string) (<-chan string, <-chan error)
	GenerateImage(ctx context.Context, topic string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, creds wordpress.Credentials, markdownContent, imageBase64 string, scheduleAt *time.Time) (*wordpress.PublishResult, error)
}

type HistoryStore interface {
	Append(ctx context.Context, topic, content, image string) (*db.HistoryItem, error)
}

// EventSink receives job lifecycle events. The engine never blocks on it.
type EventSink interface {
	SendJobEvent(event string, jobID, topic string, status JobStatus, errMsg string)
}

// RunEventSink is an optional extension of EventSink for observers that also
// want run-level start and finish notifications.
type RunEventSink interface {
	SendRunEvent(event string, jobCount int)
}

// Engine drives a topic list through generate -> publish/archive, one job at
// a time. Jobs are processed strictly in input order; a job's failure never
// aborts the run. Cancellation is cooperative: Stop sets a flag that is
// checked at the top of each iteration and again right after generation, so
// an in-flight backend call always completes or fails on its own.
type Engine struct {
	generator ContentGenerator
	publisher Publisher
	history   HistoryStore
	events    EventSink
	notify    func([]Job)

	mu      sync.Mutex
	jobs    []*Job
	running bool
	stop    atomic.Bool
}

type Option func(*Engine)

// WithEventSink forwards job transitions to an external observer such as the
// webhook sender.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// WithNotifier registers a callback that receives a full queue snapshot after
// every status change, sufficient for a UI to re-render the list idempotently.
func WithNotifier(fn func([]Job)) Option {
	return func(e *Engine) { e.notify = fn }
}

func NewEngine(generator ContentGenerator, publisher Publisher, history HistoryStore, opts ...Option) *Engine {
	e := &Engine{
		generator: generator,
		publisher: publisher,
		history:   history,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes topics end-to-end under one settings and credentials
// snapshot. It blocks until the queue is exhausted or a stop request is
// observed; per-job failures are recorded on the job, never returned.
func (e *Engine) Run(ctx context.Context, topics []string, settings Settings, creds wordpress.Credentials) error {
	topics = filterBlank(topics)
	if len(topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}
	if settings.AutoPublish && settings.SchedulePosts {
		if err := ValidateSlots(settings.PublishTimes); err != nil {
			return err
		}
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("automation run already in progress")
	}
	e.running = true
	e.stop.Store(false)

	jobs := make([]*Job, len(topics))
	for i, topic := range topics {
		jobs[i] = &Job{ID: uuid.NewString(), Topic: topic, Status: StatusPending}
	}
	e.jobs = jobs
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.emitSnapshot()
	e.emitRunEvent("run_started", len(jobs))
	log.Printf("[engine] run started: %d jobs, auto_publish=%t schedule=%t", len(jobs), settings.AutoPublish, settings.SchedulePosts)

	scheduled := 0
	for _, job := range jobs {
		if e.stop.Load() {
			e.settleInterrupted()
			break
		}

		e.transition(job, StatusGenerating, "")
		content, image, err := e.generate(ctx, job.Topic, settings)
		if err != nil {
			e.transition(job, StatusError, "Generation failed: "+err.Error())
			continue
		}

		// Stop observed mid-job: skip the publish/archive stage. The job is
		// settled to pending together with the rest of the queue.
		if e.stop.Load() {
			continue
		}

		if settings.AutoPublish {
			e.transition(job, StatusPublishing, "")

			var scheduleAt *time.Time
			if settings.SchedulePosts {
				at, err := NextSlot(scheduled, settings.PublishTimes, time.Now())
				if err != nil {
					e.transition(job, StatusError, "Publishing failed: "+err.Error())
					continue
				}
				scheduled++
				scheduleAt = &at
			}

			result, err := e.publisher.Publish(ctx, creds, content, image, scheduleAt)
			if err != nil {
				e.transition(job, StatusError, "Publishing failed: "+err.Error())
				continue
			}
			e.transition(job, StatusCompleted, fmt.Sprintf(`Published: <a href=%q class="underline" target="_blank">View Post</a>`, result.URL))
		} else {
			if _, err := e.history.Append(ctx, job.Topic, content, image); err != nil {
				log.Printf("[engine] history append failed for %q: %v", job.Topic, err)
			}
			e.transition(job, StatusCompleted, "Generated successfully and saved to history.")
		}
	}

	// A stop observed right after the last job's generation would otherwise
	// leave that job parked in "generating" forever.
	if e.stop.Load() {
		e.settleInterrupted()
	}

	e.emitRunEvent("run_finished", len(jobs))
	log.Printf("[engine] run finished")
	return nil
}

func (e *Engine) emitSnapshot() {
	if e.notify != nil {
		e.notify(e.Snapshot())
	}
}

func (e *Engine) emitRunEvent(event string, jobCount int) {
	if sink, ok := e.events.(RunEventSink); ok {
		sink.SendRunEvent(event, jobCount)
	}
}

// Stop requests cancellation. In-flight generation or publish calls are not
// interrupted; the request takes effect at the next checkpoint.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Snapshot returns a copy of the current queue for display.
func (e *Engine) Snapshot() []Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() []Job {
	out := make([]Job, len(e.jobs))
	for i, job := range e.jobs {
		out[i] = *job
	}
	return out
}

func (e *Engine) generate(ctx context.Context, topic string, settings Settings) (string, string, error) {
	chunks, errs := e.generator.GenerateArticle(ctx, topic, settings.Tone, settings.Length)

	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return "", "", err
	}

	image, err := e.generator.GenerateImage(ctx, topic)
	if err != nil {
		return "", "", err
	}
	return sb.String(), image, nil
}

func (e *Engine) transition(job *Job, status JobStatus, message string) {
	e.mu.Lock()
	job.Status = status
	job.ResultMessage = message
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if e.events != nil {
		e.events.SendJobEvent(eventFor(status), job.ID, job.Topic, status, errMessageFor(status, message))
	}
	if e.notify != nil {
		e.notify(snapshot)
	}
}

// settleInterrupted resets every job that has not reached a terminal status
// back to pending with an explanatory message, so the UI can tell interrupted
// jobs apart from finished ones.
func (e *Engine) settleInterrupted() {
	e.mu.Lock()
	changed := false
	for _, job := range e.jobs {
		if job.Status.Terminal() {
			continue
		}
		if job.Status != StatusPending || job.ResultMessage != stoppedMessage {
			job.Status = StatusPending
			job.ResultMessage = stoppedMessage
			changed = true
		}
	}
	var snapshot []Job
	if changed {
		snapshot = e.snapshotLocked()
	}
	e.mu.Unlock()

	if changed && e.notify != nil {
		e.notify(snapshot)
	}
}

func eventFor(status JobStatus) string {
	switch status {
	case StatusGenerating:
		return "job_generating"
	case StatusPublishing:
		return "job_publishing"
	case StatusCompleted:
		return "job_completed"
	case StatusError:
		return "job_failed"
	default:
		return "job_pending"
	}
}

func errMessageFor(status JobStatus, message string) string {
	if status == StatusError {
		return message
	}
	return ""
}

func filterBlank(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
