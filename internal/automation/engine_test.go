package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillpress/internal/db"
	"quillpress/internal/wordpress"
)

type fakeGenerator struct {
	mu         sync.Mutex
	topics     []string
	failArticle map[string]error
	failImage  map[string]error
	onGenerate func(topic string)
}

func (g *fakeGenerator) GenerateArticle(ctx context.Context, topic, tone, length string) (<-chan string, <-chan error) {
	g.mu.Lock()
	g.topics = append(g.topics, topic)
	g.mu.Unlock()

	if g.onGenerate != nil {
		g.onGenerate(topic)
	}

	chunks := make(chan string, 2)
	errs := make(chan error, 1)
	if err, ok := g.failArticle[topic]; ok {
		close(chunks)
		errs <- err
		return chunks, errs
	}
	chunks <- "## " + topic + "\n\n"
	chunks <- "Body text."
	close(chunks)
	errs <- nil
	return chunks, errs
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, topic string) (string, error) {
	if err, ok := g.failImage[topic]; ok {
		return "", err
	}
	return "img-" + topic, nil
}

func (g *fakeGenerator) generatedTopics() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.topics...)
}

type publishCall struct {
	content    string
	image      string
	scheduleAt *time.Time
	creds      wordpress.Credentials
}

type fakePublisher struct {
	mu     sync.Mutex
	calls  []publishCall
	failOn string
}

func (p *fakePublisher) Publish(ctx context.Context, creds wordpress.Credentials, markdownContent, imageBase64 string, scheduleAt *time.Time) (*wordpress.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOn != "" && strings.Contains(markdownContent, p.failOn) {
		return nil, errors.New("site rejected the post")
	}

	p.calls = append(p.calls, publishCall{
		content:    markdownContent,
		image:      imageBase64,
		scheduleAt: scheduleAt,
		creds:      creds,
	})
	return &wordpress.PublishResult{
		PostID: int64(len(p.calls)),
		URL:    fmt.Sprintf("https://blog.example.com/?p=%d", len(p.calls)),
	}, nil
}

type appendCall struct {
	topic   string
	content string
	image   string
}

type fakeHistory struct {
	mu      sync.Mutex
	appends []appendCall
	err     error
}

func (h *fakeHistory) Append(ctx context.Context, topic, content, image string) (*db.HistoryItem, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	h.appends = append(h.appends, appendCall{topic: topic, content: content, image: image})
	return &db.HistoryItem{ID: fmt.Sprintf("item-%d", len(h.appends)), Topic: topic}, nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeSink) SendJobEvent(event string, jobID, topic string, status JobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event+":"+topic)
}

func (s *fakeSink) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func testCreds() wordpress.Credentials {
	return wordpress.Credentials{
		URL:      "https://blog.example.com",
		Username: "editor",
		Password: "app-password",
	}
}

func TestRunArchivesToHistoryWhenNotPublishing(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{}
	hist := &fakeHistory{}

	engine := NewEngine(gen, pub, hist)
	err := engine.Run(context.Background(), []string{"Topic A", "Topic B"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, "Generated successfully and saved to history.", job.ResultMessage)
		assert.NotEmpty(t, job.ID)
	}

	assert.Empty(t, pub.calls, "publisher must not be called without auto publish")
	require.Len(t, hist.appends, 2)
	assert.Equal(t, "Topic A", hist.appends[0].topic)
	assert.Equal(t, "Topic B", hist.appends[1].topic)
	assert.Equal(t, "img-Topic A", hist.appends[0].image)
}

func TestRunPublishesInOrder(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{}
	hist := &fakeHistory{}

	engine := NewEngine(gen, pub, hist)
	topics := []string{"First", "Second", "Third"}
	err := engine.Run(context.Background(), topics, Settings{
		Tone:        ToneCasual,
		Length:      LengthShort,
		AutoPublish: true,
	}, testCreds())
	require.NoError(t, err)

	assert.Equal(t, topics, gen.generatedTopics(), "jobs must run in input order")
	require.Len(t, pub.calls, 3)
	for i, call := range pub.calls {
		assert.Contains(t, call.content, topics[i])
		assert.Nil(t, call.scheduleAt, "no schedule requested")
		assert.Equal(t, testCreds(), call.creds)
	}

	assert.Empty(t, hist.appends, "published posts are not archived")
	for _, job := range engine.Snapshot() {
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Contains(t, job.ResultMessage, "Published:")
		assert.Contains(t, job.ResultMessage, "View Post")
	}
}

func TestRunFailedJobDoesNotAbortQueue(t *testing.T) {
	gen := &fakeGenerator{
		failArticle: map[string]error{"Second": errors.New("model overloaded")},
	}
	pub := &fakePublisher{}
	hist := &fakeHistory{}

	engine := NewEngine(gen, pub, hist)
	err := engine.Run(context.Background(), []string{"First", "Second", "Third"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	require.Len(t, jobs, 3)
	assert.Equal(t, StatusCompleted, jobs[0].Status)
	assert.Equal(t, StatusError, jobs[1].Status)
	assert.Equal(t, "Generation failed: model overloaded", jobs[1].ResultMessage)
	assert.Equal(t, StatusCompleted, jobs[2].Status)

	require.Len(t, hist.appends, 2)
	assert.Equal(t, "First", hist.appends[0].topic)
	assert.Equal(t, "Third", hist.appends[1].topic)
}

func TestRunImageFailureFailsJob(t *testing.T) {
	gen := &fakeGenerator{
		failImage: map[string]error{"Only": errors.New("image quota exhausted")},
	}
	engine := NewEngine(gen, &fakePublisher{}, &fakeHistory{})

	err := engine.Run(context.Background(), []string{"Only"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, StatusError, jobs[0].Status)
	assert.Equal(t, "Generation failed: image quota exhausted", jobs[0].ResultMessage)
}

func TestRunPublishFailureIsIsolated(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{failOn: "Second"}
	hist := &fakeHistory{}

	engine := NewEngine(gen, pub, hist)
	err := engine.Run(context.Background(), []string{"First", "Second", "Third"}, Settings{
		Tone:        ToneProfessional,
		Length:      LengthMedium,
		AutoPublish: true,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	assert.Equal(t, StatusCompleted, jobs[0].Status)
	assert.Equal(t, StatusError, jobs[1].Status)
	assert.Equal(t, "Publishing failed: site rejected the post", jobs[1].ResultMessage)
	assert.Equal(t, StatusCompleted, jobs[2].Status)
}

func TestRunScheduleSlotsRotateAcrossDays(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{}

	engine := NewEngine(gen, pub, &fakeHistory{})
	topics := []string{"A", "B", "C", "D", "E"}
	start := time.Now()
	err := engine.Run(context.Background(), topics, Settings{
		Tone:          ToneProfessional,
		Length:        LengthMedium,
		AutoPublish:   true,
		SchedulePosts: true,
		PublishTimes:  []string{"09:00", "14:00", "18:00"},
	}, testCreds())
	require.NoError(t, err)

	require.Len(t, pub.calls, 5)
	wantSlots := []struct {
		dayOffset int
		hour      int
		minute    int
	}{
		{0, 9, 0},
		{0, 14, 0},
		{0, 18, 0},
		{1, 9, 0},
		{1, 14, 0},
	}
	for i, call := range pub.calls {
		require.NotNil(t, call.scheduleAt, "call %d must carry a schedule", i)
		want := start.AddDate(0, 0, wantSlots[i].dayOffset)
		assert.Equal(t, want.Year(), call.scheduleAt.Year())
		assert.Equal(t, want.Month(), call.scheduleAt.Month())
		assert.Equal(t, want.Day(), call.scheduleAt.Day())
		assert.Equal(t, wantSlots[i].hour, call.scheduleAt.Hour())
		assert.Equal(t, wantSlots[i].minute, call.scheduleAt.Minute())
	}
}

func TestRunFailedGenerationDoesNotConsumeSlot(t *testing.T) {
	gen := &fakeGenerator{
		failArticle: map[string]error{"B": errors.New("boom")},
	}
	pub := &fakePublisher{}

	engine := NewEngine(gen, pub, &fakeHistory{})
	err := engine.Run(context.Background(), []string{"A", "B", "C"}, Settings{
		Tone:          ToneProfessional,
		Length:        LengthMedium,
		AutoPublish:   true,
		SchedulePosts: true,
		PublishTimes:  []string{"09:00", "14:00"},
	}, testCreds())
	require.NoError(t, err)

	// C takes the second slot of day zero because B never reached scheduling.
	require.Len(t, pub.calls, 2)
	assert.Equal(t, 9, pub.calls[0].scheduleAt.Hour())
	assert.Equal(t, 14, pub.calls[1].scheduleAt.Hour())
	assert.Equal(t, pub.calls[0].scheduleAt.Day(), pub.calls[1].scheduleAt.Day())
}

func TestRunStopSettlesRemainingJobs(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakePublisher{}
	hist := &fakeHistory{}

	engine := NewEngine(gen, pub, hist)
	gen.onGenerate = func(topic string) {
		if topic == "First" {
			engine.Stop()
		}
	}

	err := engine.Run(context.Background(), []string{"First", "Second", "Third"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	// Only the first job generated; the stop was observed before its
	// archive step and before the second job started.
	assert.Equal(t, []string{"First"}, gen.generatedTopics())
	assert.Empty(t, hist.appends)
	assert.Empty(t, pub.calls)

	for _, job := range engine.Snapshot() {
		assert.Equal(t, StatusPending, job.Status)
		assert.Equal(t, "Automation stopped by user.", job.ResultMessage)
	}
}

func TestRunStopOnLastJobLeavesNoJobStuck(t *testing.T) {
	gen := &fakeGenerator{}
	engine := NewEngine(gen, &fakePublisher{}, &fakeHistory{})
	gen.onGenerate = func(topic string) {
		engine.Stop()
	}

	err := engine.Run(context.Background(), []string{"Only"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	require.Len(t, jobs, 1)
	assert.Equal(t, StatusPending, jobs[0].Status)
	assert.Equal(t, "Automation stopped by user.", jobs[0].ResultMessage)
}

func TestRunCompletedJobsSurviveStop(t *testing.T) {
	gen := &fakeGenerator{}
	hist := &fakeHistory{}
	engine := NewEngine(gen, &fakePublisher{}, hist)
	gen.onGenerate = func(topic string) {
		if topic == "Second" {
			engine.Stop()
		}
	}

	err := engine.Run(context.Background(), []string{"First", "Second", "Third"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	jobs := engine.Snapshot()
	assert.Equal(t, StatusCompleted, jobs[0].Status)
	assert.Equal(t, StatusPending, jobs[1].Status)
	assert.Equal(t, "Automation stopped by user.", jobs[1].ResultMessage)
	assert.Equal(t, StatusPending, jobs[2].Status)

	require.Len(t, hist.appends, 1)
	assert.Equal(t, "First", hist.appends[0].topic)
}

func TestRunRejectsEmptyTopics(t *testing.T) {
	engine := NewEngine(&fakeGenerator{}, &fakePublisher{}, &fakeHistory{})

	err := engine.Run(context.Background(), nil, Settings{}, testCreds())
	assert.Error(t, err)

	err = engine.Run(context.Background(), []string{"  ", "\t"}, Settings{}, testCreds())
	assert.Error(t, err)
}

func TestRunRejectsInvalidScheduleSlots(t *testing.T) {
	engine := NewEngine(&fakeGenerator{}, &fakePublisher{}, &fakeHistory{})

	err := engine.Run(context.Background(), []string{"Topic"}, Settings{
		AutoPublish:   true,
		SchedulePosts: true,
		PublishTimes:  []string{"25:00"},
	}, testCreds())
	assert.Error(t, err)

	err = engine.Run(context.Background(), []string{"Topic"}, Settings{
		AutoPublish:   true,
		SchedulePosts: true,
	}, testCreds())
	assert.Error(t, err, "scheduling with no slots must be rejected")
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGenerator{}
	gen.onGenerate = func(string) { <-release }

	engine := NewEngine(gen, &fakePublisher{}, &fakeHistory{})

	done := make(chan error, 1)
	go func() {
		done <- engine.Run(context.Background(), []string{"Slow"}, Settings{
			Tone:   ToneProfessional,
			Length: LengthMedium,
		}, testCreds())
	}()

	require.Eventually(t, engine.IsRunning, time.Second, 5*time.Millisecond)

	err := engine.Run(context.Background(), []string{"Other"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	assert.Error(t, err)

	close(release)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool { return !engine.IsRunning() }, time.Second, 5*time.Millisecond)
}

func TestRunEmitsJobEvents(t *testing.T) {
	sink := &fakeSink{}
	gen := &fakeGenerator{
		failArticle: map[string]error{"Bad": errors.New("boom")},
	}
	engine := NewEngine(gen, &fakePublisher{}, &fakeHistory{}, WithEventSink(sink))

	err := engine.Run(context.Background(), []string{"Good", "Bad"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"job_generating:Good",
		"job_completed:Good",
		"job_generating:Bad",
		"job_failed:Bad",
	}, sink.recorded())
}

func TestRunNotifierSeesEveryTransition(t *testing.T) {
	var mu sync.Mutex
	var snapshots [][]Job
	engine := NewEngine(&fakeGenerator{}, &fakePublisher{}, &fakeHistory{},
		WithNotifier(func(jobs []Job) {
			mu.Lock()
			snapshots = append(snapshots, jobs)
			mu.Unlock()
		}))

	err := engine.Run(context.Background(), []string{"Topic"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	// Initial pending snapshot, then generating, then completed.
	require.Len(t, snapshots, 3)
	assert.Equal(t, StatusPending, snapshots[0][0].Status)
	assert.Equal(t, StatusGenerating, snapshots[1][0].Status)
	assert.Equal(t, StatusCompleted, snapshots[2][0].Status)
}

func TestAtMostOneJobActiveAtATime(t *testing.T) {
	var mu sync.Mutex
	var maxActive int
	engine := NewEngine(&fakeGenerator{}, &fakePublisher{}, &fakeHistory{},
		WithNotifier(func(jobs []Job) {
			active := 0
			for _, job := range jobs {
				if job.Status == StatusGenerating || job.Status == StatusPublishing {
					active++
				}
			}
			mu.Lock()
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
		}))

	err := engine.Run(context.Background(), []string{"A", "B", "C", "D"}, Settings{
		Tone:        ToneProfessional,
		Length:      LengthMedium,
		AutoPublish: true,
	}, testCreds())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive)
}

func TestSnapshotIsACopy(t *testing.T) {
	engine := NewEngine(&fakeGenerator{}, &fakePublisher{}, &fakeHistory{})

	err := engine.Run(context.Background(), []string{"Topic"}, Settings{
		Tone:   ToneProfessional,
		Length: LengthMedium,
	}, testCreds())
	require.NoError(t, err)

	first := engine.Snapshot()
	first[0].Status = StatusError
	second := engine.Snapshot()
	assert.Equal(t, StatusCompleted, second[0].Status)
}
