package automation

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusGenerating JobStatus = "generating"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Terminal reports whether a job in this status will not be touched again,
// including by a stop request.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is one topic's journey through generate -> publish/archive. Jobs are
// mutated in place by the engine; everyone else sees copies via Snapshot.
type Job struct {
	ID            string    `json:"id"`
	Topic         string    `json:"topic"`
	Status        JobStatus `json:"status"`
	ResultMessage string    `json:"result_message,omitempty"`
}

const (
	ToneProfessional = "Professional"
	ToneCasual       = "Casual"
	ToneHumorous     = "Humorous"
	ToneFormal       = "Formal"
	ToneInformative  = "Informative"
)

const (
	LengthShort    = "Short (approx. 300 words)"
	LengthMedium   = "Medium (approx. 600 words)"
	LengthLong     = "Long (approx. 1000 words)"
	LengthVeryLong = "Very Long (approx. 3000 words)"
)

func ValidTone(t string) bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneHumorous, ToneFormal, ToneInformative:
		return true
	}
	return false
}

func ValidLength(l string) bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong, LengthVeryLong:
		return true
	}
	return false
}

// Settings is the configuration snapshot for one automation run.
type Settings struct {
	Tone          string   `json:"tone"`
	Length        string   `json:"length"`
	AutoPublish   bool     `json:"auto_publish"`
	SchedulePosts bool     `json:"schedule_posts"`
	PublishTimes  []string `json:"publish_times"`
}
