package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Recording statuses accepted by Recordings.
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
)

// Timestamp accepts RFC 3339 times and the service's zone-less ISO format.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("scoring: unrecognised time %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time)
}

// SubmittedRecording is one of the student's past takes, including any
// feedback a teacher added after it was scored.
type SubmittedRecording struct {
	ID                   int        `json:"id"`
	WordText             string     `json:"word_text"`
	AudioFilePath        string     `json:"audio_file_path"`
	Scores               *Scores    `json:"automated_scores,omitempty"`
	TeacherFeedback      string     `json:"teacher_feedback,omitempty"`
	TeacherAudioFeedback string     `json:"teacher_audio_feedback_url,omitempty"`
	TeacherGrade         string     `json:"teacher_grade,omitempty"`
	Status               string     `json:"status"`
	FlagForPractice      bool       `json:"flag_for_practice"`
	IsAutomatedFeedback  bool       `json:"is_automated_feedback"`
	CreatedAt            Timestamp  `json:"created_at"`
	ReviewedAt           *Timestamp `json:"reviewed_at,omitempty"`
}

// RecentRecording is the short form listed in Progress.
type RecentRecording struct {
	ID        int       `json:"id"`
	WordText  string    `json:"word_text"`
	Score     float64   `json:"score"`
	CreatedAt Timestamp `json:"created_at"`
	Status    string    `json:"status"`
}

// Progress summarises a student's practice over a period.
type Progress struct {
	WordsPracticed   int               `json:"words_practiced"`
	AverageScore     float64           `json:"average_score"`
	TotalAttempts    int               `json:"total_attempts"`
	StreakCount      int               `json:"streak_count"`
	RecentRecordings []RecentRecording `json:"recent_recordings"`
}

// Recordings lists the student's submitted recordings, newest first.
// status is "", StatusPending or StatusReviewed.
func (c *Client) Recordings(ctx context.Context, status string) ([]SubmittedRecording, error) {
	q := url.Values{}
	switch status {
	case "":
	case StatusPending, StatusReviewed:
		q.Set("status", status)
	default:
		return nil, fmt.Errorf("scoring: status must be %q or %q, got %q", StatusPending, StatusReviewed, status)
	}

	var recs []SubmittedRecording
	if err := c.getJSON(ctx, "/api/student/recordings", q, &recs); err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	return recs, nil
}

// Progress fetches practice statistics. period is "week", "month" or
// "all"; empty means "week".
func (c *Client) Progress(ctx context.Context, period string) (*Progress, error) {
	if period == "" {
		period = "week"
	}
	var p Progress
	if err := c.getJSON(ctx, "/api/student/progress", url.Values{"period": {period}}, &p); err != nil {
		return nil, fmt.Errorf("fetch progress: %w", err)
	}
	return &p, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.apiURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
