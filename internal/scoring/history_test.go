package scoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- Recordings ---

func TestRecordings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/student/recordings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "reviewed" {
			t.Errorf("status query = %q, want reviewed", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `[
			{"id": 9, "student_id": 3, "word_text": "apple", "audio_file_path": "uploads/a.wav",
			 "automated_scores": {"pronunciation_score": 72.5},
			 "teacher_feedback": "Stress the first syllable", "teacher_grade": "B",
			 "status": "reviewed", "flag_for_practice": true, "is_automated_feedback": false,
			 "created_at": "2024-03-01T10:15:30.123456", "reviewed_at": "2024-03-02T08:00:00"},
			{"id": 8, "student_id": 3, "word_text": "pear", "audio_file_path": "uploads/p.wav",
			 "automated_scores": null, "status": "reviewed", "flag_for_practice": false,
			 "created_at": "2024-02-28T09:00:00Z", "reviewed_at": null}
		]`)
	}))
	defer srv.Close()

	recs, err := newTestClient(srv.URL).Recordings(context.Background(), StatusReviewed)
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}

	first := recs[0]
	if first.TeacherFeedback != "Stress the first syllable" || first.TeacherGrade != "B" || !first.FlagForPractice {
		t.Errorf("teacher feedback = %+v", first)
	}
	if first.Scores == nil || first.Scores.Pronunciation != 72.5 {
		t.Errorf("Scores = %+v", first.Scores)
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}
	if first.ReviewedAt == nil {
		t.Error("ReviewedAt = nil, want a time")
	}

	if recs[1].Scores != nil || recs[1].ReviewedAt != nil {
		t.Errorf("second recording = %+v, want nil scores and review time", recs[1])
	}
}

func TestRecordingsAllStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want none", r.URL.RawQuery)
		}
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	recs, err := newTestClient(srv.URL).Recordings(context.Background(), "")
	if err != nil || len(recs) != 0 {
		t.Errorf("Recordings = %v, %v", recs, err)
	}
}

func TestRecordingsInvalidStatus(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	if _, err := c.Recordings(context.Background(), "graded"); err == nil {
		t.Error("Recordings accepted an unknown status")
	}
}

func TestRecordingsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail": "Could not validate credentials"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Recordings(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401 APIError", err)
	}
}

// --- Progress ---

func TestProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/student/progress" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("period"); got != "month" {
			t.Errorf("period = %q, want month", got)
		}
		io.WriteString(w, `{"words_practiced": 14, "average_score": 81.25, "total_attempts": 20, "streak_count": 3,
			"recent_recordings": [{"id": 9, "word_text": "apple", "score": 72.5,
			"created_at": "2024-03-01T10:15:30", "status": "pending"}]}`)
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).Progress(context.Background(), "month")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if p.WordsPracticed != 14 || p.AverageScore != 81.25 || p.TotalAttempts != 20 || p.StreakCount != 3 {
		t.Errorf("Progress = %+v", p)
	}
	if len(p.RecentRecordings) != 1 || p.RecentRecordings[0].WordText != "apple" || p.RecentRecordings[0].Score != 72.5 {
		t.Errorf("RecentRecordings = %+v", p.RecentRecordings)
	}
}

func TestProgressDefaultPeriod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("period"); got != "week" {
			t.Errorf("period = %q, want week", got)
		}
		io.WriteString(w, `{"words_practiced": 0, "average_score": 0, "total_attempts": 0, "streak_count": 0, "recent_recordings": []}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Progress(context.Background(), ""); err != nil {
		t.Errorf("Progress: %v", err)
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts Timestamp
	if err := ts.UnmarshalJSON([]byte(`"yesterday"`)); err == nil {
		t.Error("Timestamp accepted an unparseable time")
	}
}
