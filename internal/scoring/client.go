package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxUpload is the practice service's upload limit.
const DefaultMaxUpload = 10 * 1024 * 1024

// ErrTooLarge is returned before sending a take above the upload limit.
var ErrTooLarge = errors.New("scoring: recording exceeds upload limit")

// APIError is a non-2xx answer from the practice service.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("scoring: API status %d", e.Status)
	}
	return fmt.Sprintf("scoring: API status %d: %s", e.Status, e.Detail)
}

// Client communicates with the pronunciation practice REST API.
type Client struct {
	apiURL    string
	token     string
	maxUpload int64
	http      *http.Client
	log       zerolog.Logger
}

// NewClient creates a practice API client. A non-positive maxUpload uses
// DefaultMaxUpload.
func NewClient(apiURL, token string, timeout time.Duration, maxUpload int64, logger zerolog.Logger) *Client {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Client{
		apiURL:    strings.TrimRight(apiURL, "/"),
		token:     token,
		maxUpload: maxUpload,
		http:      &http.Client{Timeout: timeout},
		log:       logger.With().Str("component", "scoring").Logger(),
	}
}

// Scores are the automated assessment sub-scores, 0-100.
type Scores struct {
	Pronunciation float64 `json:"pronunciation_score"`
	Accuracy      float64 `json:"accuracy_score"`
	Fluency       float64 `json:"fluency_score"`
	Completeness  float64 `json:"completeness_score"`
}

// Feedback is the grade and text returned for a submission.
type Feedback struct {
	Text        string `json:"text"`
	Grade       string `json:"grade"`
	IsAutomated bool   `json:"is_automated"`
}

// Result is the service's answer to a submitted recording.
type Result struct {
	Message     string   `json:"message"`
	RecordingID int      `json:"recording_id"`
	Scores      Scores   `json:"automated_scores"`
	Feedback    Feedback `json:"feedback"`
}

// Meaning is one dictionary sense of a word.
type Meaning struct {
	PartOfSpeech string   `json:"partOfSpeech"`
	Definition   string   `json:"definition"`
	Example      string   `json:"example,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
}

// Word is the dictionary entry and model pronunciation for a practice word.
type Word struct {
	Word            string    `json:"word"`
	Phonetic        string    `json:"phonetic,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	Meanings        []Meaning `json:"meanings"`
	DifficultyLevel string    `json:"difficulty_level,omitempty"`
	TopicTags       []string  `json:"topic_tags,omitempty"`
}

// WaitForHealthy blocks until the API responds to health checks.
func (c *Client) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	c.log.Info().Str("url", c.apiURL).Msg("Waiting for practice API to be ready")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.healthy(ctx) {
			c.log.Info().Msg("Practice API is healthy")
			return nil
		}
		c.log.Debug().Dur("retry_in", interval).Msg("Practice API not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Submit uploads a WAV take for word and returns the assessment.
func (c *Client) Submit(ctx context.Context, word string, wav io.Reader, size int64, filename string) (*Result, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.New("scoring: word is required")
	}
	if size > c.maxUpload {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, size, c.maxUpload)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, word, wav, filename))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/student/recordings/submit", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("submit recording: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.log.Info().
		Str("word", word).
		Int("recording_id", result.RecordingID).
		Float64("score", result.Scores.Pronunciation).
		Str("grade", result.Feedback.Grade).
		Dur("took", time.Since(start)).
		Msg("Recording scored")
	return &result, nil
}

func writeForm(mw *multipart.Writer, word string, wav io.Reader, filename string) error {
	if err := mw.WriteField("word_text", word); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename="%s"`, filename))
	h.Set("Content-Type", "audio/wav")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, wav); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return mw.Close()
}

// Word fetches the dictionary entry and model pronunciation for word.
func (c *Client) Word(ctx context.Context, word string) (*Word, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.New("scoring: word is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/api/words/"+url.PathEscape(word), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch word: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var w Word
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode word: %w", err)
	}
	return &w, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// checkStatus turns a non-2xx response into *APIError, using the service's
// {"detail": ...} body when present.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Detail any `json:"detail"`
	}
	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			detail = s
		} else if b, err := json.Marshal(payload.Detail); err == nil {
			detail = string(b)
		}
	}
	return &APIError{Status: resp.StatusCode, Detail: detail}
}
