package votetool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/matt-freeman/CutlerWhitakerVotingTool/internal/fetch"
)

const defaultSubmitTimeout = 45 * time.Second

// HTTPSubmitter casts votes by posting a form to the poll's vote URL.
//
// When the poll echoes the standings back in the vote response, that body
// doubles as the result page. Polls that publish standings on a separate
// page instead set [SubmitResultsURL], and ResultPage fetches it on demand.
//
// HTTPSubmitter is safe for concurrent use; all workers share one pooled
// HTTP client.
type HTTPSubmitter struct {
	client       *fetch.Client
	voteURL      string
	resultsURL   string
	method       string
	headers      map[string]string
	form         url.Values
	timeout      time.Duration
	successMatch string

	mu       sync.Mutex
	lastPage string
}

// httpSubmitterConfig holds mutable state during submitter construction.
type httpSubmitterConfig struct {
	method       string
	headers      map[string]string
	form         url.Values
	timeout      time.Duration
	resultsURL   string
	successMatch string
}

// SubmitOption configures an [HTTPSubmitter] during construction.
//
// Built-in options: [SubmitMethod], [SubmitHeaders], [SubmitForm],
// [SubmitTimeout], [SubmitResultsURL], [SubmitSuccessMatch].
type SubmitOption func(*httpSubmitterConfig) error

// SubmitMethod sets the HTTP method for vote requests. Defaults to POST.
//
// Returns an error if the method is not GET or POST.
func SubmitMethod(method string) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		switch method {
		case http.MethodGet, http.MethodPost:
			cfg.method = method
			return nil
		default:
			return errors.New("submit method must be GET or POST")
		}
	}
}

// SubmitHeaders adds custom HTTP headers to every vote request.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
func SubmitHeaders(keyValues ...string) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("SubmitHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// SubmitForm sets the form fields sent with every vote request, typically
// the poll id and the answer id.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
func SubmitForm(keyValues ...string) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("SubmitForm requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.form.Set(keyValues[i], keyValues[i+1])
		}
		return nil
	}
}

// SubmitTimeout sets the per-request timeout. Defaults to 45 seconds, sized
// for polls that render results slowly after accepting a ballot.
//
// Returns an error if the duration is not positive.
func SubmitTimeout(d time.Duration) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		if d <= 0 {
			return errors.New("submit timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// SubmitResultsURL sets a separate standings page URL. When set, ResultPage
// performs a GET against it instead of reusing the vote response body.
//
// Returns an error if the URL is invalid or missing a scheme.
func SubmitResultsURL(rawURL string) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		if err := checkURL(rawURL); err != nil {
			return fmt.Errorf("results url: %w", err)
		}
		cfg.resultsURL = rawURL
		return nil
	}
}

// SubmitSuccessMatch requires the vote response body to contain the given
// text (case-insensitive) for the submission to count as successful. Without
// it, any 2xx response counts.
func SubmitSuccessMatch(text string) SubmitOption {
	return func(cfg *httpSubmitterConfig) error {
		cfg.successMatch = text
		return nil
	}
}

// NewHTTPSubmitter creates an [HTTPSubmitter] for the given vote URL.
//
// Returns an error if the URL is invalid or any option fails validation.
//
// Example:
//
//	sub, err := votetool.NewHTTPSubmitter("https://poll.example.com/vote",
//	    votetool.SubmitForm("poll_id", "184", "answer", "7"),
//	    votetool.SubmitSuccessMatch("thank you"),
//	)
func NewHTTPSubmitter(voteURL string, opts ...SubmitOption) (*HTTPSubmitter, error) {
	if err := checkURL(voteURL); err != nil {
		return nil, fmt.Errorf("vote url: %w", err)
	}

	cfg := &httpSubmitterConfig{
		method:  http.MethodPost,
		headers: make(map[string]string),
		form:    make(url.Values),
		timeout: defaultSubmitTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return &HTTPSubmitter{
		client:       fetch.NewClient(),
		voteURL:      voteURL,
		resultsURL:   cfg.resultsURL,
		method:       cfg.method,
		headers:      cfg.headers,
		form:         cfg.form,
		timeout:      cfg.timeout,
		successMatch: cfg.successMatch,
	}, nil
}

// Submit posts one ballot. Success requires a 2xx response and, when
// configured, the success-match text in the body. The response body is kept
// as the candidate result page.
func (s *HTTPSubmitter) Submit(ctx context.Context) (bool, error) {
	form := s.form
	if s.method == http.MethodGet {
		form = nil
	}
	resp := s.client.Fetch(ctx, s.method, s.voteURL, s.headers, form, s.timeout)
	if resp.Error != nil {
		return false, resp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("vote request returned status %d", resp.StatusCode)
	}

	body := string(resp.Body)
	if s.successMatch != "" &&
		!strings.Contains(strings.ToLower(body), strings.ToLower(s.successMatch)) {
		return false, nil
	}

	s.mu.Lock()
	s.lastPage = body
	s.mu.Unlock()
	return true, nil
}

// ResultPage returns the standings page: a fresh GET of the results URL when
// one is configured, otherwise the last vote response body.
func (s *HTTPSubmitter) ResultPage(ctx context.Context) (string, error) {
	if s.resultsURL == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.lastPage == "" {
			return "", errors.New("no result page captured yet")
		}
		return s.lastPage, nil
	}

	resp := s.client.Fetch(ctx, http.MethodGet, s.resultsURL, s.headers, nil, s.timeout)
	if resp.Error != nil {
		return "", resp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("results request returned status %d", resp.StatusCode)
	}
	return string(resp.Body), nil
}

// Close releases the submitter's idle connections.
func (s *HTTPSubmitter) Close() {
	s.client.Close()
}

// checkURL validates that a raw URL parses and carries an http(s) scheme.
func checkURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url must have an http:// or https:// scheme")
	}
	return nil
}
