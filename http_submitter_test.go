package votetool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSubmitterPostsFormAndKeepsBody(t *testing.T) {
	var gotMethod, gotAnswer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		gotAnswer = r.PostFormValue("answer")
		w.Write([]byte("thank you for voting\nCutler Whitaker - 35.4%"))
	}))
	defer srv.Close()

	sub, err := NewHTTPSubmitter(srv.URL,
		SubmitForm("poll_id", "184", "answer", "7"),
		SubmitSuccessMatch("thank you"),
	)
	if err != nil {
		t.Fatalf("NewHTTPSubmitter() error: %v", err)
	}
	defer sub.Close()

	ok, err := sub.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if !ok {
		t.Fatal("Submit() = false, want true")
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotAnswer != "7" {
		t.Errorf("answer = %q, want 7", gotAnswer)
	}

	page, err := sub.ResultPage(context.Background())
	if err != nil {
		t.Fatalf("ResultPage() error: %v", err)
	}
	if page != "thank you for voting\nCutler Whitaker - 35.4%" {
		t.Errorf("ResultPage() = %q, want the vote response body", page)
	}
}

func TestHTTPSubmitterSuccessMatchMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("you have already voted today"))
	}))
	defer srv.Close()

	sub, err := NewHTTPSubmitter(srv.URL, SubmitSuccessMatch("thank you"))
	if err != nil {
		t.Fatalf("NewHTTPSubmitter() error: %v", err)
	}
	defer sub.Close()

	ok, err := sub.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if ok {
		t.Error("Submit() = true without the success text present")
	}
}

func TestHTTPSubmitterNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sub, err := NewHTTPSubmitter(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTPSubmitter() error: %v", err)
	}
	defer sub.Close()

	ok, err := sub.Submit(context.Background())
	if ok {
		t.Error("Submit() = true on a 429 response")
	}
	if err == nil {
		t.Error("Submit() error = nil on a 429 response")
	}
}

func TestHTTPSubmitterSeparateResultsURL(t *testing.T) {
	results := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Cutler Whitaker - 40.0%\nDylan Papushak - 20.0%"))
	}))
	defer results.Close()
	vote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer vote.Close()

	sub, err := NewHTTPSubmitter(vote.URL, SubmitResultsURL(results.URL))
	if err != nil {
		t.Fatalf("NewHTTPSubmitter() error: %v", err)
	}
	defer sub.Close()

	if ok, err := sub.Submit(context.Background()); !ok || err != nil {
		t.Fatalf("Submit() = %v, %v; want true, nil", ok, err)
	}
	page, err := sub.ResultPage(context.Background())
	if err != nil {
		t.Fatalf("ResultPage() error: %v", err)
	}
	if page != "Cutler Whitaker - 40.0%\nDylan Papushak - 20.0%" {
		t.Errorf("ResultPage() = %q, want the results URL body", page)
	}
}

func TestHTTPSubmitterResultPageBeforeAnySubmit(t *testing.T) {
	sub, err := NewHTTPSubmitter("http://localhost:1/vote")
	if err != nil {
		t.Fatalf("NewHTTPSubmitter() error: %v", err)
	}
	if _, err := sub.ResultPage(context.Background()); err == nil {
		t.Error("ResultPage() succeeded with no captured page")
	}
}

func TestHTTPSubmitterValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		opts []SubmitOption
	}{
		{"missing scheme", "poll.example.com/vote", nil},
		{"bad method", "http://poll.example.com/vote", []SubmitOption{SubmitMethod("DELETE")}},
		{"odd headers", "http://poll.example.com/vote", []SubmitOption{SubmitHeaders("only-key")}},
		{"odd form", "http://poll.example.com/vote", []SubmitOption{SubmitForm("only-key")}},
		{"zero timeout", "http://poll.example.com/vote", []SubmitOption{SubmitTimeout(0)}},
		{"bad results url", "http://poll.example.com/vote", []SubmitOption{SubmitResultsURL("nope")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHTTPSubmitter(tt.url, tt.opts...); err == nil {
				t.Error("NewHTTPSubmitter() succeeded, want error")
			}
		})
	}
}
