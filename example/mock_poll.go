package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"
)

// mockPoll simulates a small online poll. Votes arrive via POST /vote and
// the standings page renders the familiar "Name - 12.3%" block.
type mockPoll struct {
	mu    sync.Mutex
	votes map[string]int
}

// StartMockPollServer runs a simulated poll where rival entrants keep voting
// on their own. Call this in a goroutine before starting the campaign.
func StartMockPollServer(addr string) {
	poll := &mockPoll{
		votes: map[string]int{
			"Cutler Whitaker": 480,
			"Dylan Papushak":  455,
			"Avery Lindqvist": 320,
		},
	}

	// rival supporters trickle in votes so the lead actually moves
	go func() {
		rivals := []string{"Dylan Papushak", "Avery Lindqvist"}
		for {
			time.Sleep(time.Duration(2+rand.Intn(5)) * time.Second)
			poll.mu.Lock()
			poll.votes[rivals[rand.Intn(len(rivals))]]++
			poll.mu.Unlock()
		}
	}()

	http.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		name := r.PostFormValue("answer")

		poll.mu.Lock()
		if _, ok := poll.votes[name]; !ok {
			poll.mu.Unlock()
			http.Error(w, "unknown entrant", http.StatusBadRequest)
			return
		}
		poll.votes[name]++
		poll.mu.Unlock()

		fmt.Fprintln(w, "Thank you for voting!")
		fmt.Fprint(w, poll.standingsPage())
	})

	http.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, poll.standingsPage())
	})

	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("mock poll error", "error", err)
	}
}

// standingsPage renders the current standings as a text block.
func (p *mockPoll) standingsPage() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	names := make([]string, 0, len(p.votes))
	for name, n := range p.votes {
		total += n
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return p.votes[names[i]] > p.votes[names[j]]
	})

	page := "Current standings:\n"
	for _, name := range names {
		page += fmt.Sprintf("%s - %.1f%%\n", name, float64(p.votes[name])*100/float64(total))
	}
	page += fmt.Sprintf("Total: %d votes\n", total)
	return page
}
