// Standalone mock poll for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/votetool run -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock poll starting on :9999")
	fmt.Println("POST /vote with form field 'answer', standings at GET /results")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu    sync.Mutex
		votes = map[string]int{
			"Cutler Whitaker": 480,
			"Dylan Papushak":  455,
			"Avery Lindqvist": 320,
		}
	)

	standingsPage := func() string {
		total := 0
		for _, n := range votes {
			total += n
		}
		page := "Current standings:\n"
		for name, n := range votes {
			page += fmt.Sprintf("%s - %.1f%%\n", name, float64(n)*100/float64(total))
		}
		page += fmt.Sprintf("Total: %d votes\n", total)
		return page
	}

	// rival supporters trickle in votes so the lead actually moves
	go func() {
		rivals := []string{"Dylan Papushak", "Avery Lindqvist"}
		for {
			time.Sleep(time.Duration(2+rand.Intn(5)) * time.Second)
			mu.Lock()
			votes[rivals[rand.Intn(len(rivals))]]++
			mu.Unlock()
		}
	}()

	http.HandleFunc("/vote", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		name := r.PostFormValue("answer")

		mu.Lock()
		defer mu.Unlock()
		if _, ok := votes[name]; !ok {
			http.Error(w, "unknown entrant", http.StatusBadRequest)
			return
		}
		votes[name]++
		slog.Info("vote accepted", "entrant", name, "votes", votes[name])

		fmt.Fprintln(w, "Thank you for voting!")
		fmt.Fprint(w, standingsPage())
	})

	http.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(w, standingsPage())
	})

	if err := http.ListenAndServe(":9999", nil); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
