// Mock acoustic model server for exercising the pipeline end to end without
// a real model. It answers every inference request with logits whose greedy
// decode spells a fixed phrase through the configured vocabulary.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type inferenceRequest struct {
	RequestID    string    `json:"request_id"`
	NMels        int       `json:"n_mels"`
	PaddedFrames int       `json:"padded_frames"`
	ValidLength  int       `json:"valid_length"`
	Features     []float64 `json:"features"`
}

type inferenceResponse struct {
	RequestID   string      `json:"request_id"`
	Logits      [][]float64 `json:"logits"`
	Duration    float64     `json:"duration"`
	ProcessedAt time.Time   `json:"processed_at"`
}

var (
	vocabPath = flag.String("vocab", "configs/vocab.txt", "Vocabulary file, one token per line")
	phrase    = flag.String("phrase", "hello world", "Phrase the emitted logits decode to")
	port      = flag.Int("port", 9000, "Port to listen on")
	delay     = flag.Duration("delay", 0, "Artificial response delay for timeout testing")
)

func main() {
	flag.Parse()

	tokens, err := loadTokens(*vocabPath)
	if err != nil {
		log.Fatalf("Failed to load vocabulary: %v", err)
	}

	index := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		index[tok] = i
	}

	blank := len(tokens) - 1

	http.HandleFunc("/v1/logits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		start := time.Now()

		var req inferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad request body", http.StatusBadRequest)
			return
		}

		if *delay > 0 {
			time.Sleep(*delay)
		}

		t := req.ValidLength
		if t <= 0 {
			t = 112
		}

		logits := phraseLogits(*phrase, index, blank, len(tokens), t)

		log.Printf("request %s: %d mels x %d frames -> %d timesteps",
			req.RequestID, req.NMels, req.PaddedFrames, len(logits))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(inferenceResponse{
			RequestID:   req.RequestID,
			Logits:      logits,
			Duration:    time.Since(start).Seconds(),
			ProcessedAt: time.Now(),
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock inference server listening on %s (phrase %q, %d tokens, blank %d)",
		addr, *phrase, len(tokens), blank)
	log.Fatal(http.ListenAndServe(addr, nil))
}

// phraseLogits builds a T x V matrix whose greedy CTC decode yields the
// phrase: one peaked timestep per character, blanks in between and as filler.
func phraseLogits(phrase string, index map[string]int, blank, v, t int) [][]float64 {
	peak := func(idx int) []float64 {
		row := make([]float64, v)
		row[idx] = 10.0
		return row
	}

	var rows [][]float64
	for _, r := range phrase {
		tok := string(r)
		if tok == " " {
			tok = "|"
		}
		idx, ok := index[tok]
		if !ok {
			continue // character not in vocabulary
		}
		rows = append(rows, peak(idx), peak(blank))
	}

	for len(rows) < t {
		rows = append(rows, peak(blank))
	}

	return rows[:t]
}

func loadTokens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r"))
	}
	return tokens, scanner.Err()
}
