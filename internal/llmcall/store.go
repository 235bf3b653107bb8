package llmcall

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// QueryFilter specifies filters for listing recorded calls.
type QueryFilter struct {
	PageIndex int // 0 = any
	Stage     string
	Success   *bool
	After     *time.Time
	Limit     int
}

func (f QueryFilter) match(c *Call) bool {
	if f.PageIndex != 0 && c.PageIndex != f.PageIndex {
		return false
	}
	if f.Stage != "" && c.Stage != f.Stage {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	return true
}

// ReadCalls reads a JSONL call log and returns the matching calls ordered
// by timestamp. Malformed lines are reported with their line number.
func ReadCalls(path string, filter QueryFilter) ([]Call, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	// Responses can be long; allow lines up to 16 MiB.
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if filter.match(&c) {
			calls = append(calls, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call log: %w", err)
	}

	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Timestamp.Before(calls[j].Timestamp)
	})
	if filter.Limit > 0 && len(calls) > filter.Limit {
		calls = calls[len(calls)-filter.Limit:]
	}
	return calls, nil
}

// Stats aggregates a set of calls.
type Stats struct {
	Calls        int     `json:"calls" yaml:"calls"`
	Failed       int     `json:"failed" yaml:"failed"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`
}

// Summarize computes aggregate stats over calls.
func Summarize(calls []Call) Stats {
	var s Stats
	var latency int
	for _, c := range calls {
		s.Calls++
		if !c.Success {
			s.Failed++
		}
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		latency += c.LatencyMs
	}
	if s.Calls > 0 {
		s.AvgLatencyMs = float64(latency) / float64(s.Calls)
	}
	return s
}
