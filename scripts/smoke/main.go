// Command smoke probes a running attendance-core instance and reports
// per-endpoint health. Intended for post-deploy verification; a failing
// critical check exits nonzero so it can gate a rollout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type check struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	WantStatus int    `json:"want_status"`
	Critical   bool   `json:"critical"`
}

type result struct {
	Check    check
	Status   int
	Duration time.Duration
	Err      error
}

func defaultChecks() []check {
	return []check{
		{Name: "health", Method: http.MethodGet, Path: "/health", WantStatus: http.StatusOK, Critical: true},
		{Name: "ready", Method: http.MethodGet, Path: "/ready", WantStatus: http.StatusOK, Critical: true},
		{Name: "metrics", Method: http.MethodGet, Path: "/metrics", WantStatus: http.StatusOK, Critical: false},
		{Name: "schedule requires auth", Method: http.MethodGet, Path: "/api/v1/schedule", WantStatus: http.StatusUnauthorized, Critical: true},
		{Name: "checkin requires auth", Method: http.MethodPost, Path: "/api/v1/checkin", WantStatus: http.StatusUnauthorized, Critical: true},
		{Name: "risk roster requires auth", Method: http.MethodGet, Path: "/api/v1/risk-roster", WantStatus: http.StatusUnauthorized, Critical: true},
	}
}

func main() {
	var (
		base       string
		checksPath string
		timeout    time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&checksPath, "checks", "", "optional JSON file overriding the built-in checks")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks := defaultChecks()
	if checksPath != "" {
		loaded, err := loadChecks(checksPath)
		if err != nil {
			log.Fatalf("failed to load checks: %v", err)
		}
		checks = loaded
	}

	client := &http.Client{Timeout: timeout}
	failures := 0
	var results []result
	for _, c := range checks {
		res := run(client, base, c)
		if (res.Err != nil || res.Status != c.WantStatus) && c.Critical {
			failures++
		}
		results = append(results, res)
	}

	printReport(results)
	if failures > 0 {
		fmt.Printf("%d critical check(s) failed\n", failures)
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var checks []check
	if err := json.Unmarshal(data, &checks); err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return checks, nil
}

func run(client *http.Client, base string, c check) result {
	res := result{Check: c}
	url := strings.TrimRight(base, "/") + c.Path
	req, err := http.NewRequest(c.Method, url, nil)
	if err != nil {
		res.Err = err
		return res
	}
	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	res.Status = resp.StatusCode
	return res
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Status != res.Check.WantStatus {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s: %s %s\n", status, res.Check.Name, res.Check.Method, res.Check.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status: %d (want %d) in %s\n", res.Status, res.Check.WantStatus, res.Duration)
	}
}
