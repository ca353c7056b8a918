// Package main provides a CLI tool to replay watch events from a CSV file
// into the feed API. Useful for warming taste profiles and trending stats in
// dev/staging environments with realistic viewing behavior.
//
// Usage:
//
//	go run scripts/ingest-watch-events/main.go -file /path/to/watch_events.csv -api-url http://localhost:8080 -api-key YOUR_API_KEY
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the CLI configuration
type Config struct {
	FilePath   string
	APIBaseURL string
	APIKey     string
	DelayMS    int
	DryRun     bool
}

// WatchEventRequest matches the POST /v1/watch-events body
type WatchEventRequest struct {
	VideoID              string  `json:"videoId"`
	WatchDurationSeconds int     `json:"watchDurationSeconds"`
	Completed            bool    `json:"completed"`
	ImpressionID         *string `json:"impressionId,omitempty"`
}

// watchEventRow is one parsed CSV row (the user ID travels in a header, not the body)
type watchEventRow struct {
	UserID  string
	Request *WatchEventRequest
}

// Stats tracks ingestion statistics
type Stats struct {
	TotalRows       int
	SkippedInvalid  int
	SuccessfulPosts int
	FailedPosts     int
}

// CSV column indices (0-based)
const (
	colUserID       = 0
	colVideoID      = 1
	colWatchSeconds = 2
	colCompleted    = 3
	colImpressionID = 4
)

func main() {
	cfg := parseFlags()

	if cfg.FilePath == "" {
		fmt.Println("Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	if cfg.APIKey == "" {
		fmt.Println("Error: -api-key is required")
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("🚀 Watch Event Replay Tool\n")
	fmt.Printf("   API URL: %s\n", cfg.APIBaseURL)
	fmt.Printf("   CSV File: %s\n", cfg.FilePath)
	fmt.Printf("   Delay: %dms between requests\n", cfg.DelayMS)
	if cfg.DryRun {
		fmt.Printf("   ⚠️  DRY RUN MODE - No actual API calls will be made\n")
	}
	fmt.Println()

	stats := processCSV(cfg)

	fmt.Println()
	fmt.Println("📊 Replay Summary")
	fmt.Println("   ─────────────────────")
	fmt.Printf("   Total rows processed:  %d\n", stats.TotalRows)
	fmt.Printf("   Skipped (invalid):     %d\n", stats.SkippedInvalid)
	fmt.Printf("   Successfully created:  %d\n", stats.SuccessfulPosts)
	fmt.Printf("   Failed:                %d\n", stats.FailedPosts)
	fmt.Println()

	if stats.FailedPosts > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.FilePath, "file", "", "Path to watch events CSV file (required)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", "http://localhost:8080", "Feed API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authentication (required)")
	flag.IntVar(&cfg.DelayMS, "delay", 100, "Delay in milliseconds between API calls")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Parse CSV but don't make API calls")

	flag.Parse()
	return cfg
}

func processCSV(cfg Config) Stats {
	stats := Stats{}

	file, err := os.Open(cfg.FilePath)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable field counts
	reader.LazyQuotes = true

	client := &http.Client{Timeout: 30 * time.Second}

	// Read and validate header row
	header, err := reader.Read()
	if err != nil {
		fmt.Printf("Error reading header: %v\n", err)
		os.Exit(1)
	}

	expectedHeader := []string{
		"user_id", "video_id", "watch_duration_seconds", "completed", "impression_id",
	}

	if len(header) < len(expectedHeader)-1 {
		fmt.Printf("Error: CSV has %d columns, expected at least %d\n", len(header), len(expectedHeader)-1)
		fmt.Printf("Expected columns: %v\n", expectedHeader)
		os.Exit(1)
	}

	fmt.Println("📥 Replaying watch events...")
	fmt.Println()

	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Printf("   ⚠ Row %d: Error reading: %v\n", rowNum, err)
			stats.SkippedInvalid++
			rowNum++
			continue
		}

		stats.TotalRows++
		event, err := extractEventFromRow(row)
		if err != nil {
			if cfg.DryRun {
				fmt.Printf("   [SKIP] Row %d: %v\n", rowNum, err)
			}
			stats.SkippedInvalid++
			rowNum++
			continue
		}

		if cfg.DryRun {
			fmt.Printf("   [DRY] Row %d: user %s watched %s for %ds\n",
				rowNum, event.UserID, event.Request.VideoID, event.Request.WatchDurationSeconds)
			stats.SuccessfulPosts++
			rowNum++
			continue
		}

		err = postWatchEvent(client, cfg, event)
		if err != nil {
			fmt.Printf("   ✗ Row %d (%s): %v\n", rowNum, event.Request.VideoID, err)
			stats.FailedPosts++
		} else {
			fmt.Printf("   ✓ Row %d: %s (%ds)\n", rowNum, event.Request.VideoID, event.Request.WatchDurationSeconds)
			stats.SuccessfulPosts++
		}

		time.Sleep(time.Duration(cfg.DelayMS) * time.Millisecond)
		rowNum++
	}

	return stats
}

func extractEventFromRow(row []string) (*watchEventRow, error) {
	userID := strings.TrimSpace(safeGet(row, colUserID))
	videoID := strings.TrimSpace(safeGet(row, colVideoID))
	secondsStr := strings.TrimSpace(safeGet(row, colWatchSeconds))

	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user_id %q", userID)
	}
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, fmt.Errorf("invalid video_id %q", videoID)
	}

	seconds, err := strconv.Atoi(secondsStr)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("invalid watch_duration_seconds %q", secondsStr)
	}

	event := &watchEventRow{
		UserID: userID,
		Request: &WatchEventRequest{
			VideoID:              videoID,
			WatchDurationSeconds: seconds,
		},
	}

	switch strings.ToLower(strings.TrimSpace(safeGet(row, colCompleted))) {
	case "true", "1", "yes":
		event.Request.Completed = true
	}

	if impressionID := strings.TrimSpace(safeGet(row, colImpressionID)); impressionID != "" {
		if _, err := uuid.Parse(impressionID); err != nil {
			return nil, fmt.Errorf("invalid impression_id %q", impressionID)
		}
		event.Request.ImpressionID = &impressionID
	}

	return event, nil
}

func postWatchEvent(client *http.Client, cfg Config, event *watchEventRow) error {
	body, err := json.Marshal(event.Request)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequest("POST", cfg.APIBaseURL+"/v1/watch-events", bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("X-User-ID", event.UserID)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func safeGet(row []string, index int) string {
	if index >= 0 && index < len(row) {
		return row[index]
	}
	return ""
}
