// Command demo streams one skill invocation from a running gateway and
// prints the normalized events as they arrive, keepalive comments
// included. It then fetches metadata for every file the run produced.
//
// Configuration:
//
//	SKILLBRIDGE_URL     - Gateway base URL (default: http://localhost:8000)
//	SKILLBRIDGE_API_KEY - Bearer key, when the gateway requires one
//	DEMO_MESSAGE        - Prompt (default asks for a report)
//	DEMO_SKILLS         - Comma-separated skill IDs (default: xlsx)
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	base := strings.TrimRight(envOr("SKILLBRIDGE_URL", "http://localhost:8000"), "/")
	key := os.Getenv("SKILLBRIDGE_API_KEY")

	fmt.Println("=== skillbridge streaming demo ===")
	fmt.Println()

	// 1. Build and validate the request locally.
	req := &api.SkillRequest{
		SkillIDs: strings.Split(envOr("DEMO_SKILLS", "xlsx"), ","),
		Message:  envOr("DEMO_MESSAGE", "Create a quarterly revenue report with a CSV of the figures."),
	}
	req.ApplyDefaults()
	if err := api.ValidateSkillRequest(req, api.DefaultValidationConfig()); err != nil {
		return fmt.Errorf("invalid request: %s", err.Message)
	}
	body, _ := json.MarshalIndent(req, "", "  ")
	fmt.Printf("[1] POST %s/stream/invoke\n%s\n", base, body)

	// 2. Open the stream.
	httpReq, err := http.NewRequest(http.MethodPost, base+"/stream/invoke", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned %s: %s", resp.Status, gjson.GetBytes(msg, "error.message").String())
	}
	fmt.Printf("\n[2] Session %s\n", resp.Header.Get("X-Session-Id"))

	// 3. Print events until the terminal one.
	fileIDs, err := printEvents(resp.Body)
	if err != nil {
		return err
	}

	// 4. Look up the produced files.
	if len(fileIDs) > 0 {
		fmt.Println("\n[4] Files:")
		for _, id := range fileIDs {
			meta, err := get(base+"/files/"+id+"/metadata", key)
			if err != nil {
				fmt.Printf("    %s: %v\n", id, err)
				continue
			}
			fmt.Printf("    %s  %-28s %6d bytes  %s\n", id,
				gjson.GetBytes(meta, "filename").String(),
				gjson.GetBytes(meta, "size_bytes").Int(),
				gjson.GetBytes(meta, "mime_type").String())
			fmt.Printf("        download: %s/files/%s/download\n", base, id)
		}
	}

	fmt.Println("\n=== demo complete ===")
	return nil
}

// printEvents reads SSE frames and returns the file IDs of the done event.
func printEvents(r io.Reader) ([]string, error) {
	fmt.Println("\n[3] Events:")
	start := time.Now()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var fileIDs []string
	for scanner.Scan() {
		line := scanner.Text()
		elapsed := time.Since(start).Truncate(100 * time.Millisecond)

		if comment, ok := strings.CutPrefix(line, ":"); ok {
			fmt.Printf("    %6s  (%s)\n", elapsed, strings.TrimSpace(comment))
			continue
		}
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		ev := gjson.Parse(data)
		typ := ev.Get("type").String()
		switch api.EventType(typ) {
		case api.EventTextDelta:
			fmt.Printf("    %6s  %-22s %q\n", elapsed, typ, ev.Get("text").String())
		case api.EventCodeInputDelta:
			fmt.Printf("    %6s  %-22s %s\n", elapsed, typ, ev.Get("partial_json").String())
		case api.EventStepStart, api.EventStepComplete:
			fmt.Printf("    %6s  %-22s #%d %s\n", elapsed, typ, ev.Get("step_number").Int(), ev.Get("tool_name").String())
		case api.EventSkillResultStart, api.EventCodeResultStart:
			fmt.Printf("    %6s  %-22s %s\n", elapsed, typ, ev.Get("result").Raw)
		case api.EventDone:
			fmt.Printf("    %6s  %-22s container=%s stop=%s tokens=%d/%d\n", elapsed, typ,
				ev.Get("container_id").String(), ev.Get("stop_reason").String(),
				ev.Get("usage.input_tokens").Int(), ev.Get("usage.output_tokens").Int())
			for _, id := range ev.Get("file_ids").Array() {
				fileIDs = append(fileIDs, id.String())
			}
			return fileIDs, nil
		case api.EventError:
			return nil, fmt.Errorf("stream error: %s", ev.Get("error").String())
		default:
			fmt.Printf("    %6s  %s\n", elapsed, typ)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream ended without a done event")
}

func get(url, key string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, gjson.GetBytes(body, "error.message").String())
	}
	return body, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
