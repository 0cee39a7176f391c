package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

var expectedTools = []string{"combined_query", "health_check", "sync_graph", "translate_query"}

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	Namespace  string       `json:"namespace"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	namespace := flag.String("namespace", "integration", "Vector namespace to sync into and query")
	query := flag.String("query", "Find all persons", "Question for combined_query")
	seed := flag.Bool("seed", true, "Ask sync_graph to run the seed statement first")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, Namespace: *namespace, StartedAt: start}
	steps := make([]StepResult, 0, 8)

	var session *mcp.ClientSession
	steps = append(steps, step("connect", func() (string, error) {
		var err error
		session, err = client.Connect(ctx, transport)
		return "", err
	}))
	if session == nil {
		finish(report, steps, start)
		return
	}
	defer session.Close()

	nsArgs := apptype.NamespaceArgs{Namespace: *namespace}
	steps = append(steps,
		step("list_tools", func() (string, error) { return runListTools(ctx, session) }),
		step("health_check", func() (string, error) {
			var h apptype.HealthResult
			if err := callTool(ctx, session, "health_check", apptype.HealthArgs{}, &h); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s provider=%s dims=%d", h.Name, h.Version, h.Provider, h.EmbeddingDims), nil
		}),
		step("translate_query", func() (string, error) {
			var tr apptype.TranslateQueryResult
			if err := callTool(ctx, session, "translate_query", apptype.TranslateQueryArgs{Query: *query}, &tr); err != nil {
				return "", err
			}
			if tr.Statement == "" {
				return "", errors.New("empty statement")
			}
			return tr.Statement, nil
		}),
		step("sync_graph", func() (string, error) {
			var r apptype.SyncReport
			if err := callTool(ctx, session, "sync_graph", apptype.SyncGraphArgs{NamespaceArgs: nsArgs, Seed: *seed}, &r); err != nil {
				return "", err
			}
			return fmt.Sprintf("records=%d upserted=%d", r.Records, r.Upserted), nil
		}),
		step("combined_query", func() (string, error) {
			var res apptype.CombinedQueryResult
			args := apptype.CombinedQueryArgs{NamespaceArgs: nsArgs, Query: *query, TopK: 3}
			if err := callTool(ctx, session, "combined_query", args, &res); err != nil {
				return "", err
			}
			if len(res.Matches) == 0 {
				return "", errors.New("no matches returned")
			}
			return fmt.Sprintf("top=%s score=%.4f", res.Matches[0].ID, res.Matches[0].Score), nil
		}),
	)

	finish(report, steps, start)
}

func finish(report Report, steps []StepResult, start time.Time) {
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func step(name string, fn func() (string, error)) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	detail, err := fn()
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Detail = detail
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func runListTools(ctx context.Context, session *mcp.ClientSession) (string, error) {
	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(tools.Tools))
	for _, t := range tools.Tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	got := strings.Join(names, ",")
	if want := strings.Join(expectedTools, ","); got != want {
		return "", fmt.Errorf("tools = %s, want %s", got, want)
	}
	return got, nil
}

// callTool invokes name and decodes its structured content into out.
func callTool(ctx context.Context, session *mcp.ClientSession, name string, args, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	if err != nil {
		return err
	}
	if res.IsError {
		return fmt.Errorf("%s reported an error: %s", name, toolText(res))
	}
	body, err := json.Marshal(res.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func toolText(res *mcp.CallToolResult) string {
	parts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, " ")
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
