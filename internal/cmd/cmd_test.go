package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// fakeJira serves the endpoints the commands read and records created issues.
type fakeJira struct {
	mu      sync.Mutex
	created []map[string]any
	failAt  int
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/rest/api/3/myself":
		_, _ = io.WriteString(w, `{"accountId":"acc-1","displayName":"Dev User"}`)
	case r.URL.Path == "/rest/api/3/project/DEMO":
		_, _ = io.WriteString(w, `{"id":"1","key":"DEMO","name":"Demo Project","lead":{"displayName":"Lead"}}`)
	case r.URL.Path == "/rest/api/3/field":
		_, _ = io.WriteString(w, `[{"id":"summary","name":"Summary","schema":{"type":"string"}}]`)
	case r.URL.Path == "/rest/api/3/issue/createmeta/DEMO/issuetypes":
		_, _ = io.WriteString(w, `{"issueTypes":[
			{"id":"10","name":"Epic"},
			{"id":"11","name":"Story"},
			{"id":"12","name":"Sub-task","subtask":true}]}`)
	case strings.HasPrefix(r.URL.Path, "/rest/api/3/issue/createmeta/DEMO/issuetypes/"):
		_, _ = io.WriteString(w, `{"fields":[
			{"fieldId":"summary","name":"Summary","required":true,"schema":{"type":"string"}},
			{"fieldId":"labels","name":"Labels","required":false,"schema":{"type":"array","items":"string"}}]}`)
	case r.URL.Path == "/rest/api/3/issue" && r.Method == http.MethodPost:
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAt > 0 && len(f.created)+1 == f.failAt {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"errorMessages":["summary is too long"]}`)
			return
		}
		f.created = append(f.created, body.Fields)
		fmt.Fprintf(w, `{"id":"%d","key":"DEMO-%d"}`, 100+len(f.created), len(f.created))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeJira) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// testEnv isolates a command run: a private home, a config file pointing at
// srv and no credentials leaking in from the environment.
func testEnv(t *testing.T, srvURL string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BACKLOG_CONFIG", "")
	t.Setenv("BACKLOG_LOG_LEVEL", "")
	t.Setenv("BACKLOG_TELEMETRY", "")
	t.Setenv("BACKLOG_METRICS_TEXTFILE", "")
	t.Setenv("JIRA_BASE_URL", "")
	t.Setenv("JIRA_EMAIL", "")
	t.Setenv("JIRA_API_TOKEN", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := fmt.Sprintf(`jira:
  base_url: %s
  email: dev@example.com
  api_token: secret
  requests_per_second: 0
  retry_wait_min: 1ms
  retry_wait_max: 2ms
log:
  level: error
`, srvURL)
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

const demoPlan = `project_key: DEMO
initiatives:
  - local_id: I1
    summary: Payments
    epics:
      - local_id: E1
        summary: Card payments
        parent_initiative: I1
        labels: [payments]
        stories:
          - local_id: S1
            summary: Pay by card
            parent_epic: E1
            tasks:
              - local_id: T1
                summary: Add card form
                parent_story: S1
`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo-plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// resetFlags restores every flag to its default so runs do not leak into
// each other through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
