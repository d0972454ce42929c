package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stella-systems/stellanow-sdk-go/message"
)

type recordingSender struct {
	msgs []*message.Message
	fail map[int]bool
}

func (r *recordingSender) SendMessage(msg *message.Message) (string, error) {
	r.msgs = append(r.msgs, msg)
	if r.fail[len(r.msgs)] {
		return "", fmt.Errorf("rejected")
	}
	return fmt.Sprintf("id-%d", len(r.msgs)), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestReadMessages(t *testing.T) {
	input := strings.Join([]string{
		`{"eventType":"patron_visit","entities":[{"entityTypeDefinitionId":"patron","entityId":"P1"}],"payload":{"venue":"V1"}}`,
		``,
		`not json`,
		`{"entities":[],"payload":{}}`,
		`{"eventType":"purchase","payload":{"amount":3}}`,
	}, "\n")

	var got []*message.Message
	var lines []int
	var invalid []int
	err := readMessages(strings.NewReader(input),
		func(line int, msg *message.Message) {
			lines = append(lines, line)
			got = append(got, msg)
		},
		func(line int, _ error) { invalid = append(invalid, line) },
	)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 5}, lines)
	assert.Equal(t, []int{3, 4}, invalid)

	require.Len(t, got, 2)
	assert.Equal(t, "patron_visit", got[0].EventTypeDefinitionID())
	assert.Equal(t, []message.EntityType{message.NewEntityType("patron", "P1")}, got[0].EntityTypeIDs())
	assert.JSONEq(t, `{"venue":"V1"}`, string(got[0].Payload().(message.RawPayload)))
	assert.Empty(t, got[1].EntityTypeIDs())
}

func TestPublishLines(t *testing.T) {
	input := "{\"eventType\":\"a\",\"payload\":{}}\n{\"eventType\":\"b\",\"payload\":{}}\n{\"eventType\":\"c\",\"payload\":{}}\n"
	s := &recordingSender{fail: map[int]bool{2: true}}
	var out bytes.Buffer

	queued, err := publishLines(context.Background(), s, strings.NewReader(input), &out, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Equal(t, "id-1\nid-3\n", out.String())
}

func TestPublishLines_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &recordingSender{}
	queued, err := publishLines(ctx, s, strings.NewReader("{\"eventType\":\"a\",\"payload\":{}}\n"), &bytes.Buffer{}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, queued)
	assert.Empty(t, s.msgs)
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"service":"stellanow-publisher"`)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stellanow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	path := writeConfig(t, `
organization:
  id: acme
  project_id: proj-1
auth:
  mode: oidc
  authority: https://auth.example.com
  username: ingest@acme.io
  password: s3cret
`)

	out, err := runCommand(t, "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	out, err = runCommand(t, "config", "show", "--config", path, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "id: acme")
	assert.Contains(t, out, "level: debug")
	assert.NotContains(t, out, "s3cret")

	out, err = runCommand(t, "config", "env")
	require.NoError(t, err)
	assert.Contains(t, out, "STELLANOW_BROKER_URL")
}

func TestConfigValidate_Invalid(t *testing.T) {
	path := writeConfig(t, "organization:\n  id: acme\n")

	_, err := runCommand(t, "config", "validate", "--config", path)
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stellanow-publisher version 0.1.0\n", out)
}
