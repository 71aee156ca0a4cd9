package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCapture = `
entity:
  logical_name: account
  record_id: "11111111-1111-1111-1111-111111111111"
  user_id: "22222222-2222-2222-2222-222222222222"
fields:
  - name: name
    kind: string
    value: Acme
  - name: description
    kind: memo
    value: new text
    dirty: true
    initial: old text
`

const cleanCapture = `
entity:
  logical_name: account
  record_id: "11111111-1111-1111-1111-111111111111"
fields:
  - name: name
    kind: string
    value: Acme
`

const unsavedCapture = `
entity:
  logical_name: account
fields:
  - name: name
    kind: string
    value: Acme
    dirty: true
`

func writeCapture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestGenerateSections(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path, "--message", "update", "--stage", "pre")
	require.NoError(t, err)

	assert.Contains(t, out, "=== Target ===")
	assert.Contains(t, out, "=== Pre-Image ===")
	assert.Contains(t, out, "=== Post-Image ===")
	assert.Contains(t, out, `"description"`)
	assert.Contains(t, out, "old text", "pre-image shows the form-load value")
	assert.Contains(t, out, "Post-Image is only available in Post-operation.")
}

func TestGenerateShowJSON(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path, "--message", "update", "--stage", "post", "--show", "json")
	require.NoError(t, err)

	assert.Contains(t, out, `"message_name":"Update"`)
	assert.Contains(t, out, `"stage":40`)
}

func TestGenerateSectionsAsJSON(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path, "--format", "json", "--message", "update")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGenerateExportWebAPI(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path,
		"--format", "json",
		"--message", "update",
		"--export", "webapi",
		"--collection", "account=accounts")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "accounts", data["collection"])
	body := data["body"].(map[string]any)
	assert.Equal(t, "new text", body["description"])
}

func TestGenerateExportWebAPITextIsJSON(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path,
		"--message", "update",
		"--export", "webapi",
		"--collection", "account=accounts")
	require.NoError(t, err)

	var export map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &export),
		"text-mode export must be the JSON payload, not a struct dump")
	assert.Equal(t, "accounts", export["collection"])
	body := export["body"].(map[string]any)
	assert.Equal(t, "new text", body["description"])
	assert.NotContains(t, out, "map[", "no Go-syntax rendering in the output")
}

func TestGenerateExportCSharp(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", path, "--message", "update", "--export", "csharp")
	require.NoError(t, err)

	assert.Contains(t, out, "public class AccountUpdateTests")
	assert.Contains(t, out, "fakedContext.ExecutePluginWith<YourPlugin>(pluginContext);")
}

func TestGenerateNoChangesIsGuidance(t *testing.T) {
	path := writeCapture(t, cleanCapture)
	out, _, err := runCommand(t, "generate", path, "--message", "update")
	require.NoError(t, err, "nothing to simulate is guidance, not a failure")
	assert.Contains(t, out, "No fields have been changed.")
}

func TestGenerateUnsavedRecordFails(t *testing.T) {
	path := writeCapture(t, unsavedCapture)
	out, _, err := runCommand(t, "generate", path, "--message", "delete")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestGenerateInvalidCapture(t *testing.T) {
	path := writeCapture(t, "entity:\n  logical_name: \"\"\nfields: []")
	_, _, err := runCommand(t, "generate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateMissingCaptureFile(t *testing.T) {
	_, _, err := runCommand(t, "generate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateInvalidFlags(t *testing.T) {
	path := writeCapture(t, testCapture)
	tests := []struct {
		name string
		args []string
	}{
		{"bad_message", []string{"generate", path, "--message", "upsert"}},
		{"bad_stage", []string{"generate", path, "--stage", "mid"}},
		{"bad_show", []string{"generate", path, "--show", "everything"}},
		{"bad_export", []string{"generate", path, "--export", "python"}},
		{"bad_collection", []string{"generate", path, "--collection", "account"}},
		{"bad_format", []string{"generate", path, "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestGenerateWithConstantsOverride(t *testing.T) {
	dir := t.TempDir()
	constsPath := filepath.Join(dir, "constants.yaml")
	require.NoError(t, os.WriteFile(constsPath, []byte("image_key: CustomImage\n"), 0o644))

	capturePath := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", capturePath,
		"--constants", constsPath,
		"--message", "update",
		"--stage", "post")
	require.NoError(t, err)
	assert.Contains(t, out, "CustomImage")
}

func TestGenerateWithMetadataDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metadata.db")
	_, _, err := runCommand(t, "metadata", "set", "account", "accounts", "--db", dbPath)
	require.NoError(t, err)

	capturePath := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "generate", capturePath,
		"--format", "json",
		"--message", "update",
		"--export", "webapi",
		"--metadata-db", dbPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "accounts", data["collection"])
}

func TestValidateCommand(t *testing.T) {
	path := writeCapture(t, testCapture)
	out, _, err := runCommand(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: entity=account fields=2")

	badPath := writeCapture(t, "fields: 7")
	_, _, err = runCommand(t, "validate", badPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMetadataCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "metadata.db")

	_, _, err := runCommand(t, "metadata", "set", "account", "accounts", "--db", dbPath)
	require.NoError(t, err)
	_, _, err = runCommand(t, "metadata", "set", "opportunity", "opportunities", "--db", dbPath)
	require.NoError(t, err)

	out, _, err := runCommand(t, "metadata", "get", "account", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "account -> accounts")

	out, _, err = runCommand(t, "metadata", "list", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "account -> accounts")
	assert.Contains(t, out, "opportunity -> opportunities")

	_, _, err = runCommand(t, "metadata", "get", "contact", "--db", dbPath)
	require.Error(t, err)
}
