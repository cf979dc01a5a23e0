package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom/internal/testutil"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func userProject(t *testing.T) string {
	t.Helper()
	return testutil.WriteProject(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "validate", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBuild_Text(t *testing.T) {
	root := userProject(t)

	out, err := runCLI(t, "build", root)
	require.NoError(t, err)
	assert.Contains(t, out, "create generated/docs/user.md")
	assert.Contains(t, out, "create generated/schemas/user.schema.json")
	assert.Contains(t, out, "Applied 2 create, 0 update, 0 delete")

	_, statErr := os.Stat(filepath.Join(root, "generated", "schemas", "user.schema.json"))
	assert.NoError(t, statErr)
}

func TestBuild_SecondRunClean(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	out, err := runCLI(t, "build", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Clean: 2 artifact(s) up to date")
}

func TestBuild_JSON(t *testing.T) {
	root := userProject(t)

	out, err := runCLI(t, "--format", "json", "build", root)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var report BuildReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.Changed)
	assert.Equal(t, 2, report.Summary.Create)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, "doc:User", report.Steps[0].ID)
}

func TestBuild_DryRun(t *testing.T) {
	root := userProject(t)

	out, err := runCLI(t, "build", "--dry-run", root)
	require.NoError(t, err)
	assert.Contains(t, out, "create")

	_, statErr := os.Stat(filepath.Join(root, "generated"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuild_MalformedEntityExitsCommandError(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"entities/bad.cue": `entity: User: {fields: {id: "uuid"}}
`,
	})

	out, err := runCLI(t, "build", root)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E102")
}

func TestBuild_MissingEntitiesDirExitsCommandError(t *testing.T) {
	_, err := runCLI(t, "build", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDoctor_CleanExitsZero(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	out, err := runCLI(t, "doctor", root)
	require.NoError(t, err)
	assert.Contains(t, out, "clean: 2 artifact(s) coherent")
}

func TestDoctor_PendingExitsFailure(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "entities", "user.cue"),
		[]byte(testutil.UserEntityWithFieldCUE), 0o644))

	out, err := runCLI(t, "doctor", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "pending:")
	assert.Contains(t, out, "update")
}

func TestDoctor_FixResolvesDrift(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(root, "entities", "user.cue"),
		[]byte(testutil.UserEntityWithFieldCUE), 0o644))

	out, err := runCLI(t, "doctor", "--fix", root)
	require.NoError(t, err)
	assert.Contains(t, out, "fixed: plan applied and state persisted")

	out, err = runCLI(t, "doctor", root)
	require.NoError(t, err)
	assert.Contains(t, out, "clean")
}

func TestDoctor_JSON(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "doctor", root)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var report DoctorReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "clean", report.Status)
	assert.Equal(t, 2, report.Summary.Noop)
}

func TestValidate_Valid(t *testing.T) {
	root := userProject(t)
	out, err := runCLI(t, "validate", root)
	require.NoError(t, err)
	assert.Contains(t, out, "valid: 1 entities, 3 nodes")
}

func TestValidate_InvalidExitsFailure(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"entities/bad.cue": `entity: User: {doc: "no fields"}
`,
	})

	out, err := runCLI(t, "validate", root)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E101")
}

func TestValidate_JSON(t *testing.T) {
	root := userProject(t)
	out, err := runCLI(t, "--format", "json", "validate", root)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
}

func TestInspect_Manifest(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", root)
	require.NoError(t, err)
	assert.Contains(t, out, "schema:User")
	assert.Contains(t, out, "generated/schemas/user.schema.json")
}

func TestInspect_Graph(t *testing.T) {
	root := userProject(t)
	_, err := runCLI(t, "build", root)
	require.NoError(t, err)

	out, err := runCLI(t, "inspect", "--graph", root)
	require.NoError(t, err)
	assert.Contains(t, out, "entity:User")
	assert.Contains(t, out, "schema:User")
}

func TestInspect_EmptyState(t *testing.T) {
	root := userProject(t)
	out, err := runCLI(t, "inspect", root)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad input")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := WrapExitError(ExitCommandError, "outer", errors.New("inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "outer: inner")
}

func TestOutputFormatter_JSONEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.JSON(map[string]int{"n": 1}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Error("E003", "no CUE files found", nil))
	assert.Equal(t, "Error [E003]: no CUE files found\n", buf.String())
}

func TestOutputFormatter_VerboseLogToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("loaded %d entities", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 entities\n", errOut.String())
}
