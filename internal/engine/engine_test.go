package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom/internal/entity"
	"loom/internal/testutil"
)

func newTestRunner(t *testing.T, files map[string]string) *Runner {
	t.Helper()
	root := testutil.WriteProject(t, files)
	return NewRunner(Config{Root: root}, nil)
}

func writeEntity(t *testing.T, r *Runner, content string) {
	t.Helper()
	full := filepath.Join(r.Config().Root, "entities", "user.cue")
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRunCycle_FirstRunCreatesArtifacts(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, res.CycleID)
	assert.Equal(t, 2, res.Plan.Summary.Create)
	assert.Equal(t, 0, res.Plan.Summary.Update)
	assert.Equal(t, 0, res.Plan.Summary.Delete)

	for _, rel := range []string{
		"generated/schemas/user.schema.json",
		"generated/docs/user.md",
	} {
		_, err := os.Stat(filepath.Join(r.Config().Root, filepath.FromSlash(rel)))
		assert.NoError(t, err, "expected artifact %s", rel)
	}

	require.NotNil(t, res.State)
	assert.Len(t, res.State.Nodes, 2)
}

func TestRunCycle_SecondRunIsNoop(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.False(t, res.Plan.Changed())
	assert.Equal(t, 2, res.Plan.Summary.Noop)
	assert.Empty(t, res.Results)
}

func TestRunCycle_FieldChangeUpdatesBothArtifacts(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	writeEntity(t, r, testutil.UserEntityWithFieldCUE)

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Plan.Summary.Update)
	assert.Equal(t, 0, res.Plan.Summary.Create)

	schema, err := os.ReadFile(filepath.Join(r.Config().Root, "generated", "schemas", "user.schema.json"))
	require.NoError(t, err)
	assert.Contains(t, string(schema), "lastLoginAt")
}

func TestRunCycle_DisablingArtifactDeletesIt(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	writeEntity(t, r, testutil.UserEntitySchemaOnlyCUE)

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Plan.Summary.Delete)
	assert.Equal(t, 0, res.Plan.Summary.Update)

	_, statErr := os.Stat(filepath.Join(r.Config().Root, "generated", "docs", "user.md"))
	assert.True(t, os.IsNotExist(statErr))
	assert.NotContains(t, res.State.Nodes, "doc:User")
	assert.Contains(t, res.State.Nodes, "schema:User")
}

func TestRunCycle_RemovedEntityDeletesArtifacts(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
		"entities/session.cue": `entity: Session: {
	fields: {id: "string"}
	artifacts: {schema: {}}
}
`,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(r.Config().Root, "entities", "session.cue")))

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Plan.Summary.Delete)
	assert.NotContains(t, res.State.Nodes, "schema:Session")
}

func TestRunCycle_DryRunWritesNothing(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})

	res, err := r.RunCycle(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.Plan.Changed())
	assert.Nil(t, res.State)

	_, statErr := os.Stat(filepath.Join(r.Config().Root, "generated"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(r.Config().Root, ".loom"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCycle_DeletedManifestRecoversIdempotently(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	// Simulate a crash that lost the state but kept the artifacts.
	require.NoError(t, os.RemoveAll(filepath.Join(r.Config().Root, ".loom")))

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Plan.Summary.Create)
	for _, sr := range res.Results {
		assert.False(t, sr.Changed, "re-derived step %s rewrote identical content", sr.ID)
	}
	assert.Len(t, res.State.Nodes, 2)
}

func TestRunCycle_LoadErrorAbortsBeforeWrites(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": `entity: User: {fields: {id: "uuid"}}
`,
	})

	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(r.Config().Root, "generated"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCycle_DefaultKindsApplied(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": `entity: User: {fields: {id: "string"}}
`,
	})

	res, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	// No artifacts block: all five default kinds are generated.
	assert.Equal(t, 5, res.Plan.Summary.Create)
	assert.Contains(t, res.State.Nodes, "apidoc:User")
	assert.Contains(t, res.State.Nodes, "migration:User")
	assert.Contains(t, res.State.Nodes, "test:User")
}

func TestRunCycle_EngineVersionBumpRewritesArtifacts(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})

	r1 := NewRunner(Config{Root: root, Version: "1.0.0"}, nil)
	_, err := r1.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	r2 := NewRunner(Config{Root: root, Version: "2.0.0"}, nil)
	res, err := r2.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Plan.Summary.Update)
}

func TestBuildGraph_NoSideEffects(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})

	g, err := r.BuildGraph()
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	_, statErr := os.Stat(filepath.Join(r.Config().Root, "generated"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadConfig_Defaults(t *testing.T) {
	root := testutil.WriteProject(t, nil)
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"entities"}, cfg.EntityDirs)
	assert.Equal(t, "generated", cfg.OutputRoot)
	assert.Equal(t, ".loom", cfg.StateDir)
	assert.Len(t, cfg.DefaultKinds, 5)
	assert.NotEmpty(t, cfg.Version)
}

func TestLoadConfig_FromFile(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"loom.yaml": `entities:
  - defs
  - more/defs
output: build/gen
state_dir: .cache/loom
kinds:
  - schema
`,
	})
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"defs", "more/defs"}, cfg.EntityDirs)
	assert.Equal(t, "build/gen", cfg.OutputRoot)
	assert.Equal(t, ".cache/loom", cfg.StateDir)
	assert.Equal(t, []entity.Kind{entity.KindSchema}, cfg.DefaultKinds)
	assert.Equal(t, root, cfg.Root)
}

func TestLoadConfig_Malformed(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"loom.yaml": "entities: [unclosed",
	})
	_, err := LoadConfig(root)
	require.Error(t, err)
}
