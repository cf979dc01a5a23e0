package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loom/internal/testutil"
)

func TestDoctor_CleanProject(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	res, err := r.Doctor(context.Background(), DoctorOptions{})
	require.NoError(t, err)
	assert.True(t, res.Clean)
	assert.False(t, res.Fixed)
	// Unchanged nodes still appear in the breakdown.
	assert.Len(t, res.Plan.Steps, 2)
	assert.Equal(t, 2, res.Plan.Summary.Noop)
}

func TestDoctor_PendingAfterEntityEdit(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	writeEntity(t, r, testutil.UserEntityWithFieldCUE)

	res, err := r.Doctor(context.Background(), DoctorOptions{})
	require.NoError(t, err)
	assert.False(t, res.Clean)
	assert.Equal(t, 2, res.Plan.Summary.Update)

	// Diagnosis only: the stale artifact is untouched.
	schema, err := os.ReadFile(filepath.Join(r.Config().Root, "generated", "schemas", "user.schema.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(schema), "lastLoginAt")
}

func TestDoctor_FixAppliesPlan(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	writeEntity(t, r, testutil.UserEntityWithFieldCUE)

	res, err := r.Doctor(context.Background(), DoctorOptions{Fix: true})
	require.NoError(t, err)
	assert.False(t, res.Clean)
	assert.True(t, res.Fixed)

	after, err := r.Doctor(context.Background(), DoctorOptions{})
	require.NoError(t, err)
	assert.True(t, after.Clean)
}

func TestDoctor_FixSkippedWhenClean(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	res, err := r.Doctor(context.Background(), DoctorOptions{Fix: true})
	require.NoError(t, err)
	assert.True(t, res.Clean)
	assert.False(t, res.Fixed)
}

func TestDoctor_VerifySQL(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": `entity: User: {
	fields: {
		id:    "string"
		email: "string"
	}
	artifacts: {
		schema: {}
		migration: {}
	}
}
`,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	res, err := r.Doctor(context.Background(), DoctorOptions{VerifySQL: true})
	require.NoError(t, err)
	assert.True(t, res.Clean)
	assert.Equal(t, 1, res.SQLVerified)
}

func TestDoctor_VerifySQLNoMigrations(t *testing.T) {
	r := newTestRunner(t, map[string]string{
		"entities/user.cue": testutil.UserEntityCUE,
	})
	_, err := r.RunCycle(context.Background(), RunOptions{})
	require.NoError(t, err)

	res, err := r.Doctor(context.Background(), DoctorOptions{VerifySQL: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SQLVerified)
}
