// Package testutil provides shared helpers for engine tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteProject materializes a project fixture under a temp directory.
// Keys are slash-separated paths relative to the returned root.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

// UserEntityCUE is a minimal entity definition used across tests: one User
// entity with schema and doc artifacts enabled.
const UserEntityCUE = `entity: User: {
	doc: "Application user"
	fields: {
		id:    "string"
		email: "string"
	}
	artifacts: {
		schema: {}
		doc: {}
	}
}
`

// UserEntityWithFieldCUE is UserEntityCUE plus a lastLoginAt field.
const UserEntityWithFieldCUE = `entity: User: {
	doc: "Application user"
	fields: {
		id:          "string"
		email:       "string"
		lastLoginAt: {type: "date", optional: true}
	}
	artifacts: {
		schema: {}
		doc: {}
	}
}
`

// UserEntitySchemaOnlyCUE is UserEntityCUE with the doc artifact disabled.
const UserEntitySchemaOnlyCUE = `entity: User: {
	doc: "Application user"
	fields: {
		id:    "string"
		email: "string"
	}
	artifacts: {
		schema: {}
	}
}
`
