// Package entity provides the record types describing declarative entity
// definitions.
//
// This package contains type definitions only. All other internal packages
// import entity; entity imports nothing internal. This ensures the record
// model remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Records are immutable once loaded; a cycle never mutates them
//   - All JSON tags use snake_case
//   - Field order is significant and preserved from the source definition
package entity
