// Package loader reads declarative entity definitions from CUE source
// files into plain records.
//
// The engine never executes definition modules; entities are data. A
// definition looks like:
//
//	entity: User: {
//		doc: "Application user"
//		fields: {
//			id:    "string"
//			email: "string"
//		}
//		artifacts: {
//			schema: {}
//			doc: {}
//		}
//	}
//
// A field value is either a type name string or a struct with type,
// optional and doc. The artifacts block maps kind names to option structs;
// it may also be written as a plain list of kind names.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"loom/internal/entity"
)

// Error code constants surfaced to the CLI.
const (
	ErrCodeGeneric   = "E001" // Generic/unknown error
	ErrCodeScanError = "E002" // Directory scan error
	ErrCodeNoFiles   = "E003" // No CUE files found
	ErrCodeLoad      = "E004" // CUE load/build failed
	ErrCodeNotFound  = "E005" // Path not found

	ErrCodeFields    = "E101" // Missing or malformed fields block
	ErrCodeFieldType = "E102" // Invalid field type
	ErrCodeArtifacts = "E103" // Malformed artifacts block
	ErrCodeOption    = "E104" // Unsupported option value
)

// LoadError represents a failure while loading entity definitions.
// Fatal: the cycle aborts before any writes.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // source position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Config describes where entity definitions live.
type Config struct {
	// Dirs are the entity source directories, relative to the project root.
	Dirs []string
}

// Load reads every entity definition under the configured directories.
// Records are returned sorted by logical name so cycle inputs are
// deterministic regardless of directory walk order.
func Load(root string, cfg Config) ([]entity.Record, error) {
	var records []entity.Record

	for _, dir := range cfg.Dirs {
		abs := filepath.Join(root, dir)
		recs, err := loadDir(abs)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func loadDir(dir string) ([]entity.Record, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("entity directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing entity directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	// Load the scanned file list explicitly: directory-mode loading skips
	// packageless files and never descends, but the scanner and the watcher
	// are both recursive, so all three must agree on scope.
	ctx := cuecontext.New()
	instances := load.Instances(cueFiles, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoad, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoad, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeLoad, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	entitiesVal := value.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("no entity definitions found in %s", dir)}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating entities: %v", err)}
	}

	var records []entity.Record
	for iter.Next() {
		rec, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
