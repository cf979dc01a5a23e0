package loader

import (
	"fmt"

	"cuelang.org/go/cue"

	"loom/internal/entity"
)

// compileEntity parses one CUE entity value into a Record.
func compileEntity(name string, v cue.Value) (*entity.Record, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeLoad, Message: err.Error(), Pos: v.Pos()}
	}

	rec := &entity.Record{Name: name}

	docVal := v.LookupPath(cue.ParsePath("doc"))
	if docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("entity %s: doc must be a string", name), Pos: docVal.Pos()}
		}
		rec.Doc = doc
	}

	fields, err := parseFields(name, v)
	if err != nil {
		return nil, err
	}
	rec.Fields = fields

	artifacts, err := parseArtifacts(name, v)
	if err != nil {
		return nil, err
	}
	rec.Artifacts = artifacts

	return rec, nil
}

// parseFields reads the required fields block, preserving declaration order.
func parseFields(name string, v cue.Value) ([]entity.Field, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeFields,
			Message: fmt.Sprintf("entity %s: fields block is required", name),
			Pos:     v.Pos(),
		}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeFields, Message: fmt.Sprintf("entity %s: fields must be a struct", name), Pos: fieldsVal.Pos()}
	}

	var fields []entity.Field
	for iter.Next() {
		f, err := parseField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, &LoadError{
			Code:    ErrCodeFields,
			Message: fmt.Sprintf("entity %s: at least one field is required", name),
			Pos:     fieldsVal.Pos(),
		}
	}
	return fields, nil
}

// parseField accepts either a bare type name string or a struct with
// type, optional and doc.
func parseField(entityName, fieldName string, v cue.Value) (entity.Field, error) {
	f := entity.Field{Name: fieldName}

	// Bare type name shorthand
	if typeName, err := v.String(); err == nil {
		f.Type = typeName
		return f, validateFieldType(entityName, f, v)
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return f, &LoadError{
			Code:    ErrCodeFieldType,
			Message: fmt.Sprintf("entity %s: field %s: type is required", entityName, fieldName),
			Pos:     v.Pos(),
		}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return f, &LoadError{
			Code:    ErrCodeFieldType,
			Message: fmt.Sprintf("entity %s: field %s: type must be a string", entityName, fieldName),
			Pos:     typeVal.Pos(),
		}
	}
	f.Type = typeName

	if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
		opt, err := optVal.Bool()
		if err != nil {
			return f, &LoadError{
				Code:    ErrCodeFieldType,
				Message: fmt.Sprintf("entity %s: field %s: optional must be a bool", entityName, fieldName),
				Pos:     optVal.Pos(),
			}
		}
		f.Optional = opt
	}
	if docVal := v.LookupPath(cue.ParsePath("doc")); docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return f, &LoadError{
				Code:    ErrCodeFieldType,
				Message: fmt.Sprintf("entity %s: field %s: doc must be a string", entityName, fieldName),
				Pos:     docVal.Pos(),
			}
		}
		f.Doc = doc
	}

	return f, validateFieldType(entityName, f, v)
}

func validateFieldType(entityName string, f entity.Field, v cue.Value) error {
	if !entity.ValidFieldTypes[f.Type] {
		return &LoadError{
			Code:    ErrCodeFieldType,
			Message: fmt.Sprintf("entity %s: field %s: unknown type %q", entityName, f.Name, f.Type),
			Pos:     v.Pos(),
		}
	}
	return nil
}

// parseArtifacts reads the optional artifacts block. Supported shapes:
//
//	artifacts: {schema: {}, migration: {table: "users"}}
//	artifacts: ["schema", "migration"]
//
// An absent block means the caller's default kinds apply.
func parseArtifacts(name string, v cue.Value) ([]entity.ArtifactSpec, error) {
	artVal := v.LookupPath(cue.ParsePath("artifacts"))
	if !artVal.Exists() {
		return nil, nil
	}

	// List shorthand. Struct form cannot repeat a kind (CUE unifies duplicate
	// labels), but a list can, and duplicate kinds would collapse into one
	// graph node instead of failing loudly.
	if listIter, err := artVal.List(); err == nil {
		var specs []entity.ArtifactSpec
		seen := make(map[entity.Kind]bool)
		for listIter.Next() {
			kind, err := listIter.Value().String()
			if err != nil {
				return nil, &LoadError{
					Code:    ErrCodeArtifacts,
					Message: fmt.Sprintf("entity %s: artifact kinds in list form must be strings", name),
					Pos:     listIter.Value().Pos(),
				}
			}
			if seen[entity.Kind(kind)] {
				return nil, &LoadError{
					Code:    ErrCodeArtifacts,
					Message: fmt.Sprintf("entity %s: duplicate artifact kind %q", name, kind),
					Pos:     listIter.Value().Pos(),
				}
			}
			seen[entity.Kind(kind)] = true
			specs = append(specs, entity.ArtifactSpec{Kind: entity.Kind(kind)})
		}
		return specs, nil
	}

	iter, err := artVal.Fields()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeArtifacts,
			Message: fmt.Sprintf("entity %s: artifacts must be a struct or list", name),
			Pos:     artVal.Pos(),
		}
	}

	var specs []entity.ArtifactSpec
	for iter.Next() {
		opts, err := parseOptions(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, entity.ArtifactSpec{Kind: entity.Kind(iter.Label()), Options: opts})
	}
	return specs, nil
}

// parseOptions converts an options struct to a plain map. Only strings,
// ints and bools are allowed; fingerprints forbid floats.
func parseOptions(entityName, kind string, v cue.Value) (map[string]any, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &LoadError{
			Code:    ErrCodeArtifacts,
			Message: fmt.Sprintf("entity %s: artifact %s: options must be a struct", entityName, kind),
			Pos:     v.Pos(),
		}
	}

	opts := make(map[string]any)
	for iter.Next() {
		key := iter.Label()
		val := iter.Value()
		switch val.Kind() {
		case cue.StringKind:
			s, err := val.String()
			if err != nil {
				return nil, optionError(entityName, kind, key, val)
			}
			opts[key] = s
		case cue.IntKind:
			n, err := val.Int64()
			if err != nil {
				return nil, optionError(entityName, kind, key, val)
			}
			opts[key] = n
		case cue.BoolKind:
			b, err := val.Bool()
			if err != nil {
				return nil, optionError(entityName, kind, key, val)
			}
			opts[key] = b
		default:
			return nil, optionError(entityName, kind, key, val)
		}
	}
	if len(opts) == 0 {
		return nil, nil
	}
	return opts, nil
}

func optionError(entityName, kind, key string, v cue.Value) error {
	return &LoadError{
		Code:    ErrCodeOption,
		Message: fmt.Sprintf("entity %s: artifact %s: option %s must be a string, int or bool", entityName, kind, key),
		Pos:     v.Pos(),
	}
}
