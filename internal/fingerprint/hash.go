package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// EngineVersion is the version string mixed into every artifact fingerprint.
// Bumping it invalidates all fingerprints at once.
const EngineVersion = "0.1.0"

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainEntity   = "loom/entity/v1"
	DomainArtifact = "loom/artifact/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Entity computes the fingerprint of an entity node from its canonical
// content map (name, doc, ordered fields).
func Entity(content map[string]any) (string, error) {
	canonical, err := MarshalCanonical(content)
	if err != nil {
		return "", fmt.Errorf("entity fingerprint: %w", err)
	}
	return hashWithDomain(DomainEntity, canonical), nil
}

// Artifact computes the fingerprint of a derived artifact node.
//
// The digest covers the entity content, the generator options, the engine
// version and the artifact kind. Options may be nil.
func Artifact(content map[string]any, options map[string]any, engineVersion, kind string) (string, error) {
	if options == nil {
		options = map[string]any{}
	}
	obj := map[string]any{
		"entity":         content,
		"options":        options,
		"engine_version": engineVersion,
		"kind":           kind,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("artifact fingerprint: %w", err)
	}
	return hashWithDomain(DomainArtifact, canonical), nil
}
