package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalRecord is the serialization the checksum is computed over.
// Dependencies are flattened to a name-sorted list so the digest is a pure
// function of the record's content, independent of map iteration order.
type canonicalRecord struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Authors      []string       `json:"authors,omitempty"`
	Description  string         `json:"description,omitempty"`
	Dependencies []canonicalDep `json:"dependencies,omitempty"`
}

type canonicalDep struct {
	Name        string `json:"name"`
	Requirement string `json:"requirement"`
}

// Checksum returns the hex SHA-256 digest of the record's canonical
// serialization. Lockfiles store this digest so a later install can detect
// drift between the registry and the lockfile without re-resolving.
func (r *Record) Checksum() string {
	canonical := canonicalRecord{
		Name:        r.Name,
		Version:     r.Version.String(),
		Authors:     r.Authors,
		Description: r.Description,
	}
	for _, name := range r.DependencyNames() {
		canonical.Dependencies = append(canonical.Dependencies, canonicalDep{
			Name:        name,
			Requirement: r.Dependencies[name].String(),
		})
	}

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
