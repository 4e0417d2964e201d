// Package hash computes the content hash used to decide whether a skill
// file needs re-parsing and re-embedding, and derives a skill's stable
// id from its canonical path.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Content returns the SHA-256 hex digest of a skill file's bytes.
func Content(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// SkillID derives a skill's stable id from its canonical (absolute,
// symlink-resolved as far as the caller cares to resolve) path. The id
// is functionally determined by path, per the Skill invariant.
func SkillID(canonicalPath string) string {
	sum := sha256.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:])
}
