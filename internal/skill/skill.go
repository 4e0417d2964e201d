// Package skill defines the Skill record and the structured-preamble
// document format the Indexer discovers and the Parser reads.
package skill

import "time"

// Bucket tags which configured root a skill was discovered under.
type Bucket string

const (
	BucketUser    Bucket = "user"
	BucketProject Bucket = "project"
	BucketPlugin  Bucket = "plugin"
)

// Skill is a catalog record for one skill document, per the data model.
type Skill struct {
	ID          string
	Name        string
	Path        string
	Description string
	Keywords    []string
	Sticky      bool
	Embedding   []float32 // empty ⇒ stub entry, excluded from similarity search
	Preamble    map[string]any
	ContentHash string
	IndexedAt   time.Time
	Source      Bucket
}

// Stub reports whether this skill has no embedding yet.
func (s Skill) Stub() bool { return len(s.Embedding) == 0 }

// Document is the parsed form of a skill file: preamble fields plus body.
type Document struct {
	Name        string
	Description string
	Keywords    []string
	Sticky      bool
	Preamble    map[string]any
	Body        string
}

// FileHash tracks the last-seen content hash for a discovered path, used
// to short-circuit re-indexing.
type FileHash struct {
	Path        string
	ContentHash string
	LastChecked time.Time
}
