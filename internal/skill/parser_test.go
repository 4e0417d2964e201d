package skill

import "testing"

func TestParseRoundTrip(t *testing.T) {
	raw := []byte("---\nname: db\ndescription: database migration helpers\nkeywords:\n  - database\n  - migration\nsticky: true\n---\nThis is the body.\nSecond line.")

	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Name != "db" {
		t.Fatalf("Name = %q, want db", doc.Name)
	}
	if doc.Description != "database migration helpers" {
		t.Fatalf("Description = %q", doc.Description)
	}
	if len(doc.Keywords) != 2 || doc.Keywords[0] != "database" || doc.Keywords[1] != "migration" {
		t.Fatalf("Keywords = %+v", doc.Keywords)
	}
	if !doc.Sticky {
		t.Fatalf("Sticky = false, want true")
	}
	if doc.Body != "This is the body.\nSecond line." {
		t.Fatalf("Body = %q", doc.Body)
	}
	if doc.Preamble["name"] != "db" {
		t.Fatalf("Preamble not preserved verbatim: %+v", doc.Preamble)
	}
}

func TestParseMissingMandatoryKey(t *testing.T) {
	raw := []byte("---\nname: db\n---\nbody")
	if _, err := Parse(raw); err == nil {
		t.Fatalf("Parse() should fail without description")
	}
}

func TestParseMissingDelimiters(t *testing.T) {
	if _, err := Parse([]byte("no preamble here")); err == nil {
		t.Fatalf("Parse() should fail without a preamble fence")
	}
}

func TestEmbeddingTextTruncatesBodyDeterministically(t *testing.T) {
	doc := Document{Name: "n", Description: "d", Body: "0123456789"}
	got := EmbeddingText(doc, 4)
	want := "n\nd\n0123"
	if got != want {
		t.Fatalf("EmbeddingText() = %q, want %q", got, want)
	}
}
