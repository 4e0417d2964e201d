package skill

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// delimiter is the preamble fence, the same structured-data syntax used
// for the configuration file (YAML), fenced the way real skill documents
// are: a leading "---" line, the YAML block, a closing "---" line.
const delimiter = "---"

// ParseError reports a diagnostic tied to one file without aborting the
// caller's discovery pass.
type ParseError struct {
	Diagnostic string
}

func (e *ParseError) Error() string { return e.Diagnostic }

// Parse splits a skill file into its preamble and body and validates the
// mandatory keys. raw is the full file content.
func Parse(raw []byte) (Document, error) {
	text := string(raw)
	lines := strings.SplitN(text, "\n", -1)

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return Document{}, &ParseError{Diagnostic: "missing opening preamble delimiter"}
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		return Document{}, &ParseError{Diagnostic: "missing closing preamble delimiter"}
	}

	preambleText := strings.Join(lines[1:closeIdx], "\n")
	body := strings.Join(lines[closeIdx+1:], "\n")
	body = strings.TrimPrefix(body, "\n")

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(preambleText), &fields); err != nil {
		return Document{}, &ParseError{Diagnostic: fmt.Sprintf("invalid preamble syntax: %v", err)}
	}
	if fields == nil {
		fields = map[string]any{}
	}

	name, _ := fields["name"].(string)
	description, _ := fields["description"].(string)
	if strings.TrimSpace(name) == "" {
		return Document{}, &ParseError{Diagnostic: "missing mandatory key: name"}
	}
	if strings.TrimSpace(description) == "" {
		return Document{}, &ParseError{Diagnostic: "missing mandatory key: description"}
	}

	var keywords []string
	switch kv := fields["keywords"].(type) {
	case []any:
		for _, k := range kv {
			if s, ok := k.(string); ok {
				keywords = append(keywords, s)
			}
		}
	case []string:
		keywords = kv
	}

	sticky, _ := fields["sticky"].(bool)

	return Document{
		Name:        name,
		Description: description,
		Keywords:    keywords,
		Sticky:      sticky,
		Preamble:    fields,
		Body:        body,
	}, nil
}

// EmbeddingText builds the text batched into the embedder for this
// document, per the indexing contract: name + description + truncated
// body.
func EmbeddingText(d Document, bodyChars int) string {
	b := d.Body
	if bodyChars >= 0 && len(b) > bodyChars {
		b = b[:bodyChars]
	}
	return d.Name + "\n" + d.Description + "\n" + b
}
