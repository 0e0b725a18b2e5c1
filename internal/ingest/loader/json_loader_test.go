package loader

import (
	"context"
	"strings"
	"testing"
)

func TestJSONLoader_TopLevelArray(t *testing.T) {
	content := `[{"name": "alpha", "count": 3}, {"name": "beta"}]`

	loader := NewJSONLoader()
	doc, err := loader.Load(context.Background(), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(doc.Blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(doc.Blocks))
	}

	if !strings.Contains(doc.Blocks[0].Text, "name: alpha") {
		t.Errorf("Expected flattened field in block 0: %q", doc.Blocks[0].Text)
	}
	if !strings.Contains(doc.Blocks[0].Text, "count: 3") {
		t.Errorf("Expected numeric field in block 0: %q", doc.Blocks[0].Text)
	}
}

func TestJSONLoader_TopLevelObject(t *testing.T) {
	content := `{"title": "report", "tags": ["a", "b"]}`

	loader := NewJSONLoader()
	doc, err := loader.Load(context.Background(), strings.NewReader(content))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(doc.Blocks) != 2 {
		t.Fatalf("Expected 2 blocks, got %d", len(doc.Blocks))
	}
	if !strings.Contains(doc.Blocks[0].Text, "title: report") {
		t.Errorf("Unexpected block 0: %q", doc.Blocks[0].Text)
	}
}

func TestJSONLoader_Invalid(t *testing.T) {
	loader := NewJSONLoader()
	if _, err := loader.Load(context.Background(), strings.NewReader("{not json")); err == nil {
		t.Errorf("Expected an error for invalid JSON")
	}
}
