package registry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/thisisjab/contactsearch/entity"
)

func TestMemoryActiveFields(t *testing.T) {
	age := &entity.Field{ID: 1, UUID: uuid.New(), Key: "age", ValueType: entity.TypeNumber, OrgID: 1, IsActive: true}
	retired := &entity.Field{ID: 2, UUID: uuid.New(), Key: "retired", ValueType: entity.TypeText, OrgID: 1, IsActive: false}
	foreign := &entity.Field{ID: 3, UUID: uuid.New(), Key: "age", ValueType: entity.TypeText, OrgID: 2, IsActive: true}

	reg := NewMemory(age, retired, foreign)

	fields, err := reg.ActiveFields(&entity.Org{ID: 1}, []string{"age", "retired", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fields) != 1 || fields["age"] != age {
		t.Fatalf("wrong fields: %+v", fields)
	}
}

func TestMemoryAdd(t *testing.T) {
	reg := NewMemory()
	reg.Add(&entity.Field{ID: 1, UUID: uuid.New(), Key: "age", ValueType: entity.TypeNumber, OrgID: 1, IsActive: true})

	fields, err := reg.ActiveFields(&entity.Org{ID: 1}, []string{"age"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("expected the added field to resolve, got %+v", fields)
	}
}

func TestFileActiveFields(t *testing.T) {
	path := writeRegistryFile(t, `
fields:
  - id: 11
    uuid: 40a0d270-9a20-4a09-b702-a56023a4a1a1
    key: age
    type: N
    org_id: 1
  - id: 12
    uuid: 7cd2e898-8be5-4b57-a02c-83a82eeb3f2b
    key: gender
    type: T
    org_id: 1
    inactive: true
`)

	reg, err := NewFile(discardLogger(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields, err := reg.ActiveFields(&entity.Org{ID: 1}, []string{"age", "gender"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fields) != 1 {
		t.Fatalf("wrong fields: %+v", fields)
	}
	age := fields["age"]
	if age == nil || age.ID != 11 || age.ValueType != entity.TypeNumber || !age.IsActive {
		t.Fatalf("age loaded wrong: %+v", age)
	}
}

func TestFileRejectsBadSpecs(t *testing.T) {
	tests := map[string]string{
		"bad uuid": `
fields:
  - id: 11
    uuid: not-a-uuid
    key: age
    type: N
    org_id: 1
`,
		"bad type": `
fields:
  - id: 11
    uuid: 40a0d270-9a20-4a09-b702-a56023a4a1a1
    key: age
    type: X
    org_id: 1
`,
		"not yaml": `{{{`,
	}

	for name, content := range tests {
		path := writeRegistryFile(t, content)
		if _, err := NewFile(discardLogger(), path); err == nil {
			t.Errorf("%s: expected error, got none", name)
		}
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := NewFile(discardLogger(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file, got none")
	}
}

func writeRegistryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("cannot write registry file: %v", err)
	}
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
