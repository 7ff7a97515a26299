package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParsePreservesAttributeOrder(t *testing.T) {
	doc := []byte(`
name: user
global_id: User
connection: default
attributes:
  zebra: string
  apple:
    type: number
    required: true
  pets:
    collection: pet
    via: owner
  owner:
    model: account
`)

	model, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"zebra", "apple", "pets", "owner"}
	if len(model.Attributes) != len(want) {
		t.Fatalf("expected %d attributes, got %d", len(want), len(model.Attributes))
	}
	for i, name := range want {
		if model.Attributes[i].Name != name {
			t.Errorf("attribute %d: expected %q, got %q", i, name, model.Attributes[i].Name)
		}
	}

	if def, _ := model.Attribute("apple"); def.Type != "number" || !def.Required {
		t.Errorf("apple: expected required number, got %+v", def)
	}
	if def, _ := model.Attribute("pets"); def.Collection != "pet" || def.Via != "owner" {
		t.Errorf("pets: expected collection pet via owner, got %+v", def)
	}
}

func TestParseScalarShorthand(t *testing.T) {
	model, err := Parse([]byte("name: tag\nattributes:\n  label: string\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if def, ok := model.Attribute("label"); !ok || def.Type != "string" {
		t.Errorf("expected scalar string attribute, got %+v", def)
	}
}

func TestLoadFileDefaultsNameFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.yaml")
	if err := os.WriteFile(path, []byte("attributes:\n  total: number\n"), 0644); err != nil {
		t.Fatal(err)
	}

	model, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if model.Name != "invoice" {
		t.Errorf("expected model name from filename, got %q", model.Name)
	}
}

func TestLoadFileRejectsInvalidModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := "name: bad\nattributes:\n  ref: {model: a, collection: b}\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for attribute with both model and collection")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"user.yaml": "attributes:\n  name: string\n  pets: {collection: pet, via: owner}\n",
		"pet.yml":   "attributes:\n  name: string\n  owner: {model: user}\n",
		"notes.txt": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if _, ok := models["user"]; !ok {
		t.Error("expected user model")
	}
	if _, ok := models["pet"]; !ok {
		t.Error("expected pet model")
	}
}

func TestLoadDirRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	doc := "name: user\nattributes:\n  name: string\n"
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := LoadDir(dir); err == nil {
		t.Error("expected duplicate model error")
	}
}

func TestGlobalName(t *testing.T) {
	cases := []struct {
		model Model
		want  string
	}{
		{Model{Name: "user"}, "User"},
		{Model{Name: "user", GlobalID: "Account"}, "Account"},
		{Model{Name: ""}, ""},
	}
	for _, tc := range cases {
		if got := tc.model.GlobalName(); got != tc.want {
			t.Errorf("GlobalName(%q/%q) = %q, want %q", tc.model.Name, tc.model.GlobalID, got, tc.want)
		}
	}
}
