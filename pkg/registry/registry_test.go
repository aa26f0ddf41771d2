package registry

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	reg := Default()
	if reg.Len() == 0 {
		t.Fatal("default registry is empty")
	}

	for _, name := range reg.Names() {
		id, err := reg.Encode(name)
		if err != nil {
			t.Fatalf("Encode(%q): %v", name, err)
		}
		got, err := reg.Decode(id)
		if err != nil {
			t.Fatalf("Decode(%d): %v", id, err)
		}
		if got != name {
			t.Errorf("Decode(Encode(%q)) = %q", name, got)
		}
	}
}

func TestEncodeUnknownItem(t *testing.T) {
	reg := New([]string{"Kilowatt Case", "Fever Case"})

	_, err := reg.Encode("Dream Case")
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	reg := New([]string{"Kilowatt Case"})

	for _, id := range []int{-1, 1, 100} {
		if _, err := reg.Decode(id); !errors.Is(err, ErrUnknownItem) {
			t.Errorf("Decode(%d): expected ErrUnknownItem, got %v", id, err)
		}
	}
}

func TestAddKeepsExistingIDs(t *testing.T) {
	reg := New([]string{"Kilowatt Case", "Gallery Case"})

	before := make(map[string]int)
	for _, name := range reg.Names() {
		id, _ := reg.Encode(name)
		before[name] = id
	}

	id, err := reg.Add("Fever Case")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != 2 {
		t.Errorf("new id = %d, want 2", id)
	}

	for name, want := range before {
		got, err := reg.Encode(name)
		if err != nil {
			t.Fatalf("Encode(%q) after Add: %v", name, err)
		}
		if got != want {
			t.Errorf("id of %q changed from %d to %d after Add", name, want, got)
		}
	}
}

func TestAddDuplicate(t *testing.T) {
	reg := New([]string{"Kilowatt Case"})

	if _, err := reg.Add("Kilowatt Case"); err == nil {
		t.Fatal("expected error adding duplicate name")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	reg := New([]string{"Kilowatt Case", "Gallery Case", "Fever Case"})
	if err := reg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Version != reg.Version {
		t.Errorf("version = %d, want %d", loaded.Version, reg.Version)
	}
	if loaded.Len() != reg.Len() {
		t.Fatalf("len = %d, want %d", loaded.Len(), reg.Len())
	}
	for i, name := range reg.Names() {
		got, err := loaded.Decode(i)
		if err != nil {
			t.Fatalf("Decode(%d): %v", i, err)
		}
		if got != name {
			t.Errorf("loaded[%d] = %q, want %q", i, got, name)
		}
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	reg, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if reg.Len() != Default().Len() {
		t.Errorf("len = %d, want default %d", reg.Len(), Default().Len())
	}
}
