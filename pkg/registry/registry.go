package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnknownItem is returned when a name or ID is not in the registry.
var ErrUnknownItem = errors.New("item not in registry")

// CurrentVersion is the registry file schema version.
const CurrentVersion = 1

// Registry is the ordered catalog of tracked cases. The position of a name
// in Items is its ID. IDs are stable: new cases are appended, existing
// entries are never renumbered, so models trained against an older registry
// stay interpretable.
type Registry struct {
	Version int      `json:"version"`
	Items   []string `json:"items"`

	index map[string]int
}

// New creates a registry from an ordered list of case names.
func New(items []string) *Registry {
	r := &Registry{Version: CurrentVersion, Items: items}
	r.reindex()
	return r
}

// Load reads a registry file. The registry must be loaded before either
// direction of the mapping is used.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var r Registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if r.Version != CurrentVersion {
		return nil, fmt.Errorf("registry %s: unsupported version %d", path, r.Version)
	}
	if len(r.Items) == 0 {
		return nil, fmt.Errorf("registry %s: empty catalog", path)
	}

	r.reindex()
	if len(r.index) != len(r.Items) {
		return nil, fmt.Errorf("registry %s: duplicate item names", path)
	}
	return &r, nil
}

// LoadOrDefault loads the registry at path, seeding it with the default
// catalog if the file does not exist yet.
func LoadOrDefault(path string) (*Registry, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r := Default()
		if err := r.Save(path); err != nil {
			return nil, err
		}
		return r, nil
	}
	return Load(path)
}

// Save writes the registry file atomically.
func (r *Registry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write registry %s: %w", path, err)
	}
	return nil
}

// Encode maps a case name to its stable ID.
func (r *Registry) Encode(name string) (int, error) {
	id, ok := r.index[name]
	if !ok {
		return 0, fmt.Errorf("encode %q: %w", name, ErrUnknownItem)
	}
	return id, nil
}

// Decode maps an ID back to its case name. Exact inverse of Encode.
func (r *Registry) Decode(id int) (string, error) {
	if id < 0 || id >= len(r.Items) {
		return "", fmt.Errorf("decode id %d: %w", id, ErrUnknownItem)
	}
	return r.Items[id], nil
}

// Add appends a new case to the catalog and returns its ID. Adding is an
// offline administrative operation: prediction paths never assign IDs.
func (r *Registry) Add(name string) (int, error) {
	if name == "" {
		return 0, errors.New("empty item name")
	}
	if id, ok := r.index[name]; ok {
		return id, fmt.Errorf("item %q already registered with id %d", name, id)
	}
	r.Items = append(r.Items, name)
	id := len(r.Items) - 1
	r.index[name] = id
	return id, nil
}

// Contains reports whether a name is in the catalog.
func (r *Registry) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Len returns the catalog size.
func (r *Registry) Len() int { return len(r.Items) }

// Names returns the catalog in ID order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.Items))
	copy(out, r.Items)
	return out
}

func (r *Registry) reindex() {
	r.index = make(map[string]int, len(r.Items))
	for i, name := range r.Items {
		r.index[name] = i
	}
}
