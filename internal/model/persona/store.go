package persona

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Store exposes persona retrieval for HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the configured persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

type catalogue struct {
	Personas []Persona `toml:"persona"`
}

// LoadFile reads a TOML catalogue of [[persona]] tables.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalogue: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a TOML catalogue and validates every entry.
func Parse(data string) ([]Persona, error) {
	var cat catalogue
	if _, err := toml.Decode(data, &cat); err != nil {
		return nil, fmt.Errorf("decode persona catalogue: %w", err)
	}
	if len(cat.Personas) == 0 {
		return nil, fmt.Errorf("persona catalogue is empty")
	}

	seen := make(map[string]struct{}, len(cat.Personas))
	for i := range cat.Personas {
		p := &cat.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona #%d has no id", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		switch p.Variant {
		case "":
			p.Variant = VariantPersona
		case VariantPersona, VariantFourWord:
		default:
			return nil, fmt.Errorf("persona %q has unknown variant %q", p.ID, p.Variant)
		}
		if strings.TrimSpace(p.Directive) == "" {
			return nil, fmt.Errorf("persona %q has no directive", p.ID)
		}
		if p.Language == "" {
			p.Language = "en"
		}
	}
	return cat.Personas, nil
}
