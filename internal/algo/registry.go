package algo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ID identifies a hash algorithm.
type ID int

const (
	MD5 ID = iota
	SHA1
	SHA256
	Tiger
	Whirlpool
	SHA3

	// Unknown is returned by IDForName when the name is not registered.
	Unknown ID = -1
)

var (
	ErrUnknownAlgorithm   = errors.New("unknown hash algorithm")
	ErrDuplicateAlgorithm = errors.New("hash algorithm already registered")
)

// Algorithm describes one registered digest algorithm.
type Algorithm struct {
	ID         ID
	Name       string
	ByteLength int
	Enabled    bool
}

// HexLength is the number of hex characters in a digest of this algorithm.
func (a Algorithm) HexLength() int {
	return a.ByteLength * 2
}

// Registry holds the supported algorithms and which of them are in use.
// It is configured once per run and passed to the components that need it.
type Registry struct {
	byID   map[ID]*Algorithm
	byName map[string]ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[ID]*Algorithm),
		byName: make(map[string]ID),
	}
}

// NewDefaultRegistry returns a registry with every supported algorithm.
// md5 and sha256 are enabled.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(MD5, "md5", 16, true)
	r.MustRegister(SHA1, "sha1", 20, false)
	r.MustRegister(SHA256, "sha256", 32, true)
	r.MustRegister(Tiger, "tiger", 24, false)
	r.MustRegister(Whirlpool, "whirlpool", 64, false)
	r.MustRegister(SHA3, "sha3", 32, false)
	return r
}

// Register adds an algorithm to the registry.
func (r *Registry) Register(id ID, name string, byteLength int, enabled bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if id < 0 || name == "" || byteLength <= 0 {
		return fmt.Errorf("invalid algorithm definition id=%d name=%q length=%d", id, name, byteLength)
	}
	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("%w: id %d", ErrDuplicateAlgorithm, id)
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAlgorithm, name)
	}
	r.byID[id] = &Algorithm{ID: id, Name: name, ByteLength: byteLength, Enabled: enabled}
	r.byName[name] = id
	return nil
}

// MustRegister is Register for start-up code; it panics on error.
func (r *Registry) MustRegister(id ID, name string, byteLength int, enabled bool) {
	if err := r.Register(id, name, byteLength, enabled); err != nil {
		panic(err)
	}
}

// IDForName looks the name up case-insensitively and returns Unknown when absent.
func (r *Registry) IDForName(name string) ID {
	id, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Unknown
	}
	return id
}

// Name returns the algorithm name, or "unknown".
func (r *Registry) Name(id ID) string {
	if a, ok := r.byID[id]; ok {
		return a.Name
	}
	return "unknown"
}

// IsValidHex reports whether text is a well-formed digest for id.
func (r *Registry) IsValidHex(id ID, text string) bool {
	a, ok := r.byID[id]
	if !ok {
		return false
	}
	if len(text) != a.HexLength() {
		return false
	}
	for i := 0; i < len(text); i++ {
		if !isHexChar(text[i]) {
			return false
		}
	}
	return true
}

func isHexChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// SetEnabled switches an algorithm on or off for subsequent hashing and matching.
func (r *Registry) SetEnabled(id ID, enabled bool) {
	if a, ok := r.byID[id]; ok {
		a.Enabled = enabled
	}
}

// ClearAllEnabled disables every algorithm.
func (r *Registry) ClearAllEnabled() {
	for _, a := range r.byID {
		a.Enabled = false
	}
}

// Enabled reports whether id is in use.
func (r *Registry) Enabled(id ID) bool {
	a, ok := r.byID[id]
	return ok && a.Enabled
}

// IDs returns every registered id in ascending order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InUse returns the enabled ids in ascending order.
func (r *Registry) InUse() []ID {
	all := r.IDs()
	ids := all[:0]
	for _, id := range all {
		if r.byID[id].Enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// Names returns the names of ids in the given order.
func (r *Registry) Names(ids []ID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, r.Name(id))
	}
	return names
}

// ParseList resolves a comma separated list such as "md5,sha256".
func (r *Registry) ParseList(list string) ([]ID, error) {
	var ids []ID
	seen := make(map[ID]struct{})
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id := r.IDForName(part)
		if id == Unknown {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, part)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no hash algorithm selected in %q", list)
	}
	return ids, nil
}

// EnableOnly clears the in-use set and enables exactly ids.
func (r *Registry) EnableOnly(ids []ID) {
	r.ClearAllEnabled()
	for _, id := range ids {
		r.SetEnabled(id, true)
	}
}
