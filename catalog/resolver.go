package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownSpecies  = errors.New("catalog: unknown species")
	ErrUnknownMove     = errors.New("catalog: unknown move")
	ErrUnknownAbility  = errors.New("catalog: unknown ability")
	ErrUnknownItem     = errors.New("catalog: unknown item")
	ErrUnknownType     = errors.New("catalog: unknown type")
	ErrUnknownNature   = errors.New("catalog: unknown nature")
	ErrInvalidDocument = errors.New("catalog: invalid document")
)

// File names a catalog directory may contain. Missing files are skipped.
const (
	SpeciesFileName   = "species.json"
	MovesFileName     = "moves.json"
	AbilitiesFileName = "abilities.json"
	ItemsFileName     = "items.json"
)

// Dex is the read-only lookup surface the battle engine consumes.
type Dex interface {
	Species(id string) (Species, error)
	Move(id string) (Move, error)
	Ability(id string) (Ability, error)
	Item(id string) (Item, error)
}

type tables struct {
	species   map[string]Species
	moves     map[string]Move
	abilities map[string]Ability
	items     map[string]Item
}

// Resolver merges one or more catalog directories into stable lookup tables.
// Later sources override earlier ones by id, which lets a local overlay patch
// the built-in data. Call Reload to pick up on-disk changes.
type Resolver struct {
	mu      sync.RWMutex
	sources []fs.FS
	data    tables
}

// Load constructs a Resolver over the built-in catalog plus the provided
// directories, in order.
func Load(dirs ...string) (*Resolver, error) {
	sources := []fs.FS{builtinFS()}
	for _, dir := range dirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		sources = append(sources, os.DirFS(trimmed))
	}
	return NewResolver(sources...)
}

// NewResolver constructs a Resolver from arbitrary file systems. Tests pass
// fstest.MapFS values; production code uses the embedded catalog and
// os.DirFS overlays.
func NewResolver(sources ...fs.FS) (*Resolver, error) {
	r := &Resolver{sources: append([]fs.FS(nil), sources...)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all sources and swaps the tables atomically. A failed
// reload leaves the previous tables in place.
func (r *Resolver) Reload() error {
	if r == nil {
		return nil
	}
	speciesDocs := make(map[string]SpeciesDocument)
	moves := make(map[string]Move)
	abilities := make(map[string]Ability)
	items := make(map[string]Item)

	for i, src := range r.sources {
		if err := loadInto(src, SpeciesFileName, func(doc SpeciesDocument) (string, error) {
			doc.ID = documentID(doc.ID, doc.Name)
			doc.BaseSpecies = ToID(doc.BaseSpecies)
			speciesDocs[doc.ID] = doc
			return doc.ID, nil
		}); err != nil {
			return fmt.Errorf("catalog: source %d: %w", i, err)
		}
		if err := loadInto(src, MovesFileName, func(m Move) (string, error) {
			m.ID = documentID(m.ID, m.Name)
			normalized, err := normalizeMove(m)
			if err != nil {
				return m.ID, err
			}
			moves[m.ID] = normalized
			return m.ID, nil
		}); err != nil {
			return fmt.Errorf("catalog: source %d: %w", i, err)
		}
		if err := loadInto(src, AbilitiesFileName, func(a Ability) (string, error) {
			a.ID = documentID(a.ID, a.Name)
			abilities[a.ID] = a
			return a.ID, nil
		}); err != nil {
			return fmt.Errorf("catalog: source %d: %w", i, err)
		}
		if err := loadInto(src, ItemsFileName, func(it Item) (string, error) {
			it.ID = documentID(it.ID, it.Name)
			items[it.ID] = it
			return it.ID, nil
		}); err != nil {
			return fmt.Errorf("catalog: source %d: %w", i, err)
		}
	}

	species, err := resolveSpecies(speciesDocs)
	if err != nil {
		return err
	}
	if err := checkReferences(species, abilities, items); err != nil {
		return err
	}

	r.mu.Lock()
	r.data = tables{species: species, moves: moves, abilities: abilities, items: items}
	r.mu.Unlock()
	return nil
}

func checkReferences(species map[string]Species, abilities map[string]Ability, items map[string]Item) error {
	ids := make([]string, 0, len(species))
	for id := range species {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rec := species[id]
		for _, ability := range rec.Abilities.IDs() {
			if _, ok := abilities[ability]; !ok {
				return fmt.Errorf("%w: species %q lists %q", ErrUnknownAbility, id, ability)
			}
		}
		if rec.RequiredItem != "" {
			if _, ok := items[rec.RequiredItem]; !ok {
				return fmt.Errorf("%w: form %q requires %q", ErrUnknownItem, id, rec.RequiredItem)
			}
		}
		if rec.RequiredAbility != "" {
			if _, ok := abilities[rec.RequiredAbility]; !ok {
				return fmt.Errorf("%w: form %q requires %q", ErrUnknownAbility, id, rec.RequiredAbility)
			}
		}
		if rec.BattleOnly && rec.RequiredItem == "" && rec.RequiredAbility == "" {
			return fmt.Errorf("%w: battle-only form %q has no item or ability gate", ErrInvalidDocument, id)
		}
	}
	return nil
}

func normalizeMove(m Move) (Move, error) {
	t, err := ParseType(string(m.Type))
	if err != nil {
		return m, err
	}
	m.Type = t
	switch m.Category {
	case CategoryPhysical, CategorySpecial, CategoryStatus:
	default:
		return m, fmt.Errorf("%w: move %q has category %q", ErrInvalidDocument, m.ID, m.Category)
	}
	if m.Target == "" {
		m.Target = TargetNormal
	}
	switch m.Target {
	case TargetNormal, TargetSelf, TargetAdjacentFoe, TargetAllAdjacentFoes, TargetAllAdjacent, TargetAllySide, TargetFoeSide, TargetAll:
	default:
		return m, fmt.Errorf("%w: move %q has target %q", ErrInvalidDocument, m.ID, m.Target)
	}
	if m.PP <= 0 {
		return m, fmt.Errorf("%w: move %q needs positive pp", ErrInvalidDocument, m.ID)
	}
	if m.Accuracy < 0 || m.Accuracy > 100 {
		return m, fmt.Errorf("%w: move %q accuracy %d out of range", ErrInvalidDocument, m.ID, m.Accuracy)
	}
	if m.Category != CategoryStatus && m.BasePower <= 0 && m.FixedDamage <= 0 && !m.LevelDamage {
		return m, fmt.Errorf("%w: damaging move %q has no power", ErrInvalidDocument, m.ID)
	}
	if m.CritRatio == 0 {
		m.CritRatio = 1
	}
	for _, f := range []*Fraction{m.Drain, m.Recoil, m.Heal} {
		if f != nil && !f.Valid() {
			return m, fmt.Errorf("%w: move %q has malformed fraction %v", ErrInvalidDocument, m.ID, *f)
		}
	}
	boostMaps := []map[string]int{m.Boosts, m.SelfBoosts}
	if m.Secondary != nil {
		if m.Secondary.Chance <= 0 || m.Secondary.Chance > 100 {
			return m, fmt.Errorf("%w: move %q secondary chance %d", ErrInvalidDocument, m.ID, m.Secondary.Chance)
		}
		boostMaps = append(boostMaps, m.Secondary.Boosts, m.Secondary.SelfBoosts)
		m.Secondary.Status = ToID(m.Secondary.Status)
		m.Secondary.VolatileStatus = ToID(m.Secondary.VolatileStatus)
	}
	for _, boosts := range boostMaps {
		for key := range boosts {
			stat, ok := ParseStat(key)
			if !ok || stat == StatHP {
				return m, fmt.Errorf("%w: move %q boosts unknown stat %q", ErrInvalidDocument, m.ID, key)
			}
		}
	}
	m.Status = ToID(m.Status)
	m.VolatileStatus = ToID(m.VolatileStatus)
	m.SideCondition = ToID(m.SideCondition)
	m.Weather = ToID(m.Weather)
	m.Terrain = ToID(m.Terrain)
	return m, nil
}

func documentID(id, name string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return ToID(trimmed)
	}
	return ToID(name)
}

// loadInto decodes one file from src and feeds each record to add, rejecting
// empty and duplicate ids within the file.
func loadInto[T any](src fs.FS, name string, add func(T) (string, error)) error {
	data, err := fs.ReadFile(src, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed loading %s: %w", name, err)
	}
	docs, err := decodeDocuments[T](data)
	if err != nil {
		return fmt.Errorf("failed parsing %s: %w", name, err)
	}
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		id, err := add(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if id == "" {
			return fmt.Errorf("%w: %s entry missing id", ErrInvalidDocument, name)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q in %s", ErrInvalidDocument, id, name)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// decodeDocuments accepts either an array of records or an object keyed by id.
func decodeDocuments[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var docs []T
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	case '{':
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(object))
		for key := range object {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		docs := make([]T, 0, len(keys))
		for _, key := range keys {
			raw := object[key]
			var probe struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil, fmt.Errorf("entry %q: %w", key, err)
			}
			if probe.ID == "" {
				patched, err := withID(raw, key)
				if err != nil {
					return nil, fmt.Errorf("entry %q: %w", key, err)
				}
				raw = patched
			} else if ToID(probe.ID) != ToID(key) {
				return nil, fmt.Errorf("entry id %q does not match key %q", probe.ID, key)
			}
			var doc T
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("entry %q: %w", key, err)
			}
			docs = append(docs, doc)
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("unexpected json token %q", string(trimmed[:1]))
	}
}

func withID(raw json.RawMessage, id string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields["id"] = encoded
	return json.Marshal(fields)
}

// Species returns the flattened record for id.
func (r *Resolver) Species(id string) (Species, error) {
	if r == nil {
		return Species{}, ErrUnknownSpecies
	}
	key := ToID(id)
	r.mu.RLock()
	rec, ok := r.data.species[key]
	r.mu.RUnlock()
	if !ok {
		return Species{}, fmt.Errorf("%w: %q", ErrUnknownSpecies, id)
	}
	return rec.clone(), nil
}

// Move returns the move record for id.
func (r *Resolver) Move(id string) (Move, error) {
	if r == nil {
		return Move{}, ErrUnknownMove
	}
	key := ToID(id)
	r.mu.RLock()
	rec, ok := r.data.moves[key]
	r.mu.RUnlock()
	if !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrUnknownMove, id)
	}
	return rec, nil
}

// Ability returns the ability record for id.
func (r *Resolver) Ability(id string) (Ability, error) {
	if r == nil {
		return Ability{}, ErrUnknownAbility
	}
	key := ToID(id)
	r.mu.RLock()
	rec, ok := r.data.abilities[key]
	r.mu.RUnlock()
	if !ok {
		return Ability{}, fmt.Errorf("%w: %q", ErrUnknownAbility, id)
	}
	return rec, nil
}

// Item returns the item record for id.
func (r *Resolver) Item(id string) (Item, error) {
	if r == nil {
		return Item{}, ErrUnknownItem
	}
	key := ToID(id)
	r.mu.RLock()
	rec, ok := r.data.items[key]
	r.mu.RUnlock()
	if !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return rec, nil
}

// SpeciesIDs lists every species id, forms included, in sorted order.
func (r *Resolver) SpeciesIDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.data.species))
	for id := range r.data.species {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MoveIDs lists every move id in sorted order.
func (r *Resolver) MoveIDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.data.moves))
	for id := range r.data.moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
