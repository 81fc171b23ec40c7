package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Species is a flattened, self-contained species record. Alternate forms are
// resolved against their base once at load time, so nothing at runtime walks
// an inheritance chain.
type Species struct {
	ID              string
	Name            string
	Num             int
	Types           []Type
	BaseStats       StatTable
	Abilities       AbilitySlots
	HeightM         float64
	WeightKg        float64
	Color           string
	Prevo           string
	Evos            []string
	BaseSpecies     string
	Forme           string
	BattleOnly      bool
	RequiredItem    string
	RequiredAbility string
	Formes          []string
}

// IsForm reports whether the record is an alternate form of another species.
func (s Species) IsForm() bool {
	return s.BaseSpecies != "" && s.BaseSpecies != s.ID
}

// HasType reports whether t is one of the species' types.
func (s Species) HasType(t Type) bool {
	for _, own := range s.Types {
		if own == t {
			return true
		}
	}
	return false
}

func (s Species) clone() Species {
	s.Types = append([]Type(nil), s.Types...)
	s.Evos = append([]string(nil), s.Evos...)
	s.Formes = append([]string(nil), s.Formes...)
	return s
}

func parseTypes(names []string) ([]Type, error) {
	if len(names) == 0 || len(names) > 2 {
		return nil, fmt.Errorf("%w: species needs one or two types, got %d", ErrInvalidDocument, len(names))
	}
	out := make([]Type, 0, len(names))
	for _, name := range names {
		t, err := ParseType(name)
		if err != nil {
			return nil, err
		}
		for _, existing := range out {
			if existing == t {
				return nil, fmt.Errorf("%w: duplicate type %s", ErrInvalidDocument, t)
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func baseRecord(doc SpeciesDocument) (Species, error) {
	if doc.BaseStats == nil {
		return Species{}, fmt.Errorf("%w: species %q missing baseStats", ErrInvalidDocument, doc.ID)
	}
	if doc.Abilities == nil || strings.TrimSpace(doc.Abilities.Primary) == "" {
		return Species{}, fmt.Errorf("%w: species %q missing primary ability", ErrInvalidDocument, doc.ID)
	}
	types, err := parseTypes(doc.Types)
	if err != nil {
		return Species{}, fmt.Errorf("species %q: %w", doc.ID, err)
	}
	return Species{
		ID:          doc.ID,
		Name:        doc.Name,
		Num:         doc.Num,
		Types:       types,
		BaseStats:   *doc.BaseStats,
		Abilities:   normalizeSlots(*doc.Abilities),
		HeightM:     doc.HeightM,
		WeightKg:    doc.WeightKg,
		Color:       doc.Color,
		Prevo:       ToID(doc.Prevo),
		Evos:        normalizeIDs(doc.Evos),
		BaseSpecies: doc.ID,
	}, nil
}

// flattenForm applies a form's overrides on top of its resolved base record.
func flattenForm(base Species, doc SpeciesDocument) (Species, error) {
	out := base.clone()
	out.ID = doc.ID
	out.BaseSpecies = base.ID
	out.Forme = doc.Forme
	out.Name = doc.Name
	if out.Name == "" {
		out.Name = base.Name + "-" + doc.Forme
	}
	if doc.Num != 0 {
		out.Num = doc.Num
	}
	out.Prevo = ToID(doc.Prevo)
	out.Evos = normalizeIDs(doc.Evos)
	out.Formes = nil
	out.BattleOnly = doc.BattleOnly
	out.RequiredItem = ToID(doc.RequiredItem)
	out.RequiredAbility = ToID(doc.RequiredAbility)

	// Forms may also author full fields directly instead of an override block.
	if len(doc.Types) > 0 {
		types, err := parseTypes(doc.Types)
		if err != nil {
			return Species{}, fmt.Errorf("form %q: %w", doc.ID, err)
		}
		out.Types = types
	}
	if doc.BaseStats != nil {
		out.BaseStats = *doc.BaseStats
	}
	if doc.Abilities != nil {
		out.Abilities = normalizeSlots(*doc.Abilities)
	}
	if doc.HeightM != 0 {
		out.HeightM = doc.HeightM
	}
	if doc.WeightKg != 0 {
		out.WeightKg = doc.WeightKg
	}
	if doc.Color != "" {
		out.Color = doc.Color
	}

	if ov := doc.Overrides; ov != nil {
		if len(ov.Types) > 0 {
			types, err := parseTypes(ov.Types)
			if err != nil {
				return Species{}, fmt.Errorf("form %q: %w", doc.ID, err)
			}
			out.Types = types
		}
		if ov.BaseStats != nil {
			out.BaseStats = *ov.BaseStats
		}
		if ov.Abilities != nil {
			out.Abilities = normalizeSlots(*ov.Abilities)
		}
		if ov.HeightM != nil {
			out.HeightM = *ov.HeightM
		}
		if ov.WeightKg != nil {
			out.WeightKg = *ov.WeightKg
		}
		if ov.Color != "" {
			out.Color = ov.Color
		}
	}
	return out, nil
}

// resolveSpecies flattens every document. Base records resolve first; forms
// must point at a base record, never at another form.
func resolveSpecies(docs map[string]SpeciesDocument) (map[string]Species, error) {
	out := make(map[string]Species, len(docs))
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		doc := docs[id]
		if isFormDocument(doc) {
			continue
		}
		rec, err := baseRecord(doc)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	for _, id := range ids {
		doc := docs[id]
		if !isFormDocument(doc) {
			continue
		}
		baseID := ToID(doc.BaseSpecies)
		base, ok := out[baseID]
		if ok && base.IsForm() {
			return nil, fmt.Errorf("%w: form %q references form %q as its base", ErrInvalidDocument, id, baseID)
		}
		if !ok {
			if _, isDoc := docs[baseID]; isDoc {
				return nil, fmt.Errorf("%w: form %q references form %q as its base", ErrInvalidDocument, id, baseID)
			}
			return nil, fmt.Errorf("%w: form %q references %q", ErrUnknownSpecies, id, doc.BaseSpecies)
		}
		rec, err := flattenForm(base, doc)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	for _, id := range ids {
		rec := out[id]
		if !rec.IsForm() {
			continue
		}
		base := out[rec.BaseSpecies]
		base.Formes = append(base.Formes, rec.ID)
		out[rec.BaseSpecies] = base
	}
	return out, nil
}

func isFormDocument(doc SpeciesDocument) bool {
	base := ToID(doc.BaseSpecies)
	return base != "" && base != doc.ID
}

func normalizeSlots(slots AbilitySlots) AbilitySlots {
	return AbilitySlots{
		Primary:   ToID(slots.Primary),
		Secondary: ToID(slots.Secondary),
		Hidden:    ToID(slots.Hidden),
	}
}

func normalizeIDs(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id := ToID(name); id != "" {
			out = append(out, id)
		}
	}
	return out
}
