package state

// Field is the state shared by every combatant: the turn counter, weather,
// terrain and per-side conditions.
type Field struct {
	Turn    int
	Weather *EffectState
	Terrain *EffectState
	Sides   [2]ConditionSet
}

// NewField returns an empty field at turn zero.
func NewField() *Field {
	return &Field{}
}

// WeatherID returns the active weather id or "".
func (f *Field) WeatherID() string {
	if f == nil || f.Weather == nil {
		return ""
	}
	return f.Weather.ID
}

// TerrainID returns the active terrain id or "".
func (f *Field) TerrainID() string {
	if f == nil || f.Terrain == nil {
		return ""
	}
	return f.Terrain.ID
}

// SetWeather replaces the weather. Setting the weather that is already active
// follows policy. It reports whether anything changed.
func (f *Field) SetWeather(st EffectState, policy RestartPolicy) bool {
	if f == nil {
		return false
	}
	return setSlot(&f.Weather, st, policy)
}

// SetTerrain behaves like SetWeather for terrain.
func (f *Field) SetTerrain(st EffectState, policy RestartPolicy) bool {
	if f == nil {
		return false
	}
	return setSlot(&f.Terrain, st, policy)
}

func setSlot(slot **EffectState, st EffectState, policy RestartPolicy) bool {
	if st.ID == "" {
		return false
	}
	if current := *slot; current != nil && current.ID == st.ID {
		if policy != RestartRefresh {
			return false
		}
		current.Duration = st.Duration
		current.Timed = st.Timed
		return true
	}
	copied := st
	*slot = &copied
	return true
}

// SideConditions returns the condition set for side.
func (f *Field) SideConditions(side SideID) *ConditionSet {
	if f == nil || !side.Valid() {
		return nil
	}
	return &f.Sides[side]
}

// TickWeather decrements the weather counter, clearing it on expiry.
func (f *Field) TickWeather() (string, error) {
	return tickSlot(&f.Weather)
}

// TickTerrain decrements the terrain counter, clearing it on expiry.
func (f *Field) TickTerrain() (string, error) {
	return tickSlot(&f.Terrain)
}

func tickSlot(slot **EffectState) (string, error) {
	current := *slot
	if current == nil {
		return "", nil
	}
	done, err := current.Tick()
	if err != nil {
		return "", err
	}
	if !done {
		return "", nil
	}
	*slot = nil
	return current.ID, nil
}
