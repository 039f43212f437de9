package knob

// ReadingJSON is the JSON representation of a Reading shared by MQTT
// payloads and the status endpoint. Undefined values encode as null.
type ReadingJSON struct {
	Value     *int         `json:"value"`
	PrevValue *int         `json:"prev_value"`
	Mapping   *MappingJSON `json:"mapping,omitempty"`
	Centered  *CenterJSON  `json:"centered,omitempty"`
}

// MappingJSON holds the level fields of a mapping pipeline.
type MappingJSON struct {
	Levels    int  `json:"levels"`
	Level     *int `json:"level"`
	PrevLevel *int `json:"prev_level"`
}

// CenterJSON holds the signed fields of a centered pipeline.
type CenterJSON struct {
	Value     *int `json:"value"`
	PrevValue *int `json:"prev_value"`
	Level     *int `json:"level"`
	PrevLevel *int `json:"prev_level"`
}

// JSON converts r for encoding.
func (r Reading) JSON() ReadingJSON {
	out := ReadingJSON{
		Value:     value(r.Value),
		PrevValue: value(r.PrevValue),
	}
	if r.Levels > 0 {
		out.Mapping = &MappingJSON{
			Levels:    r.Levels,
			Level:     level(r.Level),
			PrevLevel: level(r.PrevLevel),
		}
	}
	if r.Centered {
		out.Centered = &CenterJSON{
			Value:     value(r.CenteredValue),
			PrevValue: value(r.CenteredPrevValue),
			Level:     level(r.CenteredLevel),
			PrevLevel: level(r.CenteredPrevLevel),
		}
	}
	return out
}

func value(v int) *int {
	if !ValueDefined(v) {
		return nil
	}
	return &v
}

func level(l int) *int {
	if !LevelDefined(l) {
		return nil
	}
	return &l
}
