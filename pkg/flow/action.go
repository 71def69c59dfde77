package flow

// Action is the label returned by a step finalize phase. It selects the next step.
type Action string

// DefaultAction is used when a step finalize phase does not return an explicit action.
const DefaultAction Action = "default"

func (a Action) orDefault() Action {
	if a == "" {
		return DefaultAction
	}

	return a
}

// Params is a flat set of values attached to a step invocation.
// Params are read-only during a traversal.
type Params map[string]any

// Merge returns a new Params holding p overridden by every map of others, in order.
func (p Params) Merge(others ...Params) Params {
	size := len(p)
	for _, other := range others {
		size += len(other)
	}

	merged := make(Params, size)
	for k, v := range p {
		merged[k] = v
	}

	for _, other := range others {
		for k, v := range other {
			merged[k] = v
		}
	}

	return merged
}

// GetString returns the string stored under key, or an empty string.
func (p Params) GetString(key string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}

// GetInt returns the number stored under key as an int, or 0.
func (p Params) GetInt(key string) int {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}

	return 0
}
