package values

// DeepMerge recursively merges overlay into base and returns a new map.
// When a key holds mappings on both sides the mappings are merged
// recursively; any other conflict is resolved by taking the overlay's value
// wholesale. Lists are replaced, never concatenated. Neither input is
// mutated.
func DeepMerge(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = deepCopy(v)
	}

	for key, overlayValue := range overlay {
		baseValue, exists := result[key]
		if exists {
			baseMap, baseIsMap := baseValue.(map[string]any)
			overlayMap, overlayIsMap := overlayValue.(map[string]any)
			if baseIsMap && overlayIsMap {
				result[key] = DeepMerge(baseMap, overlayMap)
				continue
			}
		}
		result[key] = deepCopy(overlayValue)
	}

	return result
}

// mergeStringMaps overlays b onto a, returning a new map.
func mergeStringMaps(a, b map[string]string) map[string]string {
	result := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		result[k] = v
	}
	for k, v := range b {
		result[k] = v
	}
	return result
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for k, val := range v {
			result[k] = deepCopy(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = deepCopy(val)
		}
		return result
	default:
		// Scalars are immutable.
		return value
	}
}
