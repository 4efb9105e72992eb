package ytmusic

// Narrow, total accessors over decoded JSON. The renderer tree is an
// undocumented third-party shape with many optional fields; rather than a
// rigid schema type, the parser validates only the path it needs and treats
// everything else as opaque. All accessors return zero values on any
// mismatch and never panic.

// mapAt walks nested objects by key and returns the map at the end of the
// path, or nil if any step is missing or not an object.
func mapAt(v any, keys ...string) map[string]any {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[k]
	}
	m, _ := v.(map[string]any)
	return m
}

// listAt walks nested objects by key and returns the array at the end of
// the path, or nil.
func listAt(v any, keys ...string) []any {
	if len(keys) > 1 {
		v = mapAt(v, keys[:len(keys)-1]...)
		keys = keys[len(keys)-1:]
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	l, _ := m[keys[0]].([]any)
	return l
}

// stringAt walks nested objects by key and returns the string at the end of
// the path, or "".
func stringAt(v any, keys ...string) string {
	if len(keys) > 1 {
		v = mapAt(v, keys[:len(keys)-1]...)
		keys = keys[len(keys)-1:]
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[keys[0]].(string)
	return s
}

// firstRunText returns the text of the first run of a formatted-text node
// ({runs: [{text: ...}]}), or "".
func firstRunText(v any) string {
	runs := listAt(v, "runs")
	if len(runs) == 0 {
		return ""
	}
	return stringAt(runs[0], "text")
}

// firstRun returns the first run node of a formatted-text node, or nil.
func firstRun(v any) map[string]any {
	runs := listAt(v, "runs")
	if len(runs) == 0 {
		return nil
	}
	m, _ := runs[0].(map[string]any)
	return m
}
