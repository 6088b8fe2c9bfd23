package provider

// NormalizeToolParts maps a loosely-typed, provider-specific part (as
// decoded from arbitrary backend JSON) into the canonical OutputPart
// shapes named in §4.1 ("Output normalization"). Alternative field names
// used by some backends (call_id, tool_call_id, arguments, input,
// function.arguments, ...) are tolerated; anything left over is
// preserved under Details so no information is lost.
func NormalizeToolParts(raw []map[string]any) []OutputPart {
	parts := make([]OutputPart, 0, len(raw))
	for _, p := range raw {
		switch stringField(p, "type") {
		case "tool_use", "tool_call", "function_call":
			parts = append(parts, normalizeToolUse(p))
		case "tool_result", "function_result":
			parts = append(parts, normalizeToolResult(p))
		default:
			parts = append(parts, normalizeTextish(p))
		}
	}
	return parts
}

func normalizeToolUse(p map[string]any) OutputPart {
	id := firstNonEmpty(stringField(p, "id"), stringField(p, "call_id"),
		stringField(p, "tool_call_id"), stringField(p, "tool_use_id"))
	name := stringField(p, "name")
	if name == "" {
		name = stringField(p, "tool_name")
	}
	if name == "" {
		if fn, ok := p["function"].(map[string]any); ok {
			name = stringField(fn, "name")
		}
	}
	params := firstMap(p, "parameters", "input", "arguments", "args")
	if params == nil {
		if fn, ok := p["function"].(map[string]any); ok {
			params = firstMap(fn, "arguments")
		}
	}
	known := map[string]bool{
		"type": true, "id": true, "call_id": true, "tool_call_id": true,
		"tool_use_id": true, "name": true, "tool_name": true,
		"parameters": true, "input": true, "arguments": true,
		"args": true, "function": true,
	}
	return OutputPart{
		Type:       PartToolUse,
		ID:         id,
		Name:       name,
		Parameters: params,
		Details:    extras(p, known),
	}
}

func normalizeToolResult(p map[string]any) OutputPart {
	id := firstNonEmpty(stringField(p, "tool_use_id"), stringField(p, "tool_call_id"),
		stringField(p, "call_id"))
	text := firstNonEmptyInterface(p, "text", "output_text", "content", "result", "data", "message")
	isErr, _ := p["is_error"].(bool)
	known := map[string]bool{
		"type": true, "tool_use_id": true, "tool_call_id": true, "call_id": true,
		"text": true, "output_text": true, "content": true, "result": true,
		"data": true, "message": true, "is_error": true,
	}
	return OutputPart{
		Type:      PartToolResult,
		ToolUseID: id,
		Text:      text,
		IsError:   isErr,
		Details:   extras(p, known),
	}
}

func normalizeTextish(p map[string]any) OutputPart {
	text := firstNonEmptyInterface(p, "text", "output_text", "content", "result", "data", "message")
	known := map[string]bool{"type": true, "text": true, "output_text": true, "content": true}
	return OutputPart{Type: PartOutputText, Text: text, Details: extras(p, known)}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyInterface(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstMap(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

func extras(p map[string]any, known map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range p {
		if known[k] {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}
