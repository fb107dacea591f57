package protocol

// Skill describes one capability an agent advertises on its AgentCard.
type Skill struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Examples    []string
}

// SecurityScheme describes an authentication mechanism an agent's endpoint
// requires, mirroring the subset of OpenAPI security schemes A2A agent cards
// reference (apiKey, http bearer, oauth2).
type SecurityScheme struct {
	Type   string // "apiKey", "http", "oauth2"
	Scheme string // e.g. "bearer", only set when Type == "http"
	In     string // "header", "query"; only set when Type == "apiKey"
	Name   string // header/query parameter name; only set when Type == "apiKey"
}

// AgentCard is the self-description an agent serves at its well-known
// discovery endpoint: identity, connection details, and advertised skills.
type AgentCard struct {
	Name            string
	Description     string
	URL             string
	Version         string
	Skills          []Skill
	SecuritySchemes map[string]SecurityScheme
	Capabilities    map[string]bool
	DefaultInputModes  []string
	DefaultOutputModes []string
	Extra           map[string]any
}

// ToDict encodes the agent card using the process-wide default dialect.
func (c AgentCard) ToDict() map[string]any {
	if GoogleA2ACompat() {
		return c.toGoogleA2ADict()
	}
	return c.toNativeDict()
}

func (c AgentCard) toNativeDict() map[string]any {
	obj := map[string]any{
		"name":                 c.Name,
		"description":          c.Description,
		"url":                  c.URL,
		"version":              c.Version,
		"skills":               skillsToList(c.Skills),
		"capabilities":         c.Capabilities,
		"default_input_modes":  c.DefaultInputModes,
		"default_output_modes": c.DefaultOutputModes,
	}
	if len(c.SecuritySchemes) > 0 {
		obj["security_schemes"] = securitySchemesToMap(c.SecuritySchemes)
	}
	return mergeExtra(obj, c.Extra)
}

func (c AgentCard) toGoogleA2ADict() map[string]any {
	obj := map[string]any{
		"name":               c.Name,
		"description":        c.Description,
		"url":                c.URL,
		"version":            c.Version,
		"skills":             skillsToList(c.Skills),
		"capabilities":       c.Capabilities,
		"defaultInputModes":  c.DefaultInputModes,
		"defaultOutputModes": c.DefaultOutputModes,
	}
	if len(c.SecuritySchemes) > 0 {
		obj["securitySchemes"] = securitySchemesToMap(c.SecuritySchemes)
	}
	return mergeExtra(obj, c.Extra)
}

// AgentCardFromDict decodes an agent card using the process-wide default
// dialect.
func AgentCardFromDict(obj map[string]any) AgentCard {
	if GoogleA2ACompat() {
		return agentCardFromGoogleA2A(obj)
	}
	return agentCardFromNative(obj)
}

func agentCardFromNative(obj map[string]any) AgentCard {
	var c AgentCard
	c.Name, _ = obj["name"].(string)
	c.Description, _ = obj["description"].(string)
	c.URL, _ = obj["url"].(string)
	c.Version, _ = obj["version"].(string)
	c.Skills = skillsFromAny(obj["skills"])
	c.Capabilities = boolMapFromAny(obj["capabilities"])
	c.DefaultInputModes = stringListFromAny(obj["default_input_modes"])
	c.DefaultOutputModes = stringListFromAny(obj["default_output_modes"])
	c.SecuritySchemes = securitySchemesFromAny(obj["security_schemes"])
	return c
}

func agentCardFromGoogleA2A(obj map[string]any) AgentCard {
	var c AgentCard
	c.Name, _ = obj["name"].(string)
	c.Description, _ = obj["description"].(string)
	c.URL, _ = obj["url"].(string)
	c.Version, _ = obj["version"].(string)
	c.Skills = skillsFromAny(obj["skills"])
	c.Capabilities = boolMapFromAny(obj["capabilities"])
	c.DefaultInputModes = stringListFromAny(obj["defaultInputModes"])
	c.DefaultOutputModes = stringListFromAny(obj["defaultOutputModes"])
	c.SecuritySchemes = securitySchemesFromAny(obj["securitySchemes"])
	return c
}

func skillsToList(skills []Skill) []any {
	out := make([]any, 0, len(skills))
	for _, s := range skills {
		out = append(out, map[string]any{
			"id":          s.ID,
			"name":        s.Name,
			"description": s.Description,
			"tags":        s.Tags,
			"examples":    s.Examples,
		})
	}
	return out
}

func skillsFromAny(v any) []Skill {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Skill, 0, len(list))
	for _, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		s := Skill{}
		s.ID, _ = m["id"].(string)
		s.Name, _ = m["name"].(string)
		s.Description, _ = m["description"].(string)
		s.Tags = stringListFromAny(m["tags"])
		s.Examples = stringListFromAny(m["examples"])
		out = append(out, s)
	}
	return out
}

func stringListFromAny(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, raw := range list {
		if s, ok := raw.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func boolMapFromAny(v any) map[string]bool {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, raw := range m {
		if b, ok := raw.(bool); ok {
			out[k] = b
		}
	}
	return out
}

func securitySchemesToMap(schemes map[string]SecurityScheme) map[string]any {
	out := make(map[string]any, len(schemes))
	for name, s := range schemes {
		m := map[string]any{"type": s.Type}
		if s.Scheme != "" {
			m["scheme"] = s.Scheme
		}
		if s.In != "" {
			m["in"] = s.In
		}
		if s.Name != "" {
			m["name"] = s.Name
		}
		out[name] = m
	}
	return out
}

func securitySchemesFromAny(v any) map[string]SecurityScheme {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]SecurityScheme, len(m))
	for name, raw := range m {
		sm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		s := SecurityScheme{}
		s.Type, _ = sm["type"].(string)
		s.Scheme, _ = sm["scheme"].(string)
		s.In, _ = sm["in"].(string)
		s.Name, _ = sm["name"].(string)
		out[name] = s
	}
	return out
}
