package swarm

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentProfile names an agent and the capability tags it is suited for.
type AgentProfile struct {
	Name         string   `yaml:"name" json:"name"`
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
}

// CouncilTables drives council assembly.
type CouncilTables struct {
	Priorities  map[string][]string `yaml:"priorities" json:"priorities"`
	Fallback    []string            `yaml:"fallback" json:"fallback"`
	Generalists []string            `yaml:"generalists" json:"generalists"`
	Sizes       map[Complexity]int  `yaml:"sizes" json:"sizes"`
	DefaultSize int                 `yaml:"default_size" json:"default_size"`
}

// Roster holds the static tables: agent capabilities, task categories and
// council priorities. Order matters for Agents and Categories: it decides
// score seeding order and classification ties.
type Roster struct {
	Agents     []AgentProfile `yaml:"agents" json:"agents"`
	Categories []Category     `yaml:"categories" json:"categories"`
	Council    CouncilTables  `yaml:"council" json:"council"`
}

// DefaultRoster returns the built-in tables.
func DefaultRoster() *Roster {
	return &Roster{
		Agents:     DefaultAgents(),
		Categories: DefaultCategories(),
		Council:    DefaultCouncilTables(),
	}
}

// DefaultAgents returns the built-in capability table.
func DefaultAgents() []AgentProfile {
	return []AgentProfile{
		{Name: "maia", Capabilities: []string{"planning", "meta", "coding", "strategy"}},
		{Name: "sisyphus", Capabilities: []string{"planning", "meta", "project-management", "scheduling"}},
		{Name: "coder", Capabilities: []string{"coding", "testing", "frontend", "backend", "architecture", "refactor"}},
		{Name: "ops", Capabilities: []string{"infrastructure", "devops", "automation", "deployment"}},
		{Name: "researcher", Capabilities: []string{"research", "meta", "documentation"}},
		{Name: "reviewer", Capabilities: []string{"review", "testing", "quality-assurance", "refactor"}},
		{Name: "workflow", Capabilities: []string{"automation", "infrastructure", "n8n", "workflows"}},
		{Name: "researcher_deep", Capabilities: []string{"research", "meta", "academic", "deep-analysis"}},
		{Name: "vision", Capabilities: []string{"research", "meta", "multimodal", "visual"}},
		{Name: "starter", Capabilities: []string{"planning", "infrastructure", "bootstrap", "setup"}},
		{Name: "librarian", Capabilities: []string{"research", "meta", "documentation", "knowledge"}},
		{Name: "maia_premium", Capabilities: []string{"meta", "planning", "review", "escalation"}},
		{Name: "prometheus", Capabilities: []string{"planning", "meta", "milestones", "architecture"}},
		{Name: "oracle", Capabilities: []string{"meta", "planning", "coding", "architecture", "refactor"}},
		{Name: "explore", Capabilities: []string{"research", "scanning", "codebase-mapping"}},
		{Name: "frontend", Capabilities: []string{"frontend", "coding", "ui", "ux"}},
		{Name: "github", Capabilities: []string{"automation", "meta", "git", "version-control"}},
		{Name: "sisyphus_junior", Capabilities: []string{"coding", "implementation", "precision"}},
		{Name: "opencode", Capabilities: []string{"meta", "infrastructure", "ecosystem"}},
	}
}

// DefaultCouncilTables returns the built-in council tables.
func DefaultCouncilTables() CouncilTables {
	return CouncilTables{
		Priorities: map[string][]string{
			"bugfix":        {"coder", "reviewer", "researcher", "oracle"},
			"feature":       {"prometheus", "coder", "maia", "sisyphus"},
			"refactor":      {"oracle", "coder", "reviewer"},
			"documentation": {"librarian", "researcher"},
			"testing":       {"reviewer", "coder"},
			"deployment":    {"ops", "maia_premium", "maia"},
			"review":        {"reviewer", "oracle", "maia_premium"},
			"research":      {"researcher_deep", "researcher", "librarian", "explore"},
		},
		Fallback:    []string{"maia", "oracle", "coder"},
		Generalists: []string{"maia", "oracle", "prometheus", "sisyphus"},
		Sizes: map[Complexity]int{
			ComplexityLow:    3,
			ComplexityMedium: 5,
			ComplexityHigh:   7,
		},
		DefaultSize: 5,
	}
}

// LoadRoster reads a YAML roster. Sections left out of the file keep
// their built-in values.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", path, err)
	}

	r.fillDefaults()
	r.normalize()
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("roster: %s: %w", path, err)
	}
	return &r, nil
}

// AgentsWith returns agents having capability, in roster order.
func (r *Roster) AgentsWith(capability string) []string {
	var agents []string
	for _, a := range r.Agents {
		for _, c := range a.Capabilities {
			if c == capability {
				agents = append(agents, a.Name)
				break
			}
		}
	}
	return agents
}

func (r *Roster) fillDefaults() {
	def := DefaultRoster()
	if len(r.Agents) == 0 {
		r.Agents = def.Agents
	}
	if len(r.Categories) == 0 {
		r.Categories = def.Categories
	}
	if r.Council.Priorities == nil {
		r.Council.Priorities = def.Council.Priorities
	}
	if len(r.Council.Fallback) == 0 {
		r.Council.Fallback = def.Council.Fallback
	}
	if len(r.Council.Generalists) == 0 {
		r.Council.Generalists = def.Council.Generalists
	}
	if len(r.Council.Sizes) == 0 {
		r.Council.Sizes = def.Council.Sizes
	}
	if r.Council.DefaultSize == 0 {
		r.Council.DefaultSize = def.Council.DefaultSize
	}
}

func (r *Roster) normalize() {
	for i := range r.Agents {
		r.Agents[i].Name = strings.TrimSpace(r.Agents[i].Name)
		r.Agents[i].Capabilities = lowerAll(r.Agents[i].Capabilities)
	}
	for i := range r.Categories {
		r.Categories[i].Name = strings.ToLower(strings.TrimSpace(r.Categories[i].Name))
		r.Categories[i].Keywords = lowerAll(r.Categories[i].Keywords)
	}
	priorities := make(map[string][]string, len(r.Council.Priorities))
	for cat, agents := range r.Council.Priorities {
		priorities[strings.ToLower(strings.TrimSpace(cat))] = trimAll(agents)
	}
	r.Council.Priorities = priorities
	r.Council.Fallback = trimAll(r.Council.Fallback)
	r.Council.Generalists = trimAll(r.Council.Generalists)
}

func (r *Roster) validate() error {
	seen := make(map[string]bool, len(r.Agents))
	for i, a := range r.Agents {
		if a.Name == "" {
			return fmt.Errorf("%w: agents[%d].name is required", ErrInvalidRoster, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidRoster, a.Name)
		}
		seen[a.Name] = true
	}

	cats := make(map[string]bool, len(r.Categories))
	for i, c := range r.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: categories[%d].name is required", ErrInvalidRoster, i)
		}
		if c.Name == CategoryGeneral {
			return fmt.Errorf("%w: category %q is reserved", ErrInvalidRoster, CategoryGeneral)
		}
		if cats[c.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidRoster, c.Name)
		}
		if len(c.Keywords) == 0 {
			return fmt.Errorf("%w: category %q has no keywords", ErrInvalidRoster, c.Name)
		}
		cats[c.Name] = true
	}

	for cx, size := range r.Council.Sizes {
		if !cx.IsValid() {
			return fmt.Errorf("%w: council.sizes: %v", ErrInvalidRoster, ErrInvalidComplexity)
		}
		if size <= 0 {
			return fmt.Errorf("%w: council.sizes.%s must be positive", ErrInvalidRoster, cx)
		}
	}
	if r.Council.DefaultSize <= 0 {
		return fmt.Errorf("%w: council.default_size must be positive", ErrInvalidRoster)
	}
	return nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
