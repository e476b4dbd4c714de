package swarm

import "fmt"

// CouncilRecommendation is a group of agents assembled for a task.
type CouncilRecommendation struct {
	TaskCategory       string     `json:"task_category"`
	Complexity         Complexity `json:"complexity"`
	RecommendedCouncil []string   `json:"recommended_council"`
	Rationale          string     `json:"rationale"`
}

// CouncilRecommender assembles councils from static tables. It holds no
// learning state.
type CouncilRecommender struct {
	classifier *KeywordClassifier
	tables     CouncilTables
}

// NewCouncilRecommender creates a recommender over roster's council tables.
func NewCouncilRecommender(classifier *KeywordClassifier, roster *Roster) *CouncilRecommender {
	if roster == nil {
		roster = DefaultRoster()
	}
	if classifier == nil {
		classifier = NewKeywordClassifier(roster.Categories)
	}
	return &CouncilRecommender{classifier: classifier, tables: roster.Council}
}

// Size returns the council size for complexity, or the default size for
// an unrecognized value.
func (c *CouncilRecommender) Size(complexity Complexity) int {
	if n, ok := c.tables.Sizes[complexity]; ok {
		return n
	}
	return c.tables.DefaultSize
}

// Recommend returns the category's priority agents followed by the
// generalists, without duplicates, truncated to the complexity's size.
func (c *CouncilRecommender) Recommend(text string, complexity Complexity) *CouncilRecommendation {
	category := c.classifier.Detect(text)

	priority, ok := c.tables.Priorities[category]
	if !ok {
		priority = c.tables.Fallback
	}

	size := c.Size(complexity)
	seen := make(map[string]bool, len(priority)+len(c.tables.Generalists))
	members := make([]string, 0, size)
	for _, group := range [][]string{priority, c.tables.Generalists} {
		for _, agent := range group {
			if len(members) == size {
				break
			}
			if seen[agent] {
				continue
			}
			seen[agent] = true
			members = append(members, agent)
		}
	}

	return &CouncilRecommendation{
		TaskCategory:       category,
		Complexity:         complexity,
		RecommendedCouncil: members,
		Rationale:          fmt.Sprintf("%s task requiring %s complexity oversight", category, complexity),
	}
}
