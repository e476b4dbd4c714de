package swarm

import "strings"

// CategoryGeneral is returned when no category keyword matches.
const CategoryGeneral = "general"

// Category is a task category and the keywords that identify it.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultCategories returns the built-in category table in priority order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "bugfix", Keywords: []string{"fix", "bug", "error", "issue", "broken"}},
		{Name: "feature", Keywords: []string{"implement", "add", "feature", "new", "create"}},
		{Name: "refactor", Keywords: []string{"refactor", "restructure", "reorganize", "cleanup", "redesign"}},
		{Name: "documentation", Keywords: []string{"document", "readme", "doc", "comment"}},
		{Name: "testing", Keywords: []string{"test", "spec", "coverage", "assert"}},
		{Name: "deployment", Keywords: []string{"deploy", "release", "ship", "production"}},
		{Name: "review", Keywords: []string{"review", "audit", "check", "verify"}},
		{Name: "research", Keywords: []string{"research", "investigate", "explore", "find"}},
		{Name: "optimization", Keywords: []string{"optimize", "improve", "speed", "performance"}},
	}
}

// KeywordClassifier assigns a task description to a category by counting
// keyword hits.
type KeywordClassifier struct {
	categories []Category
}

// NewKeywordClassifier creates a classifier over an ordered category table.
// A nil or empty table uses DefaultCategories.
func NewKeywordClassifier(categories []Category) *KeywordClassifier {
	if len(categories) == 0 {
		categories = DefaultCategories()
	}
	return &KeywordClassifier{categories: categories}
}

// Detect returns the category with the most keywords appearing as
// substrings of the lower-cased text. Ties go to the category listed
// first. Returns CategoryGeneral when nothing matches.
func (c *KeywordClassifier) Detect(text string) string {
	lower := strings.ToLower(text)

	best, bestScore := CategoryGeneral, 0
	for _, cat := range c.categories {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		// strict > keeps the earlier category on a tie
		if score > bestScore {
			best, bestScore = cat.Name, score
		}
	}
	return best
}

// Keywords returns the keyword list of a category, or nil if unknown.
func (c *KeywordClassifier) Keywords(category string) []string {
	for _, cat := range c.categories {
		if cat.Name == category {
			return cat.Keywords
		}
	}
	return nil
}

// Categories returns the category names in priority order.
func (c *KeywordClassifier) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}
