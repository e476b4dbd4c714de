package swarm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultRoster_AgentsWith(t *testing.T) {
	r := DefaultRoster()

	assert.Equal(t, []string{"coder", "reviewer", "oracle"}, r.AgentsWith("refactor"))
	assert.Equal(t, []string{"ops"}, r.AgentsWith("deployment"))
	assert.Empty(t, r.AgentsWith("restructure"))
}

func TestLoadRoster_PartialOverride(t *testing.T) {
	path := writeRoster(t, `
agents:
  - name: " alice "
    capabilities: [Fix, " bug "]
  - name: bob
    capabilities: [review]
council:
  fallback: [alice]
  sizes:
    low: 1
`)

	r, err := LoadRoster(path)
	require.NoError(t, err)

	require.Len(t, r.Agents, 2)
	assert.Equal(t, "alice", r.Agents[0].Name)
	assert.Equal(t, []string{"fix", "bug"}, r.Agents[0].Capabilities)
	assert.Equal(t, []string{"alice"}, r.AgentsWith("fix"))

	// sections not in the file keep their defaults
	assert.Equal(t, DefaultCategories(), r.Categories)
	assert.Equal(t, DefaultCouncilTables().Generalists, r.Council.Generalists)
	assert.Equal(t, 5, r.Council.DefaultSize)
	assert.Equal(t, []string{"alice"}, r.Council.Fallback)
	assert.Equal(t, map[Complexity]int{ComplexityLow: 1}, r.Council.Sizes)
}

func TestLoadRoster_CustomCategoriesKeepOrder(t *testing.T) {
	path := writeRoster(t, `
categories:
  - name: Security
    keywords: [CVE, vuln]
  - name: bugfix
    keywords: [vuln, fix]
`)

	r, err := LoadRoster(path)
	require.NoError(t, err)

	c := NewKeywordClassifier(r.Categories)
	assert.Equal(t, []string{"security", "bugfix"}, c.Categories())
	assert.Equal(t, "security", c.Detect("patch vuln"))
	assert.Equal(t, "bugfix", c.Detect("fix vuln"))
}

func TestLoadRoster_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "duplicate agent",
			content: "agents:\n  - name: a\n  - name: a\n",
			wantErr: `duplicate agent "a"`,
		},
		{
			name:    "unnamed agent",
			content: "agents:\n  - capabilities: [x]\n",
			wantErr: "agents[0].name is required",
		},
		{
			name:    "reserved category",
			content: "categories:\n  - name: general\n    keywords: [x]\n",
			wantErr: "reserved",
		},
		{
			name:    "category without keywords",
			content: "categories:\n  - name: empty\n",
			wantErr: "has no keywords",
		},
		{
			name:    "duplicate category",
			content: "categories:\n  - name: a\n    keywords: [x]\n  - name: A\n    keywords: [y]\n",
			wantErr: `duplicate category "a"`,
		},
		{
			name:    "zero council size",
			content: "council:\n  sizes:\n    high: 0\n",
			wantErr: "council.sizes.high must be positive",
		},
		{
			name:    "unknown complexity",
			content: "council:\n  sizes:\n    huge: 9\n",
			wantErr: "complexity must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRoster(writeRoster(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRoster)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRoster_Errors(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadRoster(writeRoster(t, "agents: [unterminated\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster: parse")
}
