package swarm

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/swarmintel/internal/logging"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// sequentialIDs returns an ID generator yielding p1, p2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newTestStore(t *testing.T, repo PatternRepository, opts ...StoreOption) *PatternStore {
	t.Helper()
	base := []StoreOption{
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs("p")),
	}
	s, err := NewPatternStore(repo, nil, logging.NewNop(), append(base, opts...)...)
	require.NoError(t, err)
	return s
}
