// Package swarm learns task patterns from observed outcomes and recommends
// agents for new tasks.
//
// A Pattern is a cluster of similar task descriptions with aggregate
// outcome statistics. PatternStore folds each observation into the first
// pattern whose description is close enough (cosine similarity of token
// counts above MergeThreshold) or creates a new one. Queries rank
// patterns by a blend of cosine similarity, token overlap and the
// pattern's success rate.
//
// AgentRecommender combines a static capability table with agents that
// handled similar patterns. CouncilRecommender assembles a fixed-size
// group of agents from static priority tables. TaskLog keeps an
// append-only record of completed tasks.
//
// Persistence is abstracted behind PatternRepository and TaskRepository.
// Every operation loads the collection, works on it in memory and saves
// it back wholesale; concurrent writers race and the last save wins.
// Similarity search is a linear scan, which is fine for hundreds of
// patterns and becomes the first thing to replace past a few thousand.
package swarm
