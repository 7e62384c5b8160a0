package retrieval

import (
	"sort"
	"strings"

	"github.com/docs-agent/backend/internal/vector/milvus"
)

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var cur strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens[cur.String()] = true
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens[cur.String()] = true
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// queryOverlap scores how much of the query's vocabulary a chunk
// covers, the lexical leg of hybrid ranking.
func queryOverlap(query map[string]bool, content string) float64 {
	if len(query) == 0 {
		return 0
	}
	ct := tokenize(content)
	hit := 0
	for t := range query {
		if ct[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(query))
}

// relevance converts an L2 distance into a similarity in (0, 1].
func relevance(score float32) float64 {
	return 1.0 / (1.0 + float64(score))
}

// rerankMMR applies maximal marginal relevance over the candidates:
// each pick balances relevance to the query against novelty versus
// what is already selected. lambda 1.0 degrades to plain relevance
// order.
func rerankMMR(candidates []scored, lambda float64, k int) []milvus.SearchResult {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	tokens := make([]map[string]bool, len(candidates))
	for i, c := range candidates {
		tokens[i] = tokenize(c.result.Content)
	}

	picked := make([]bool, len(candidates))
	out := make([]milvus.SearchResult, 0, k)
	var pickedTokens []map[string]bool

	for len(out) < k {
		bestIdx := -1
		bestScore := 0.0
		for i, c := range candidates {
			if picked[i] {
				continue
			}
			maxSim := 0.0
			for _, pt := range pickedTokens {
				if sim := jaccard(tokens[i], pt); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.score - (1-lambda)*maxSim
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}
		picked[bestIdx] = true
		pickedTokens = append(pickedTokens, tokens[bestIdx])
		out = append(out, candidates[bestIdx].result)
	}
	return out
}

type scored struct {
	result milvus.SearchResult
	score  float64
}

func sortScored(cands []scored) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}
