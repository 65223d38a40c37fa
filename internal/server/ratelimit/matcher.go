package ratelimit

import "strings"

// MatchTier returns the tier covering method and path, or nil. An exact
// pattern beats a subtree; among subtrees the longest wins.
func MatchTier(method, path string, tiers []Tier) *Tier {
	var best *Tier
	bestLen := -1
	for i := range tiers {
		m, p, ok := strings.Cut(tiers[i].Pattern, " ")
		if !ok || m != method {
			continue
		}
		if p == path {
			return &tiers[i]
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) && len(p) > bestLen {
			best, bestLen = &tiers[i], len(p)
		}
	}
	return best
}
