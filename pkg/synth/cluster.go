// Package synth implements C7, Tier 2: clustering a case's active insights
// by shared theme, temporal proximity, or entity co-occurrence, and
// generating a named Pattern per surviving cluster.
package synth

import (
	"sort"
	"strings"
	"time"

	"github.com/brentyJ/recog/pkg/models"
)

// Strategy selects a clustering approach. AUTO tries each and keeps the one
// with the highest mean silhouette score.
type Strategy string

// Clustering strategies.
const (
	StrategyTheme  Strategy = "theme"
	StrategyTime   Strategy = "time"
	StrategyEntity Strategy = "entity"
	StrategyAuto   Strategy = "auto"
)

// Cluster is a group of insights sharing some cohesion criterion.
type Cluster struct {
	Insights       []*models.Insight
	CohesionScore  float64
	DominantThemes []string
}

// unionFind is a small disjoint-set structure used by the theme and entity
// strategies to turn pairwise edges into connected components.
type unionFind struct {
	parent map[string]string
}

func newUnionFind(ids []string) *unionFind {
	parent := make(map[string]string, len(ids))
	for _, id := range ids {
		parent[id] = id
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(id string) string {
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for id != root {
		id, u.parent[id] = u.parent[id], root
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) components(byID map[string]*models.Insight) map[string][]*models.Insight {
	groups := make(map[string][]*models.Insight)
	for id := range u.parent {
		root := u.find(id)
		groups[root] = append(groups[root], byID[id])
	}
	return groups
}

// Run runs the requested strategy (or all of them, for AUTO) over
// insights and returns clusters at or above minSize, each annotated with a
// cohesion score and its dominant themes.
func Run(insights []*models.Insight, strategy Strategy, minSize int) []Cluster {
	switch strategy {
	case StrategyTheme:
		return finalize(clusterByTheme(insights), minSize)
	case StrategyTime:
		return finalize(clusterByTime(insights), minSize)
	case StrategyEntity:
		return finalize(clusterByEntity(insights), minSize)
	default:
		candidates := [][]Cluster{
			finalize(clusterByTheme(insights), minSize),
			finalize(clusterByTime(insights), minSize),
			finalize(clusterByEntity(insights), minSize),
		}
		best := candidates[0]
		bestScore := meanSilhouette(best)
		for _, c := range candidates[1:] {
			if score := meanSilhouette(c); score > bestScore {
				best, bestScore = c, score
			}
		}
		return best
	}
}

func finalize(raw [][]*models.Insight, minSize int) []Cluster {
	var out []Cluster
	for _, group := range raw {
		if len(group) < minSize {
			continue
		}
		out = append(out, Cluster{
			Insights:       group,
			CohesionScore:  cohesion(group),
			DominantThemes: dominantThemes(group),
		})
	}
	return out
}

// clusterByTheme connects insights sharing at least two themes.
func clusterByTheme(insights []*models.Insight) [][]*models.Insight {
	byID := make(map[string]*models.Insight, len(insights))
	ids := make([]string, 0, len(insights))
	for _, ins := range insights {
		byID[ins.ID] = ins
		ids = append(ids, ins.ID)
	}
	uf := newUnionFind(ids)
	for i := 0; i < len(insights); i++ {
		for j := i + 1; j < len(insights); j++ {
			if sharedCount(insights[i].Themes.Slice(), insights[j].Themes.Slice()) >= 2 {
				uf.union(insights[i].ID, insights[j].ID)
			}
		}
	}
	return groupValues(uf.components(byID))
}

// clusterByEntity connects insights whose excerpts mention at least one
// common entity display name, approximated by shared capitalised tokens
// since excerpts don't carry resolved entity ids directly.
func clusterByEntity(insights []*models.Insight) [][]*models.Insight {
	byID := make(map[string]*models.Insight, len(insights))
	ids := make([]string, 0, len(insights))
	tokens := make(map[string][]string, len(insights))
	for _, ins := range insights {
		byID[ins.ID] = ins
		ids = append(ids, ins.ID)
		tokens[ins.ID] = capitalisedTokens(strings.Join(ins.Excerpts, " "))
	}
	uf := newUnionFind(ids)
	for i := 0; i < len(insights); i++ {
		for j := i + 1; j < len(insights); j++ {
			if sharedCount(tokens[insights[i].ID], tokens[insights[j].ID]) >= 1 {
				uf.union(insights[i].ID, insights[j].ID)
			}
		}
	}
	return groupValues(uf.components(byID))
}

// clusterByTime buckets insights by earliest_source_date into 6-month
// windows, then folds any undersized bucket into the preceding bucket (the
// following one, for the first bucket). Undated insights are left out.
func clusterByTime(insights []*models.Insight) [][]*models.Insight {
	const window = 182 * 24 * time.Hour

	type bucket struct {
		start time.Time
		items []*models.Insight
	}

	var dated []*models.Insight
	for _, ins := range insights {
		if ins.EarliestSourceDate != nil {
			dated = append(dated, ins)
		}
	}
	if len(dated) == 0 {
		return nil
	}
	sort.Slice(dated, func(i, j int) bool {
		return dated[i].EarliestSourceDate.Before(*dated[j].EarliestSourceDate)
	})

	var buckets []*bucket
	for _, ins := range dated {
		t := *ins.EarliestSourceDate
		if len(buckets) == 0 || t.Sub(buckets[len(buckets)-1].start) >= window {
			buckets = append(buckets, &bucket{start: t})
		}
		last := buckets[len(buckets)-1]
		last.items = append(last.items, ins)
	}

	// merge undersized buckets into the preceding one (the next, for the first)
	const minBucket = 2
	for i := 0; i < len(buckets); {
		if len(buckets[i].items) >= minBucket || len(buckets) == 1 {
			i++
			continue
		}
		if i == 0 {
			buckets[1].items = append(buckets[i].items, buckets[1].items...)
			buckets = buckets[1:]
			continue
		}
		buckets[i-1].items = append(buckets[i-1].items, buckets[i].items...)
		buckets = append(buckets[:i], buckets[i+1:]...)
	}

	out := make([][]*models.Insight, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.items)
	}
	return out
}

func groupValues(groups map[string][]*models.Insight) [][]*models.Insight {
	out := make([][]*models.Insight, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	return out
}

func sharedCount(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
		}
	}
	return n
}

func capitalisedTokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 2 && w[0] >= 'A' && w[0] <= 'Z' {
			out = append(out, w)
		}
	}
	return out
}

// dominantThemes returns the themes appearing in more than one insight in
// the cluster, most frequent first.
func dominantThemes(group []*models.Insight) []string {
	counts := make(map[string]int)
	for _, ins := range group {
		for _, t := range ins.Themes.Slice() {
			counts[t]++
		}
	}
	var themes []string
	for t, n := range counts {
		if n > 1 {
			themes = append(themes, t)
		}
	}
	sort.Slice(themes, func(i, j int) bool {
		if counts[themes[i]] != counts[themes[j]] {
			return counts[themes[i]] > counts[themes[j]]
		}
		return themes[i] < themes[j]
	})
	return themes
}

// cohesion is the mean pairwise theme-Jaccard across the cluster, used as a
// cheap cohesion_score stand-in.
func cohesion(group []*models.Insight) float64 {
	if len(group) < 2 {
		return 1
	}
	var total float64
	var pairs int
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			a, b := group[i].Themes.Slice(), group[j].Themes.Slice()
			total += jaccard(a, b)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

func jaccard(a, b []string) float64 {
	union := sharedCount(a, b)
	total := len(a) + len(b) - union
	if total <= 0 {
		return 0
	}
	return float64(union) / float64(total)
}

// meanSilhouette approximates a silhouette score for a clustering by mean
// intra-cluster cohesion minus mean inter-cluster similarity, used only to
// pick among strategies in AUTO mode — not exposed as a precise metric.
func meanSilhouette(clusters []Cluster) float64 {
	if len(clusters) == 0 {
		return -1 // no clusters beats being picked as "best" only if nothing else clusters either
	}
	var intra float64
	for _, c := range clusters {
		intra += c.CohesionScore
	}
	intra /= float64(len(clusters))

	var inter float64
	var pairs int
	for i := 0; i < len(clusters); i++ {
		for j := i + 1; j < len(clusters); j++ {
			inter += jaccard(clusters[i].DominantThemes, clusters[j].DominantThemes)
			pairs++
		}
	}
	if pairs > 0 {
		inter /= float64(pairs)
	}
	return intra - inter
}
