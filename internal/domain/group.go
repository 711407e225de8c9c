package domain

// MatchMethod tells how a duplicate group was matched.
type MatchMethod string

// Match methods.
const (
	MatchExact    MatchMethod = "exact"
	MatchSemantic MatchMethod = "semantic"
)

// DuplicateGroup is the append-only set of item IDs considered equivalent.
// The canonical item is the first-seen member; membership grows by transitive
// closure (a new member only needs to match one existing member).
type DuplicateGroup struct {
	canonicalID string
	memberIDs   []string
	method      MatchMethod
	scores      map[string]float64
}

// NewDuplicateGroup seeds a group with its canonical item.
func NewDuplicateGroup(canonicalID string) *DuplicateGroup {
	return &DuplicateGroup{
		canonicalID: canonicalID,
		memberIDs:   []string{canonicalID},
		method:      MatchExact,
		scores:      map[string]float64{canonicalID: 1.0},
	}
}

// ReconstructDuplicateGroup creates a group without validation (storage hydration).
func ReconstructDuplicateGroup(
	canonicalID string, memberIDs []string, method MatchMethod, scores map[string]float64,
) *DuplicateGroup {
	return &DuplicateGroup{canonicalID: canonicalID, memberIDs: memberIDs, method: method, scores: scores}
}

// AddMember appends a member with its similarity score. Idempotent.
func (g *DuplicateGroup) AddMember(itemID string, method MatchMethod, score float64) {
	if _, ok := g.scores[itemID]; ok {
		return
	}
	g.memberIDs = append(g.memberIDs, itemID)
	g.scores[itemID] = score
	// Semantic membership is sticky: once any member joined semantically
	// the group is no longer a pure exact-hash group.
	if method == MatchSemantic {
		g.method = MatchSemantic
	}
}

// Contains reports whether itemID is a member.
func (g *DuplicateGroup) Contains(itemID string) bool {
	_, ok := g.scores[itemID]
	return ok
}

// CanonicalID returns the first-seen representative's ID.
func (g *DuplicateGroup) CanonicalID() string { return g.canonicalID }

// MemberIDs returns members in insertion order (copy).
func (g *DuplicateGroup) MemberIDs() []string {
	out := make([]string, len(g.memberIDs))
	copy(out, g.memberIDs)
	return out
}

// Method returns how the group was matched.
func (g *DuplicateGroup) Method() MatchMethod { return g.method }

// Score returns the similarity score recorded for a member (1.0 for exact).
func (g *DuplicateGroup) Score(itemID string) float64 { return g.scores[itemID] }

// Size returns the member count.
func (g *DuplicateGroup) Size() int { return len(g.memberIDs) }

// Scores returns a copy of the memberID -> similarity map.
func (g *DuplicateGroup) Scores() map[string]float64 {
	out := make(map[string]float64, len(g.scores))
	for k, v := range g.scores {
		out[k] = v
	}
	return out
}
