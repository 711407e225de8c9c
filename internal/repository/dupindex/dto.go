package dupindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Storage layout:
//
//	<prefix>dup:hash:<contentHash>  -> first-claiming item ID (SET NX)
//	<prefix>dup:item:<itemID>       -> canonical item ID
//	<prefix>dup:group:<canonicalID> -> group record hash

func (i *Index) groupKey(canonicalID string) string {
	return i.cfg.KeyPrefix + "dup:group:" + canonicalID
}

func (i *Index) itemKey(itemID string) string {
	return i.cfg.KeyPrefix + "dup:item:" + itemID
}

// persist writes the group record and member mappings through to the store.
// Store failures are logged, not returned: the in-memory index stays
// authoritative for this instance and the hash claim already happened.
func (i *Index) persist(ctx context.Context, g *domain.DuplicateGroup) {
	members, err := json.Marshal(g.MemberIDs())
	if err != nil {
		i.logger.Warn("Failed to encode group members", zap.Error(err))
		return
	}
	scores, err := json.Marshal(g.Scores())
	if err != nil {
		i.logger.Warn("Failed to encode group scores", zap.Error(err))
		return
	}

	fields := map[string]string{
		"canonical_id": g.CanonicalID(),
		"members":      string(members),
		"method":       string(g.Method()),
		"scores":       string(scores),
	}
	if err := i.store.HSet(ctx, i.groupKey(g.CanonicalID()), fields); err != nil {
		i.logger.Warn("Failed to persist duplicate group",
			zap.String("canonical_id", g.CanonicalID()), zap.Error(err))
		return
	}

	for _, memberID := range g.MemberIDs() {
		if _, err := i.store.SetNX(ctx, i.itemKey(memberID), []byte(g.CanonicalID())); err != nil {
			i.logger.Warn("Failed to persist item mapping",
				zap.String("item_id", memberID), zap.Error(err))
		}
	}
}

// adoptLocked hydrates a group owned by another writer into this instance's
// index. Caller must hold regMu for writing.
func (i *Index) adoptLocked(ctx context.Context, winnerItemID, contentHash string) (*domain.DuplicateGroup, error) {
	canonicalID := winnerItemID
	if data, err := i.store.Get(ctx, i.itemKey(winnerItemID)); err == nil {
		canonicalID = string(data)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, fmt.Errorf("resolve canonical for %s: %w", winnerItemID, err)
	}

	if g, ok := i.groups[canonicalID]; ok {
		i.shardFor(contentHash).byHash[contentHash] = canonicalID
		return g, nil
	}

	fields, err := i.store.HGetAll(ctx, i.groupKey(canonicalID))
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", canonicalID, err)
	}

	g := groupFromFields(canonicalID, winnerItemID, fields)
	i.groups[canonicalID] = g
	for _, memberID := range g.MemberIDs() {
		i.items[memberID] = canonicalID
	}
	i.shardFor(contentHash).byHash[contentHash] = canonicalID
	return g, nil
}

// groupFromFields rebuilds a group from its stored record. A missing or
// partial record degrades to a minimal group seeded by the winner.
func groupFromFields(canonicalID, winnerItemID string, fields map[string]string) *domain.DuplicateGroup {
	var members []string
	scores := map[string]float64{}
	if raw, ok := fields["members"]; ok {
		_ = json.Unmarshal([]byte(raw), &members)
	}
	if raw, ok := fields["scores"]; ok {
		_ = json.Unmarshal([]byte(raw), &scores)
	}
	method := domain.MatchMethod(fields["method"])
	if method == "" {
		method = domain.MatchExact
	}

	if len(members) == 0 {
		g := domain.NewDuplicateGroup(canonicalID)
		if winnerItemID != canonicalID {
			g.AddMember(winnerItemID, domain.MatchExact, 1.0)
		}
		return g
	}
	return domain.ReconstructDuplicateGroup(canonicalID, members, method, scores)
}
