// Package auth decides who may use admin commands. Two strategies exist:
// RosterGate asks the chat platform for the live administrator roster,
// StaticGate keeps a configured ID list. The app composes them so a roster
// outage degrades to the static list instead of locking everyone out.
package auth

import (
	"context"
	"sort"
	"sync"

	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

// Gate reports whether a user may perform admin actions.
type Gate interface {
	IsAdmin(ctx context.Context, userID int64) bool
}

// Membership is a pure ID-set lookup. The roster error path goes through
// this instead of Gate so side effects like the StaticGate bootstrap
// enrollment can never be triggered by a transport failure.
type Membership interface {
	Contains(userID int64) bool
}

// RosterGate authorizes against the group's current administrator roster,
// fetched per check so role changes take effect immediately. A roster fetch
// failure consults the fallback membership when set and otherwise denies;
// it never grants beyond what the fallback already lists.
type RosterGate struct {
	ad       transport.Adapter
	group    transport.ChatTarget
	fallback Membership
	log      logx.Logger
}

func NewRosterGate(ad transport.Adapter, groupID int64, fallback Membership, log logx.Logger) *RosterGate {
	return &RosterGate{ad: ad, group: transport.ChatTarget{ChatID: groupID}, fallback: fallback, log: log}
}

func (g *RosterGate) IsAdmin(ctx context.Context, userID int64) bool {
	members, err := g.ad.ChatAdmins(ctx, g.group)
	if err != nil {
		// Keep the user-visible record terse; full detail only at debug.
		g.log.Warn("admin roster unavailable", logx.Int64("user_id", userID))
		g.log.Debug("admin roster fetch failed", logx.Int64("user_id", userID), logx.Err(err))
		if g.fallback != nil {
			return g.fallback.Contains(userID)
		}
		return false
	}
	for _, m := range members {
		if m.UserID != userID {
			continue
		}
		if m.Role == transport.RoleOwner || m.Role == transport.RoleAdmin {
			return true
		}
	}
	return false
}

// StaticGate authorizes against a fixed ID list. When the list is empty,
// the first user who attempts an admin action is enrolled and allowed; this
// is the bootstrap path for a fresh deployment with no configuration.
type StaticGate struct {
	mu  sync.Mutex
	ids map[int64]struct{}
	log logx.Logger
}

func NewStaticGate(seed []int64, log logx.Logger) *StaticGate {
	g := &StaticGate{ids: make(map[int64]struct{}, len(seed)), log: log}
	for _, id := range seed {
		g.ids[id] = struct{}{}
	}
	return g
}

func (g *StaticGate) IsAdmin(_ context.Context, userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		g.ids[userID] = struct{}{}
		g.log.Warn("no admins configured, enrolling first claimant", logx.Int64("user_id", userID))
		return true
	}
	_, ok := g.ids[userID]
	return ok
}

// Contains reports membership without the bootstrap enrollment side effect.
func (g *StaticGate) Contains(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.ids[userID]
	return ok
}

// Add enrolls an admin. It reports false when the ID was already present.
func (g *StaticGate) Add(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.ids[userID]; ok {
		return false
	}
	g.ids[userID] = struct{}{}
	return true
}

// List returns the enrolled IDs in ascending order.
func (g *StaticGate) List() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int64, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Replace swaps the enrolled set, used when the config file is reloaded.
func (g *StaticGate) Replace(ids []int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ids = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		g.ids[id] = struct{}{}
	}
}
