package models

import (
	"slices"
	"strings"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// RecentGroupTTL is how long a completed group stays listed.
const RecentGroupTTL = 10 * time.Minute

var (
	sessionMu    sync.RWMutex
	liveSessions = map[string]func() types.SessionStatus{}
	recentGroups = ttlworker.NewCache[string, types.GroupSummary](RecentGroupTTL)
)

// Registry exposes the live session table to the transfer server.
type Registry struct{}

func (Registry) Add(id string, status func() types.SessionStatus) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	liveSessions[id] = status
}

func (Registry) Remove(id string) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	delete(liveSessions, id)
}

// ActiveSessionCount returns the number of connected sessions.
func ActiveSessionCount() int {
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	return len(liveSessions)
}

// ListSessions snapshots every live session, oldest first.
func ListSessions() []types.SessionStatus {
	sessionMu.RLock()
	funcs := make([]func() types.SessionStatus, 0, len(liveSessions))
	for _, f := range liveSessions {
		funcs = append(funcs, f)
	}
	sessionMu.RUnlock()

	out := make([]types.SessionStatus, 0, len(funcs))
	for _, f := range funcs {
		out = append(out, f())
	}
	slices.SortFunc(out, func(a, b types.SessionStatus) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// RecordGroup remembers a completed group for RecentGroupTTL, keyed by its id.
func RecordGroup(summary types.GroupSummary) {
	if summary.ID == "" {
		summary.ID = tool.NewGroupID()
	}
	recentGroups.Set(summary.ID, summary)
}

// RecentGroups lists the groups completed within RecentGroupTTL, newest first.
func RecentGroups() []types.GroupSummary {
	var out []types.GroupSummary
	_ = recentGroups.Range(func(_ string, v types.GroupSummary) error {
		out = append(out, v)
		return nil
	})
	slices.SortFunc(out, func(a, b types.GroupSummary) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
	return out
}
