package exchange

import (
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/srediag/shmx/pkg/shm"
)

// Pending is an exported segment not yet consumed.
type Pending struct {
	Name  string
	Path  string
	Since time.Time
}

type pendingEntry struct {
	name string
	mgr  *shm.Manager
	at   time.Time
}

// Tracker remembers the segments this process exported, keyed by path, until
// a consumer in this process destroys them or they are found to be gone. It
// cannot see consumers in other processes, so Pending re-checks presence.
type Tracker struct {
	entries cmap.ConcurrentMap[string, pendingEntry]
	now     func() time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: cmap.New[pendingEntry](), now: time.Now}
}

// Published records that name was exported through mgr.
func (t *Tracker) Published(mgr *shm.Manager, name string) {
	path, err := mgr.Path(name)
	if err != nil {
		return
	}
	t.entries.Set(path, pendingEntry{name: name, mgr: mgr, at: t.now()})
}

// Consumed forgets name.
func (t *Tracker) Consumed(mgr *shm.Manager, name string) {
	path, err := mgr.Path(name)
	if err != nil {
		return
	}
	t.entries.Remove(path)
}

// Len is the number of recorded segments, including ones another process may
// already have consumed.
func (t *Tracker) Len() int {
	return t.entries.Count()
}

// Pending returns the segments exported at least olderThan ago that are still
// present, oldest first. Entries whose segment is gone are dropped.
func (t *Tracker) Pending(olderThan time.Duration) []Pending {
	cutoff := t.now().Add(-olderThan)
	var out []Pending
	for item := range t.entries.IterBuffered() {
		e := item.Val
		ok, err := e.mgr.Exists(e.name)
		if err == nil && !ok {
			t.entries.RemoveCb(item.Key, func(_ string, cur pendingEntry, exists bool) bool {
				return exists && cur.at.Equal(e.at)
			})
			continue
		}
		if e.at.After(cutoff) {
			continue
		}
		out = append(out, Pending{Name: e.name, Path: item.Key, Since: e.at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].Path < out[j].Path
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out
}
