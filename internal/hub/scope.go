package hub

import (
	"fmt"
	"sort"
	"strings"
)

// Scope kinds
const (
	ScopeDirect = "direct"
	ScopeGroup  = "group"
	ScopeTask   = "task"
)

// Key prefixes. User and entity IDs are hex ObjectIDs, so the underscore
// separator in direct keys is unambiguous.
const (
	directKeyPrefix = "dm_"
	groupKeyPrefix  = "grp_"
	taskKeyPrefix   = "task_"
)

// Scope identifies the audience of an event: a 1:1 pair, a group, or a task.
// All participants belong to OrgID; the router rejects anything else.
type Scope struct {
	Kind    string
	OrgID   string
	UserA   string // direct only, normalized so UserA <= UserB
	UserB   string
	GroupID string
	TaskID  string
}

// DirectScope builds a 1:1 scope. The pair is unordered: both orderings of
// (a, b) yield the same scope and the same key.
func DirectScope(orgID, a, b string) Scope {
	pair := []string{a, b}
	sort.Strings(pair)
	return Scope{Kind: ScopeDirect, OrgID: orgID, UserA: pair[0], UserB: pair[1]}
}

func GroupScope(orgID, groupID string) Scope {
	return Scope{Kind: ScopeGroup, OrgID: orgID, GroupID: groupID}
}

func TaskScope(orgID, taskID string) Scope {
	return Scope{Kind: ScopeTask, OrgID: orgID, TaskID: taskID}
}

// Key returns the deterministic storage key for the scope. Direct scopes use
// the sorted-pair convention so both peers derive the same conversation.
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeDirect:
		return directKeyPrefix + s.UserA + "_" + s.UserB
	case ScopeGroup:
		return groupKeyPrefix + s.GroupID
	case ScopeTask:
		return taskKeyPrefix + s.TaskID
	default:
		return ""
	}
}

// ScopeFromRawKey rebuilds a scope from a bare storage key, inferring the
// kind from the key prefix. Used by the pull-based API, where callers hold
// only the key.
func ScopeFromRawKey(orgID, key string) (Scope, error) {
	switch {
	case strings.HasPrefix(key, directKeyPrefix):
		return ScopeFromKey(ScopeDirect, orgID, key)
	case strings.HasPrefix(key, groupKeyPrefix):
		return ScopeFromKey(ScopeGroup, orgID, key)
	case strings.HasPrefix(key, taskKeyPrefix):
		return ScopeFromKey(ScopeTask, orgID, key)
	default:
		return Scope{}, fmt.Errorf("%w: unknown scope key %q", ErrValidation, key)
	}
}

// ScopeFromKey rebuilds a scope from its storage key, for events that arrive
// carrying only a message (edit, delete, react).
func ScopeFromKey(kind, orgID, key string) (Scope, error) {
	switch kind {
	case ScopeDirect:
		rest, ok := strings.CutPrefix(key, directKeyPrefix)
		if !ok {
			return Scope{}, fmt.Errorf("%w: malformed direct scope key %q", ErrValidation, key)
		}
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Scope{}, fmt.Errorf("%w: malformed direct scope key %q", ErrValidation, key)
		}
		return DirectScope(orgID, parts[0], parts[1]), nil
	case ScopeGroup:
		rest, ok := strings.CutPrefix(key, groupKeyPrefix)
		if !ok || rest == "" {
			return Scope{}, fmt.Errorf("%w: malformed group scope key %q", ErrValidation, key)
		}
		return GroupScope(orgID, rest), nil
	case ScopeTask:
		rest, ok := strings.CutPrefix(key, taskKeyPrefix)
		if !ok || rest == "" {
			return Scope{}, fmt.Errorf("%w: malformed task scope key %q", ErrValidation, key)
		}
		return TaskScope(orgID, rest), nil
	default:
		return Scope{}, fmt.Errorf("%w: unknown scope kind %q", ErrValidation, kind)
	}
}
