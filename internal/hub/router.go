package hub

import (
	"context"
	"errors"
	"fmt"

	"Relay/internal/repo"
)

// Router maps a scope to the set of users that must receive an event. It is
// a pure mapping stage: the only I/O is the membership lookup, fetched fresh
// at resolution time because membership can change between messages.
type Router struct {
	registry *Registry
	groups   repo.GroupRepository
	tasks    repo.TaskRepository
}

func NewRouter(registry *Registry, groups repo.GroupRepository, tasks repo.TaskRepository) *Router {
	return &Router{registry: registry, groups: groups, tasks: tasks}
}

// ResolveRecipients returns the users an event in this scope fans out to.
// The sender is always included (multi-device echo). Any cross-organization
// participant fails the whole resolution closed: nil set, never a partial
// leak.
func (r *Router) ResolveRecipients(ctx context.Context, scope Scope) ([]string, error) {
	var recipients []string

	switch scope.Kind {
	case ScopeDirect:
		if scope.UserA == "" || scope.UserB == "" {
			return nil, fmt.Errorf("%w: direct scope missing a peer", ErrValidation)
		}
		recipients = []string{scope.UserA, scope.UserB}
		if scope.UserA == scope.UserB {
			recipients = recipients[:1]
		}

	case ScopeGroup:
		group, err := r.groups.Get(ctx, scope.GroupID)
		if err != nil {
			if errors.Is(err, repo.ErrGroupNotFound) {
				return nil, fmt.Errorf("%w: group %s", ErrNotFound, scope.GroupID)
			}
			return nil, fmt.Errorf("%w: membership lookup: %v", ErrUnavailable, err)
		}
		if group.OrgID != scope.OrgID {
			return nil, fmt.Errorf("%w: group belongs to another organization", ErrValidation)
		}
		recipients = append(recipients, group.Members...)

	case ScopeTask:
		task, err := r.tasks.Get(ctx, scope.TaskID)
		if err != nil {
			if errors.Is(err, repo.ErrTaskNotFound) {
				return nil, fmt.Errorf("%w: task %s", ErrNotFound, scope.TaskID)
			}
			return nil, fmt.Errorf("%w: task lookup: %v", ErrUnavailable, err)
		}
		if task.OrgID != scope.OrgID {
			return nil, fmt.Errorf("%w: task belongs to another organization", ErrValidation)
		}
		recipients = task.Audience()

	default:
		return nil, fmt.Errorf("%w: unknown scope kind %q", ErrValidation, scope.Kind)
	}

	// Org isolation across live connections: a recipient connected under a
	// different organization poisons the whole set.
	for _, userID := range recipients {
		if org, ok := r.registry.UserOrg(userID); ok && org != scope.OrgID {
			return nil, fmt.Errorf("%w: recipient %s outside scope organization", ErrValidation, userID)
		}
	}

	return recipients, nil
}

// ResolveConnections composes recipient resolution with the registry,
// returning every live connection that must receive the event.
func (r *Router) ResolveConnections(ctx context.Context, scope Scope) ([]*Client, error) {
	recipients, err := r.ResolveRecipients(ctx, scope)
	if err != nil {
		return nil, err
	}

	var out []*Client
	for _, userID := range recipients {
		out = append(out, r.registry.Connections(userID)...)
	}
	return out, nil
}
