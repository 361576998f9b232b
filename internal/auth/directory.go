package auth

import (
	"context"

	"github.com/dropDatabas3/crowdauth/internal/principal"
	"golang.org/x/sync/errgroup"
)

// UsernamesByRole lists every user in any group mapped to role. Groups are
// queried concurrently; results are merged in configuration order and
// deduplicated keeping the first occurrence. Unknown roles yield an empty list.
func (e *Engine) UsernamesByRole(ctx context.Context, role string) ([]string, error) {
	groups := e.roles.Groups(role)
	if len(groups) == 0 {
		return []string{}, nil
	}

	members := make([][]string, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			users, err := e.client.UsersInGroup(gctx, group)
			if err != nil {
				return err
			}
			members[i] = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, users := range members {
		for _, u := range users {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}

// RolesForUser maps username's current Crowd groups to local roles.
func (e *Engine) RolesForUser(ctx context.Context, username string) ([]string, error) {
	return e.rolesFor(ctx, username)
}

// UserByUsername loads a principal by name, roles included. The result has
// no session token and is meant for directory lookups, not for logging in.
func (e *Engine) UserByUsername(ctx context.Context, username string, expandAttributes bool) (*principal.Principal, error) {
	u, err := e.client.UserByName(ctx, username, expandAttributes)
	if err != nil {
		return nil, err
	}
	roles, err := e.rolesFor(ctx, u.Name)
	if err != nil {
		return nil, err
	}
	p := principal.ApplyRemoteData(principal.Principal{}, u).WithRoles(roles)
	return &p, nil
}
