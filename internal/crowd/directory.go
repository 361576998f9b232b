package crowd

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// UserByName fetches a user by username, optionally with its attributes.
func (c *Client) UserByName(ctx context.Context, username string, expandAttributes bool) (*User, error) {
	q := url.Values{}
	q.Set("username", username)
	if expandAttributes {
		q.Set("expand", "attributes")
	}
	cl := call{
		action:   "get_user",
		method:   http.MethodGet,
		path:     "user?" + q.Encode(),
		success:  http.StatusOK,
		notFound: KindEntityNotFound,
	}

	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(resp)
	if !res.Get("name").Exists() {
		return nil, c.fail(unexpected(cl.action, "no user data in crowd response", cl.success, resp))
	}
	return parseUser(res), nil
}

// GroupsForUser returns the names of the groups username belongs to,
// directly or through nesting.
func (c *Client) GroupsForUser(ctx context.Context, username string) ([]string, error) {
	q := url.Values{}
	q.Set("username", username)
	cl := call{
		action:   "get_user_groups",
		method:   http.MethodGet,
		path:     "user/group/nested?" + q.Encode(),
		success:  http.StatusOK,
		notFound: KindEntityNotFound,
	}

	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	groups, ok := names(resp, "groups")
	if !ok {
		return nil, c.fail(unexpected(cl.action, "groups[].name missing in crowd response", cl.success, resp))
	}
	return groups, nil
}

// UsersInGroup returns the usernames of the direct and nested members of group.
func (c *Client) UsersInGroup(ctx context.Context, group string) ([]string, error) {
	q := url.Values{}
	q.Set("groupname", group)
	cl := call{
		action:   "get_group_users",
		method:   http.MethodGet,
		path:     "group/user/nested?" + q.Encode(),
		success:  http.StatusOK,
		notFound: KindEntityNotFound,
	}

	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	users, ok := names(resp, "users")
	if !ok {
		return nil, c.fail(unexpected(cl.action, "users[].name missing in crowd response", cl.success, resp))
	}
	return users, nil
}
