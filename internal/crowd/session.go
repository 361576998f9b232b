package crowd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type validationFactor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type sessionRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password,omitempty"`
	ValidationFactors struct {
		ValidationFactors []validationFactor `json:"validationFactors"`
	} `json:"validation-factors"`
}

// CreateSession authenticates username/password and returns a new SSO token.
// remoteAddr is sent as the "remote_address" validation factor.
func (c *Client) CreateSession(ctx context.Context, username, password, remoteAddr string) (string, error) {
	return c.createSession(ctx, call{
		action:  "create_session",
		method:  http.MethodPost,
		path:    "session",
		success: http.StatusCreated,
	}, username, password, remoteAddr)
}

// CreateSessionWithoutPassword issues a token for username without checking
// a password. Only for identities already proven by a signed remember-me
// cookie.
func (c *Client) CreateSessionWithoutPassword(ctx context.Context, username, remoteAddr string) (string, error) {
	return c.createSession(ctx, call{
		action:  "create_session_trusted",
		method:  http.MethodPost,
		path:    "session?validate-password=false",
		success: http.StatusCreated,
	}, username, "", remoteAddr)
}

func (c *Client) createSession(ctx context.Context, cl call, username, password, remoteAddr string) (string, error) {
	if strings.TrimSpace(remoteAddr) == "" {
		return "", ErrMissingRemoteAddress
	}

	var req sessionRequest
	req.Username = username
	req.Password = password
	req.ValidationFactors.ValidationFactors = []validationFactor{
		{Name: "remote_address", Value: remoteAddr},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	cl.body = body

	resp, err := c.do(ctx, cl)
	if err != nil {
		return "", err
	}

	token := gjson.GetBytes(resp, "token")
	if !token.Exists() || token.String() == "" {
		return "", c.fail(unexpected(cl.action, "no token field in crowd response", cl.success, resp))
	}
	return token.String(), nil
}

// UserByToken resolves the user owning an SSO token. An unknown or expired
// token yields KindTokenInvalid.
func (c *Client) UserByToken(ctx context.Context, token string) (*User, error) {
	cl := call{
		action:   "get_session",
		method:   http.MethodGet,
		path:     "session/" + url.PathEscape(token),
		success:  http.StatusOK,
		notFound: KindTokenInvalid,
	}
	if strings.TrimSpace(token) == "" {
		return nil, &Error{Kind: KindTokenInvalid, Action: cl.action, Message: "empty token"}
	}

	resp, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(resp)
	user := res.Get("user")
	if !user.Get("name").Exists() {
		return nil, c.fail(unexpected(cl.action, "no user data in crowd response", cl.success, resp))
	}

	u := parseUser(user)
	u.Token = res.Get("token").String()
	return u, nil
}
