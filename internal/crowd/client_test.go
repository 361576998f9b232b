package crowd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyTransport fails the first `fails` round trips at the transport level.
type flakyTransport struct {
	mu    sync.Mutex
	fails int
	calls int
	next  http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()

	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return f.next.RoundTrip(req)
}

func (f *flakyTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, h http.HandlerFunc, fails, retries int) (*Client, *flakyTransport) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tr := &flakyTransport{fails: fails, next: http.DefaultTransport}
	c := New(Config{
		ApplicationName:     "app",
		ApplicationPassword: "secret",
		ServiceURL:          srv.URL,
		ConnectionRetries:   retries,
		HTTPClient:          &http.Client{Transport: tr},
	})
	return c, tr
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_BaseURL(t *testing.T) {
	c := New(Config{ServiceURL: "https://crowd.example.com/"})
	assert.Equal(t, "https://crowd.example.com/crowd/rest/usermanagement/1/", c.BaseURL())

	c = New(Config{ServiceURL: "https://crowd.example.com", ServiceURI: "rest/v2"})
	assert.Equal(t, "https://crowd.example.com/rest/v2/", c.BaseURL())
}

func TestCreateSession_RequestShape(t *testing.T) {
	var (
		gotAuth, gotCT, gotPath, gotQuery string
		gotBody                           map[string]any
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusCreated, `{"token":"tok-123456789","user":{"name":"john"}}`)
	}, 0, 2)

	tok, err := c.CreateSession(context.Background(), "john", "pw", "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "tok-123456789", tok)

	assert.Equal(t, "Basic YXBwOnNlY3JldA==", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "/crowd/rest/usermanagement/1/session", gotPath)
	assert.Empty(t, gotQuery)
	assert.Equal(t, "john", gotBody["username"])
	assert.Equal(t, "pw", gotBody["password"])

	vf := gotBody["validation-factors"].(map[string]any)["validationFactors"].([]any)
	require.Len(t, vf, 1)
	assert.Equal(t, map[string]any{"name": "remote_address", "value": "10.0.0.7"}, vf[0])
}

func TestCreateSessionWithoutPassword(t *testing.T) {
	var gotQuery string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusCreated, `{"token":"trusted-token"}`)
	}, 0, 0)

	tok, err := c.CreateSessionWithoutPassword(context.Background(), "john", "::1")
	require.NoError(t, err)
	assert.Equal(t, "trusted-token", tok)
	assert.Equal(t, "validate-password=false", gotQuery)
	_, hasPassword := gotBody["password"]
	assert.False(t, hasPassword)
}

func TestCreateSession_RequiresRemoteAddress(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"token":"x"}`)
	}, 0, 2)

	_, err := c.CreateSession(context.Background(), "john", "pw", "  ")
	require.ErrorIs(t, err, ErrMissingRemoteAddress)
	assert.Zero(t, tr.Calls())
}

func TestCreateSession_MissingToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"user":{"name":"john"}}`)
	}, 0, 0)

	_, err := c.CreateSession(context.Background(), "john", "pw", "10.0.0.1")
	require.ErrorIs(t, err, ErrUnexpectedServerResponse)
}

func TestRetry_RecoversAfterTransportFailures(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"groups":[{"name":"jira-users"}]}`)
	}, 2, 2)

	groups, err := c.GroupsForUser(context.Background(), "john")
	require.NoError(t, err)
	assert.Equal(t, []string{"jira-users"}, groups)
	assert.Equal(t, 3, tr.Calls())
}

func TestRetry_ExhaustedIsServerUnavailable(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"groups":[]}`)
	}, 3, 2)

	_, err := c.GroupsForUser(context.Background(), "john")
	require.ErrorIs(t, err, ErrServerUnavailable)
	assert.Equal(t, 3, tr.Calls())

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "get_user_groups", ce.Action)
	assert.NotNil(t, ce.Err)
}

func TestRetry_ZeroRetriesSingleAttempt(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"groups":[]}`)
	}, 1, 0)

	_, err := c.GroupsForUser(context.Background(), "john")
	require.ErrorIs(t, err, ErrServerUnavailable)
	assert.Equal(t, 1, tr.Calls())
}

func TestRetry_CancelledContextStops(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"groups":[]}`)
	}, 0, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GroupsForUser(ctx, "john")
	require.ErrorIs(t, err, ErrServerUnavailable)
	require.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, tr.Calls(), 1)
}

func TestUnauthorized_IsMisconfiguredAndNotRetried(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"reason":"INVALID_USER_AUTHENTICATION","message":"app"}`)
	}, 0, 2)

	_, err := c.UserByToken(context.Background(), "tok")
	require.ErrorIs(t, err, ErrAuthClientMisconfigured)
	assert.Equal(t, 1, tr.Calls())
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		call   func(*Client) error
		want   Kind
	}{
		{
			name: "bad password", status: http.StatusBadRequest,
			body: `{"reason":"INVALID_USER_AUTHENTICATION","message":"Failed to authenticate"}`,
			call: func(c *Client) error {
				_, err := c.CreateSession(context.Background(), "john", "bad", "1.2.3.4")
				return err
			},
			want: KindInvalidCredentials,
		},
		{
			name: "expired credential", status: http.StatusBadRequest,
			body: `{"reason":"EXPIRED_CREDENTIAL"}`,
			call: func(c *Client) error {
				_, err := c.CreateSession(context.Background(), "john", "old", "1.2.3.4")
				return err
			},
			want: KindInvalidCredentials,
		},
		{
			name: "application denied", status: http.StatusForbidden,
			body: `{"reason":"APPLICATION_ACCESS_DENIED"}`,
			call: func(c *Client) error {
				_, err := c.CreateSession(context.Background(), "john", "pw", "1.2.3.4")
				return err
			},
			want: KindAppAccessDenied,
		},
		{
			name: "inactive", status: http.StatusBadRequest,
			body: `{"reason":"INACTIVE_ACCOUNT"}`,
			call: func(c *Client) error {
				_, err := c.CreateSession(context.Background(), "john", "pw", "1.2.3.4")
				return err
			},
			want: KindInactiveAccount,
		},
		{
			name: "session 404 without reason", status: http.StatusNotFound,
			body: ``,
			call: func(c *Client) error {
				_, err := c.UserByToken(context.Background(), "gone")
				return err
			},
			want: KindTokenInvalid,
		},
		{
			name: "session 404 with reason", status: http.StatusNotFound,
			body: `{"reason":"INVALID_SSO_TOKEN","message":"Token does not exist"}`,
			call: func(c *Client) error {
				_, err := c.UserByToken(context.Background(), "gone")
				return err
			},
			want: KindTokenInvalid,
		},
		{
			name: "user 404", status: http.StatusNotFound,
			body: `{"reason":"USER_NOT_FOUND"}`,
			call: func(c *Client) error {
				_, err := c.UserByName(context.Background(), "ghost", false)
				return err
			},
			want: KindEntityNotFound,
		},
		{
			name: "group 404 without reason", status: http.StatusNotFound,
			body: `not json`,
			call: func(c *Client) error {
				_, err := c.UsersInGroup(context.Background(), "ghosts")
				return err
			},
			want: KindEntityNotFound,
		},
		{
			name: "unknown reason", status: http.StatusBadRequest,
			body: `{"reason":"OPERATION_FAILED"}`,
			call: func(c *Client) error {
				_, err := c.GroupsForUser(context.Background(), "john")
				return err
			},
			want: KindUnexpectedServerResponse,
		},
		{
			name: "server error", status: http.StatusInternalServerError,
			body: `<html>boom</html>`,
			call: func(c *Client) error {
				_, err := c.UserByToken(context.Background(), "tok")
				return err
			},
			want: KindUnexpectedServerResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, 0, 2)

			err := tt.call(c)
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err), err.Error())
			assert.Equal(t, 1, tr.Calls(), "http errors are never retried")
		})
	}
}

func TestUnexpected_CarriesPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"reason":"SOMETHING_NEW"}`)
	}, 0, 0)

	_, err := c.UsersInGroup(context.Background(), "g")
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindUnexpectedServerResponse, ce.Kind)
	assert.Equal(t, "get_group_users", ce.Action)
	assert.Equal(t, http.StatusBadGateway, ce.Status)
	assert.JSONEq(t, `{"reason":"SOMETHING_NEW"}`, string(ce.Payload))
}

func TestSuccessWithInvalidBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html></html>`,
		"json array":    `[{"name":"x"}]`,
		"missing names": `{"groups":[{"name":"a"},{"id":2}]}`,
		"missing list":  `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			}, 0, 0)
			_, err := c.GroupsForUser(context.Background(), "john")
			require.ErrorIs(t, err, ErrUnexpectedServerResponse)
		})
	}
}

func TestUserByToken_Parses(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, `{
			"token":"abc/def",
			"user":{
				"name":"john",
				"first-name":"John",
				"last-name":"Doe",
				"display-name":"John Doe",
				"email":"john@example.com",
				"active":true,
				"attributes":{"attributes":[
					{"name":"department","values":["eng","ops"]},
					{"name":"broken"}
				]}
			}
		}`)
	}, 0, 0)

	u, err := c.UserByToken(context.Background(), "abc/def")
	require.NoError(t, err)
	assert.Equal(t, "/crowd/rest/usermanagement/1/session/abc%2Fdef", gotPath)
	assert.Equal(t, &User{
		Name:        "john",
		FirstName:   "John",
		LastName:    "Doe",
		DisplayName: "John Doe",
		Email:       "john@example.com",
		Active:      true,
		Attributes:  map[string][]string{"department": {"eng", "ops"}},
		Token:       "abc/def",
	}, u)
}

func TestUserByToken_MissingUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"token":"abc"}`)
	}, 0, 0)

	_, err := c.UserByToken(context.Background(), "abc")
	require.ErrorIs(t, err, ErrUnexpectedServerResponse)
}

func TestUserByToken_EmptyToken(t *testing.T) {
	c, tr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, 0, 0)
	_, err := c.UserByToken(context.Background(), "")
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.Zero(t, tr.Calls())
}

func TestUserByName_Query(t *testing.T) {
	var gotQuery map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, `{"name":"jo hn","active":false}`)
	}, 0, 0)

	u, err := c.UserByName(context.Background(), "jo hn", true)
	require.NoError(t, err)
	assert.Equal(t, "jo hn", u.Name)
	assert.False(t, u.Active)
	assert.Equal(t, []string{"jo hn"}, gotQuery["username"])
	assert.Equal(t, []string{"attributes"}, gotQuery["expand"])

	_, err = c.UserByName(context.Background(), "jo hn", false)
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "expand")
}

func TestUsersInGroup(t *testing.T) {
	var gotGroup string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotGroup = r.URL.Query().Get("groupname")
		writeJSON(w, http.StatusOK, `{"users":[{"name":"admin"},{"name":"mike"}]}`)
	}, 0, 0)

	users, err := c.UsersInGroup(context.Background(), "testers & co")
	require.NoError(t, err)
	assert.Equal(t, "testers & co", gotGroup)
	assert.Equal(t, []string{"admin", "mike"}, users)
}

func TestKindForReason(t *testing.T) {
	k, ok := KindForReason("application_access_denied")
	assert.True(t, ok)
	assert.Equal(t, KindAppAccessDenied, k)

	_, ok = KindForReason("NOPE")
	assert.False(t, ok)
}
