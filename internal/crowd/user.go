package crowd

import "github.com/tidwall/gjson"

// User is the raw principal data returned by Crowd. Optional string fields
// are empty when Crowd omitted them.
type User struct {
	Name        string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	Active      bool
	// Attributes is only populated when requested with expand=attributes or
	// when the session resource embeds them.
	Attributes map[string][]string
	// Token is set when the user was resolved from a session.
	Token string
}

func parseUser(res gjson.Result) *User {
	u := &User{
		Name:        res.Get("name").String(),
		FirstName:   res.Get("first-name").String(),
		LastName:    res.Get("last-name").String(),
		DisplayName: res.Get("display-name").String(),
		Email:       res.Get("email").String(),
		Active:      res.Get("active").Bool(),
	}

	res.Get("attributes.attributes").ForEach(func(_, attr gjson.Result) bool {
		name, values := attr.Get("name"), attr.Get("values")
		if !name.Exists() || !values.Exists() {
			return true
		}
		if u.Attributes == nil {
			u.Attributes = make(map[string][]string)
		}
		vals := make([]string, 0, len(values.Array()))
		for _, v := range values.Array() {
			vals = append(vals, v.String())
		}
		u.Attributes[name.String()] = vals
		return true
	})
	return u
}

// names extracts list[].name, failing if any element lacks it.
func names(body []byte, list string) ([]string, bool) {
	arr := gjson.GetBytes(body, list)
	if !arr.Exists() || !arr.IsArray() {
		return nil, false
	}
	out := make([]string, 0, len(arr.Array()))
	for _, item := range arr.Array() {
		n := item.Get("name")
		if !n.Exists() {
			return nil, false
		}
		out = append(out, n.String())
	}
	return out, true
}
