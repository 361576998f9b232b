// Package directory contiene los DTOs de /v1/directory.
package directory

// RoleMembersResponse lista los usuarios con un rol local.
type RoleMembersResponse struct {
	Role  string   `json:"role"`
	Users []string `json:"users"`
}
