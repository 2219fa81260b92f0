package shared

// Resources guarded by the administration API.
const (
	ResourceUser       = "user"
	ResourceRole       = "role"
	ResourcePermission = "permission"
)

// Actions available on every core resource.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Scope is a (resource, action) pair.
type Scope struct {
	Resource string
	Action   string
}

// Name returns the conventional permission name, e.g. "role.update".
func (s Scope) Name() string {
	return PermissionName(s.Resource, s.Action)
}

// PermissionName joins resource and action using the resource.action convention.
func PermissionName(resource, action string) string {
	return resource + "." + action
}

// CoreScopes lists every permission the administration API itself checks.
func CoreScopes() []Scope {
	resources := []string{ResourceUser, ResourceRole, ResourcePermission}
	actions := []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	scopes := make([]Scope, 0, len(resources)*len(actions))
	for _, r := range resources {
		for _, a := range actions {
			scopes = append(scopes, Scope{Resource: r, Action: a})
		}
	}
	return scopes
}
