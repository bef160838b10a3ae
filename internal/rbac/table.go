package rbac

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	PageAdminUsers       = "/admin/users"
	PageAdminPermissions = "/admin/permissions"
	PageProduction       = "/production"
	PageCutting          = "/cutting"
	PageCashbook         = "/cashbook"
	PageManpower         = "/manpower"
	PageReports          = "/reports"
)

// Policy is the serialisable form of a Table.
type Policy struct {
	Roles         map[Role][]Permission `yaml:"roles"`
	Pages         map[string][]Role     `yaml:"pages"`
	ReadOnlyRoles []Role                `yaml:"read_only_roles"`
}

// Table is an immutable role → permission mapping plus page access rules.
// A *Table is safe for concurrent use.
type Table struct {
	roles    map[Role]PermissionSet
	ordered  map[Role][]Permission
	pages    map[string]map[Role]struct{}
	readOnly map[Role]struct{}
}

func NewTable(p Policy) (*Table, error) {
	t := &Table{
		roles:    make(map[Role]PermissionSet, len(p.Roles)),
		ordered:  make(map[Role][]Permission, len(p.Roles)),
		pages:    make(map[string]map[Role]struct{}, len(p.Pages)),
		readOnly: make(map[Role]struct{}, len(p.ReadOnlyRoles)),
	}

	var errs []error
	for role, perms := range p.Roles {
		if !role.IsValid() {
			errs = append(errs, fmt.Errorf("roles: unknown role %q", role))
			continue
		}
		set := make(PermissionSet, len(perms))
		ordered := make([]Permission, 0, len(perms))
		for _, perm := range perms {
			if !perm.IsValid() {
				errs = append(errs, fmt.Errorf("roles.%s: unknown permission %q", role, perm))
				continue
			}
			if set.Has(perm) {
				continue
			}
			set[perm] = struct{}{}
			ordered = append(ordered, perm)
		}
		t.roles[role] = set
		t.ordered[role] = ordered
	}

	for page, roles := range p.Pages {
		if page == "" {
			errs = append(errs, errors.New("pages: empty page path"))
			continue
		}
		allowed := make(map[Role]struct{}, len(roles))
		for _, role := range roles {
			if !role.IsValid() {
				errs = append(errs, fmt.Errorf("pages.%s: unknown role %q", page, role))
				continue
			}
			allowed[role] = struct{}{}
		}
		t.pages[page] = allowed
	}

	for _, role := range p.ReadOnlyRoles {
		if !role.IsValid() {
			errs = append(errs, fmt.Errorf("read_only_roles: unknown role %q", role))
			continue
		}
		t.readOnly[role] = struct{}{}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// LoadTable reads a YAML policy file and builds a Table from it.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rbac policy: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse rbac policy: %w", err)
	}
	t, err := NewTable(p)
	if err != nil {
		return nil, fmt.Errorf("invalid rbac policy: %w", err)
	}
	return t, nil
}

// Policy returns a copy of the table in its serialisable form.
func (t *Table) Policy() Policy {
	p := Policy{
		Roles: make(map[Role][]Permission, len(t.ordered)),
		Pages: make(map[string][]Role, len(t.pages)),
	}
	for role, perms := range t.ordered {
		p.Roles[role] = append([]Permission(nil), perms...)
	}
	for page, allowed := range t.pages {
		p.Pages[page] = sortedRoles(allowed)
	}
	p.ReadOnlyRoles = sortedRoles(t.readOnly)
	return p
}

// RolePermissions returns the role's default permissions in table order.
// SUPER_ADMIN yields the whole catalog.
func (t *Table) RolePermissions(role Role) []Permission {
	if role == RoleSuperAdmin {
		return AllPermissions()
	}
	return append([]Permission(nil), t.ordered[role]...)
}

// Effective returns role defaults ∪ explicit grants.
func (t *Table) Effective(role Role, grants []Permission) PermissionSet {
	if role == RoleSuperAdmin {
		return NewPermissionSet(allPermissions...)
	}
	set := make(PermissionSet, len(t.roles[role])+len(grants))
	for p := range t.roles[role] {
		set[p] = struct{}{}
	}
	for _, p := range grants {
		if p.IsValid() {
			set[p] = struct{}{}
		}
	}
	return set
}

func (t *Table) HasPermission(s Subject, p Permission) bool {
	if s == nil {
		return false
	}
	role := s.SubjectRole()
	if role == RoleSuperAdmin {
		return true
	}
	for _, granted := range s.GrantedPermissions() {
		if granted == p {
			return true
		}
	}
	return t.roles[role].Has(p)
}

func (t *Table) HasAnyPermission(s Subject, perms ...Permission) bool {
	for _, p := range perms {
		if t.HasPermission(s, p) {
			return true
		}
	}
	return false
}

// CanAccessPage allows pages missing from the table.
func (t *Table) CanAccessPage(s Subject, page string) bool {
	allowed, ok := t.pages[page]
	if !ok {
		return true
	}
	if s == nil {
		return false
	}
	if s.SubjectRole() == RoleSuperAdmin {
		return true
	}
	_, ok = allowed[s.SubjectRole()]
	return ok
}

// AccessiblePages lists the configured pages the subject may open, sorted.
func (t *Table) AccessiblePages(s Subject) []string {
	var pages []string
	for page := range t.pages {
		if t.CanAccessPage(s, page) {
			pages = append(pages, page)
		}
	}
	sort.Strings(pages)
	return pages
}

func (t *Table) IsReadOnlyRole(role Role) bool {
	_, ok := t.readOnly[role]
	return ok
}

func sortedRoles(set map[Role]struct{}) []Role {
	out := make([]Role, 0, len(set))
	for _, role := range allRoles {
		if _, ok := set[role]; ok {
			out = append(out, role)
		}
	}
	return out
}
