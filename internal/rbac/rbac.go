// Package rbac holds the role → permission table and the permission predicates
// consulted by HTTP handlers and middleware.
package rbac

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSuperAdmin        Role = "SUPER_ADMIN"
	RoleAdmin             Role = "ADMIN"
	RoleManager           Role = "MANAGER"
	RoleUser              Role = "USER"
	RoleProductionManager Role = "PRODUCTION_MANAGER"
	RoleCuttingManager    Role = "CUTTING_MANAGER"
	RoleCashbookManager   Role = "CASHBOOK_MANAGER"
	RoleHRManager         Role = "HR_MANAGER"
	RoleReportViewer      Role = "REPORT_VIEWER"
)

type Permission string

const (
	CreateProduction Permission = "CREATE_PRODUCTION"
	ReadProduction   Permission = "READ_PRODUCTION"
	UpdateProduction Permission = "UPDATE_PRODUCTION"
	DeleteProduction Permission = "DELETE_PRODUCTION"

	CreateCutting Permission = "CREATE_CUTTING"
	ReadCutting   Permission = "READ_CUTTING"
	UpdateCutting Permission = "UPDATE_CUTTING"
	DeleteCutting Permission = "DELETE_CUTTING"

	CreateCashbook Permission = "CREATE_CASHBOOK"
	ReadCashbook   Permission = "READ_CASHBOOK"
	UpdateCashbook Permission = "UPDATE_CASHBOOK"
	DeleteCashbook Permission = "DELETE_CASHBOOK"

	ReadAttendance   Permission = "READ_ATTENDANCE"
	ImportAttendance Permission = "IMPORT_ATTENDANCE"

	ReadReports   Permission = "READ_REPORTS"
	ExportReports Permission = "EXPORT_REPORTS"

	ManageDepartments Permission = "MANAGE_DEPARTMENTS"
	ManageUsers       Permission = "MANAGE_USERS"
	ManagePermissions Permission = "MANAGE_PERMISSIONS"
	ManageSystem      Permission = "MANAGE_SYSTEM"
)

var allRoles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleManager,
	RoleUser,
	RoleProductionManager,
	RoleCuttingManager,
	RoleCashbookManager,
	RoleHRManager,
	RoleReportViewer,
}

var allPermissions = []Permission{
	CreateProduction, ReadProduction, UpdateProduction, DeleteProduction,
	CreateCutting, ReadCutting, UpdateCutting, DeleteCutting,
	CreateCashbook, ReadCashbook, UpdateCashbook, DeleteCashbook,
	ReadAttendance, ImportAttendance,
	ReadReports, ExportReports,
	ManageDepartments, ManageUsers, ManagePermissions, ManageSystem,
}

var permissionDescriptions = map[Permission]string{
	CreateProduction:  "Create production entries",
	ReadProduction:    "View production entries",
	UpdateProduction:  "Edit production entries",
	DeleteProduction:  "Delete production entries",
	CreateCutting:     "Create cutting entries",
	ReadCutting:       "View cutting entries",
	UpdateCutting:     "Edit cutting entries",
	DeleteCutting:     "Delete cutting entries",
	CreateCashbook:    "Create cashbook entries",
	ReadCashbook:      "View cashbook entries",
	UpdateCashbook:    "Edit cashbook entries",
	DeleteCashbook:    "Delete cashbook entries",
	ReadAttendance:    "View manpower attendance",
	ImportAttendance:  "Import manpower attendance",
	ReadReports:       "View reports",
	ExportReports:     "Export reports",
	ManageDepartments: "Manage factory departments",
	ManageUsers:       "Manage user accounts",
	ManagePermissions: "Grant and revoke permissions",
	ManageSystem:      "Manage system settings",
}

// AllRoles returns every known role in declaration order.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// AllPermissions returns every known permission flag in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

func (r Role) IsValid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

func (p Permission) IsValid() bool {
	_, ok := permissionDescriptions[p]
	return ok
}

func (p Permission) String() string { return string(p) }

func (p Permission) Description() string {
	return permissionDescriptions[p]
}

// ParseRole accepts the role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// ParsePermission accepts the permission name in any letter case.
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Subject is anything carrying a role plus explicitly granted permissions.
type Subject interface {
	SubjectRole() Role
	GrantedPermissions() []Permission
}

// PermissionSet is an unordered set of permission flags.
type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the members in catalog order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range allPermissions {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s PermissionSet) Strings() []string {
	list := s.List()
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = string(p)
	}
	return out
}
