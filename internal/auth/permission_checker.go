package auth

import (
	"context"

	"github.com/frahmantamala/garment-erp/internal/rbac"
)

// TablePermissionChecker answers authorization questions from an rbac.Table.
type TablePermissionChecker struct {
	table *rbac.Table
}

func NewPermissionChecker(table *rbac.Table) *TablePermissionChecker {
	if table == nil {
		table = rbac.DefaultTable()
	}
	return &TablePermissionChecker{table: table}
}

func (c *TablePermissionChecker) HasPermission(ctx context.Context, s rbac.Subject, p rbac.Permission) (bool, error) {
	return c.table.HasPermission(s, p), nil
}

func (c *TablePermissionChecker) HasAnyPermission(ctx context.Context, s rbac.Subject, perms ...rbac.Permission) (bool, error) {
	return c.table.HasAnyPermission(s, perms...), nil
}

func (c *TablePermissionChecker) IsReadOnly(ctx context.Context, s rbac.Subject) (bool, error) {
	return c.table.IsReadOnlyRole(s.SubjectRole()), nil
}
