package rbac

// DefaultPolicy is the factory's built-in role table.
func DefaultPolicy() Policy {
	return Policy{
		Roles: map[Role][]Permission{
			RoleSuperAdmin: AllPermissions(),
			RoleAdmin: {
				CreateProduction, ReadProduction, UpdateProduction, DeleteProduction,
				CreateCutting, ReadCutting, UpdateCutting, DeleteCutting,
				CreateCashbook, ReadCashbook, UpdateCashbook, DeleteCashbook,
				ReadAttendance, ImportAttendance,
				ReadReports, ExportReports,
				ManageDepartments, ManageUsers, ManagePermissions,
			},
			RoleManager: {
				CreateProduction, ReadProduction, UpdateProduction, DeleteProduction,
				ReadCutting,
				CreateCashbook, ReadCashbook, UpdateCashbook, DeleteCashbook,
				ReadAttendance,
				ReadReports, ExportReports,
			},
			RoleUser: {
				CreateProduction, ReadProduction,
				ReadCutting,
				ReadCashbook,
			},
			RoleProductionManager: {
				CreateProduction, ReadProduction, UpdateProduction, DeleteProduction,
				ReadCutting,
				ReadReports,
			},
			RoleCuttingManager: {
				CreateCutting, ReadCutting, UpdateCutting, DeleteCutting,
				ReadProduction,
				ReadReports,
			},
			RoleCashbookManager: {
				CreateCashbook, ReadCashbook, UpdateCashbook, DeleteCashbook,
				ReadReports,
			},
			RoleHRManager: {
				ReadAttendance, ImportAttendance,
				ReadReports,
			},
			RoleReportViewer: {
				ReadProduction, ReadCutting, ReadCashbook, ReadAttendance,
				ReadReports,
			},
		},
		Pages: map[string][]Role{
			PageAdminUsers:       {RoleSuperAdmin, RoleAdmin},
			PageAdminPermissions: {RoleSuperAdmin, RoleAdmin},
			PageProduction: {
				RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser,
				RoleProductionManager, RoleCuttingManager, RoleReportViewer,
			},
			PageCutting: {
				RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser,
				RoleProductionManager, RoleCuttingManager, RoleReportViewer,
			},
			PageCashbook: {
				RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser,
				RoleCashbookManager, RoleReportViewer,
			},
			PageManpower: {
				RoleSuperAdmin, RoleAdmin, RoleManager, RoleHRManager, RoleReportViewer,
			},
			PageReports: {
				RoleSuperAdmin, RoleAdmin, RoleManager, RoleProductionManager,
				RoleCuttingManager, RoleCashbookManager, RoleHRManager, RoleReportViewer,
			},
		},
		ReadOnlyRoles: []Role{RoleReportViewer},
	}
}

// DefaultTable panics if DefaultPolicy does not validate.
func DefaultTable() *Table {
	t, err := NewTable(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return t
}
