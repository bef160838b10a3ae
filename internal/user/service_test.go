package user_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	authPostgres "github.com/frahmantamala/garment-erp/internal/auth/postgres"
	"github.com/frahmantamala/garment-erp/internal/core/events"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/testutil"
	"github.com/frahmantamala/garment-erp/internal/user"
	userPostgres "github.com/frahmantamala/garment-erp/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

const testSecret = "0123456789abcdef0123456789abcdef"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	authSvc   *auth.Service
	service   *user.Service
	publisher *recordingPublisher
	root      *auth.User
	admin     *auth.User
}

func newFixture(opts ...user.Option) *fixture {
	db, err := testutil.NewSQLiteDB(testutil.UserModels()...)
	Expect(err).NotTo(HaveOccurred())

	authSvc := auth.NewService(authPostgres.NewRepository(db), auth.NewJWTTokenGenerator(testSecret, 0), nil,
		auth.WithBCryptCost(bcrypt.MinCost), auth.WithLogger(quietLogger()))
	publisher := &recordingPublisher{}
	opts = append([]user.Option{user.WithPublisher(publisher), user.WithLogger(quietLogger())}, opts...)
	svc := user.NewService(userPostgres.NewUserRepository(db), authSvc, authSvc, nil, opts...)

	return &fixture{
		db:        db,
		authSvc:   authSvc,
		service:   svc,
		publisher: publisher,
		root:      &auth.User{ID: "root", Role: rbac.RoleSuperAdmin},
		admin:     &auth.User{ID: "admin", Role: rbac.RoleAdmin},
	}
}

// staleEmailCheck misses a concurrent insert, so only the unique index catches the duplicate.
type staleEmailCheck struct {
	user.Repository
}

func (staleEmailCheck) EmailExists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fixture) create(email string, role rbac.Role) *user.User {
	u, err := f.service.CreateUser(context.Background(), f.root, user.CreateUserDTO{
		Email:    email,
		Name:     "Test " + string(role),
		Password: "correct_password",
		Role:     string(role),
	})
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Service", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = context.Background()
	})

	AfterEach(func() {
		testutil.Close(f.db)
	})

	Describe("CreateUser", func() {
		It("stores a normalized, active account whose password authenticates", func() {
			u, err := f.service.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "  Sewing.Lead@Factory.test ", Name: "Sewing Lead", Password: "stitch-42", Role: "production_manager",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).NotTo(BeEmpty())
			Expect(u.Email).To(Equal("sewing.lead@factory.test"))
			Expect(u.Role).To(Equal(rbac.RoleProductionManager))
			Expect(u.IsActive).To(BeTrue())

			authed, err := f.authSvc.AuthenticateUser(ctx, "sewing.lead@factory.test", "stitch-42")
			Expect(err).NotTo(HaveOccurred())
			Expect(authed.ID).To(Equal(u.ID))
		})

		It("rejects a taken email regardless of case", func() {
			f.create("cutter@factory.test", rbac.RoleCuttingManager)
			_, err := f.service.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "CUTTER@factory.test", Name: "Again", Password: "secret1", Role: "USER",
			})
			Expect(err).To(MatchError(user.ErrEmailTaken))
		})

		It("reports EMAIL_TAKEN when the unique index catches a concurrent insert", func() {
			f.create("cutter@factory.test", rbac.RoleCuttingManager)
			svc := user.NewService(staleEmailCheck{userPostgres.NewUserRepository(f.db)}, f.authSvc, f.authSvc, nil,
				user.WithLogger(quietLogger()))

			_, err := svc.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "cutter@factory.test", Name: "Again", Password: "secret1", Role: "USER",
			})
			Expect(err).To(MatchError(user.ErrEmailTaken))
		})

		It("rejects unknown roles", func() {
			_, err := f.service.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "x@factory.test", Name: "X", Password: "secret1", Role: "FOREMAN",
			})
			Expect(err).To(MatchError(user.ErrInvalidRole))
		})

		It("reports field errors as a validation failure", func() {
			_, err := f.service.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "not-an-email", Name: "", Password: "123", Role: "USER",
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			details, ok := appErr.Details.(internal.ValidationErrors)
			Expect(ok).To(BeTrue())
			fields := []string{}
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ContainElements("email", "name", "password"))
		})

		It("reserves SUPER_ADMIN for super admins", func() {
			_, err := f.service.CreateUser(ctx, f.admin, user.CreateUserDTO{
				Email: "boss@factory.test", Name: "Boss", Password: "secret1", Role: "SUPER_ADMIN",
			})
			Expect(err).To(MatchError(user.ErrSuperAdminOnly))
		})
	})

	Describe("ListUsers and GetUser", func() {
		BeforeEach(func() {
			f.create("line1@factory.test", rbac.RoleUser)
			f.create("line2@factory.test", rbac.RoleUser)
			f.create("hr@factory.test", rbac.RoleHRManager)
		})

		It("filters by role and search", func() {
			list, err := f.service.ListUsers(ctx, user.ListFilter{Role: rbac.RoleUser})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Total).To(Equal(int64(2)))
			Expect(list.Users).To(HaveLen(2))
			Expect(list.Limit).To(Equal(user.DefaultListLimit))

			list, err = f.service.ListUsers(ctx, user.ListFilter{Search: "HR@"})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Users).To(HaveLen(1))
			Expect(list.Users[0].Role).To(Equal(rbac.RoleHRManager))
		})

		It("pages while reporting the full total", func() {
			list, err := f.service.ListUsers(ctx, user.ListFilter{Limit: 2, Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Total).To(Equal(int64(3)))
			Expect(list.Users).To(HaveLen(1))
		})

		It("returns ErrUserNotFound for unknown ids", func() {
			_, err := f.service.GetUser(ctx, "missing")
			Expect(err).To(MatchError(user.ErrUserNotFound))
		})
	})

	Describe("UpdateProfile", func() {
		It("changes only the given fields", func() {
			u := f.create("old@factory.test", rbac.RoleUser)
			name := "Renamed"
			updated, err := f.service.UpdateProfile(ctx, f.admin, u.ID, user.UpdateProfileDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Renamed"))
			Expect(updated.Email).To(Equal("old@factory.test"))
		})

		It("refuses another user's email", func() {
			f.create("taken@factory.test", rbac.RoleUser)
			u := f.create("mine@factory.test", rbac.RoleUser)
			email := "Taken@factory.test"
			_, err := f.service.UpdateProfile(ctx, f.admin, u.ID, user.UpdateProfileDTO{Email: &email})
			Expect(err).To(MatchError(user.ErrEmailTaken))
		})

		It("keeps admins away from super admin accounts", func() {
			boss := f.create("boss@factory.test", rbac.RoleSuperAdmin)
			name := "Nope"
			_, err := f.service.UpdateProfile(ctx, f.admin, boss.ID, user.UpdateProfileDTO{Name: &name})
			Expect(err).To(MatchError(user.ErrSuperAdminOnly))
		})
	})

	Describe("SetRole", func() {
		It("changes the role and publishes the change once", func() {
			u := f.create("line@factory.test", rbac.RoleUser)

			updated, err := f.service.SetRole(ctx, f.admin, u.ID, "manager")
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Role).To(Equal(rbac.RoleManager))

			_, err = f.service.SetRole(ctx, f.admin, u.ID, "MANAGER")
			Expect(err).NotTo(HaveOccurred())

			Expect(f.publisher.types()).To(Equal([]string{events.EventTypeUserRoleChanged}))
			payload := f.publisher.events[0].Payload().(map[string]interface{})
			Expect(payload).To(HaveKeyWithValue("old_role", "USER"))
			Expect(payload).To(HaveKeyWithValue("new_role", "MANAGER"))
		})

		It("refuses to change the caller's own role", func() {
			_, err := f.service.SetRole(ctx, f.admin, f.admin.ID, "USER")
			Expect(err).To(MatchError(user.ErrSelfLockout))
		})

		It("refuses promotions to SUPER_ADMIN by admins", func() {
			u := f.create("line@factory.test", rbac.RoleUser)
			_, err := f.service.SetRole(ctx, f.admin, u.ID, "SUPER_ADMIN")
			Expect(err).To(MatchError(user.ErrSuperAdminOnly))
		})
	})

	Describe("SetActive", func() {
		It("publishes a deactivation and blocks login", func() {
			u := f.create("leaver@factory.test", rbac.RoleUser)

			updated, err := f.service.SetActive(ctx, f.admin, u.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.IsActive).To(BeFalse())
			Expect(f.publisher.types()).To(Equal([]string{events.EventTypeUserDeactivated}))

			_, err = f.authSvc.AuthenticateUser(ctx, "leaver@factory.test", "correct_password")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("is a no-op when the flag already matches", func() {
			u := f.create("steady@factory.test", rbac.RoleUser)
			_, err := f.service.SetActive(ctx, f.admin, u.ID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.publisher.types()).To(BeEmpty())
		})

		It("refuses self deactivation", func() {
			_, err := f.service.SetActive(ctx, f.admin, f.admin.ID, false)
			Expect(err).To(MatchError(user.ErrSelfLockout))
		})
	})

	Describe("permission grants", func() {
		It("grants idempotently and revokes", func() {
			u := f.create("line@factory.test", rbac.RoleUser)

			granted, err := f.service.GrantPermission(ctx, f.admin, u.ID, "read_reports")
			Expect(err).NotTo(HaveOccurred())
			Expect(granted.Permissions).To(ConsistOf("READ_REPORTS"))

			granted, err = f.service.GrantPermission(ctx, f.admin, u.ID, "READ_REPORTS")
			Expect(err).NotTo(HaveOccurred())
			Expect(granted.Permissions).To(ConsistOf("READ_REPORTS"))

			table := rbac.DefaultTable()
			Expect(table.HasPermission(granted, rbac.ReadReports)).To(BeTrue())

			revoked, err := f.service.RevokePermission(ctx, f.admin, u.ID, "READ_REPORTS")
			Expect(err).NotTo(HaveOccurred())
			Expect(revoked.Permissions).To(BeEmpty())
			Expect(table.HasPermission(revoked, rbac.ReadReports)).To(BeFalse())
		})

		It("records who granted the permission", func() {
			u := f.create("line@factory.test", rbac.RoleUser)
			_, err := f.service.GrantPermission(ctx, f.admin, u.ID, "EXPORT_REPORTS")
			Expect(err).NotTo(HaveOccurred())

			var grantedBy string
			Expect(f.db.Table("user_permissions").Select("granted_by").Where("user_id = ?", u.ID).Scan(&grantedBy).Error).To(Succeed())
			Expect(grantedBy).To(Equal("admin"))
		})

		It("syncs the permission catalog idempotently", func() {
			n, err := f.service.SyncPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(len(rbac.AllPermissions())))

			_, err = f.service.SyncPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())

			var count int64
			Expect(f.db.Table("permissions").Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(len(rbac.AllPermissions()))))
		})

		It("rejects flags outside the catalog", func() {
			u := f.create("line@factory.test", rbac.RoleUser)
			_, err := f.service.GrantPermission(ctx, f.admin, u.ID, "FLY")
			Expect(err).To(MatchError(user.ErrInvalidPermission))
		})
	})

	Describe("RevokeSessions", func() {
		It("ends every session of the user", func() {
			f.create("busy@factory.test", rbac.RoleUser)
			first, err := f.authSvc.AuthenticateUser(ctx, "busy@factory.test", "correct_password")
			Expect(err).NotTo(HaveOccurred())
			_, err = f.authSvc.AuthenticateUser(ctx, "busy@factory.test", "correct_password")
			Expect(err).NotTo(HaveOccurred())

			n, err := f.service.RevokeSessions(ctx, f.admin, first.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer "+first.Token)
			_, err = f.authSvc.GetCurrentUser(req)
			Expect(err).To(MatchError(auth.ErrUnauthenticated))
		})
	})

	Describe("Register", func() {
		It("is closed by default", func() {
			_, err := f.service.Register(ctx, user.RegisterDTO{Email: "new@factory.test", Name: "New", Password: "secret1"})
			Expect(err).To(MatchError(user.ErrRegistrationClosed))
		})

		It("creates USER accounts when enabled", func() {
			testutil.Close(f.db)
			f = newFixture(user.WithSelfRegistration(true))

			u, err := f.service.Register(ctx, user.RegisterDTO{Email: "new@factory.test", Name: "New", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(rbac.RoleUser))
		})
	})

	Describe("ChangePassword", func() {
		var actor *auth.User

		BeforeEach(func() {
			u := f.create("self@factory.test", rbac.RoleUser)
			actor = &auth.User{ID: u.ID, Role: u.Role}
		})

		It("requires the current password", func() {
			err := f.service.ChangePassword(ctx, actor, user.ChangePasswordDTO{CurrentPassword: "guess", NewPassword: "new-secret"})
			Expect(err).To(MatchError(user.ErrWrongPassword))
			Expect(f.publisher.types()).To(BeEmpty())
		})

		It("replaces the hash and publishes the change", func() {
			err := f.service.ChangePassword(ctx, actor, user.ChangePasswordDTO{CurrentPassword: "correct_password", NewPassword: "new-secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.publisher.types()).To(Equal([]string{events.EventTypeUserPasswordChanged}))

			_, err = f.authSvc.AuthenticateUser(ctx, "self@factory.test", "new-secret")
			Expect(err).NotTo(HaveOccurred())
			_, err = f.authSvc.AuthenticateUser(ctx, "self@factory.test", "correct_password")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})
	})

	Describe("Roles", func() {
		It("describes every role from the table", func() {
			entries := f.service.Roles()
			Expect(entries).To(HaveLen(len(rbac.AllRoles())))

			byRole := map[rbac.Role]user.RoleEntry{}
			for _, e := range entries {
				byRole[e.Role] = e
			}
			Expect(byRole[rbac.RoleSuperAdmin].Permissions).To(HaveLen(len(rbac.AllPermissions())))
			Expect(byRole[rbac.RoleReportViewer].ReadOnly).To(BeTrue())
			Expect(byRole[rbac.RoleHRManager].Pages).To(Equal([]string{"/manpower", "/reports"}))
		})
	})

	Describe("session revocation on user changes", func() {
		It("logs a deactivated user out everywhere", func() {
			bus := events.NewEventBus(quietLogger())
			auth.NewSessionRevoker(f.authSvc, quietLogger()).Register(bus)
			svc := user.NewService(userPostgres.NewUserRepository(f.db), f.authSvc, f.authSvc, nil,
				user.WithPublisher(bus), user.WithLogger(quietLogger()))

			f.create("leaver@factory.test", rbac.RoleUser)
			session, err := f.authSvc.AuthenticateUser(ctx, "leaver@factory.test", "correct_password")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SetActive(ctx, f.admin, session.ID, false)
			Expect(err).NotTo(HaveOccurred())
			bus.Wait()

			var remaining int64
			Expect(f.db.Table("sessions").Where("user_id = ?", session.ID).Count(&remaining).Error).To(Succeed())
			Expect(remaining).To(BeZero())
		})
	})
})
