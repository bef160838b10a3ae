package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestAuthRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Repository Suite")
}

var _ = Describe("Repository", func() {
	var (
		db   *gorm.DB
		repo *postgres.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewSQLiteDB(testutil.UserModels()...)
		Expect(err).NotTo(HaveOccurred())
		repo = postgres.NewRepository(db)
		ctx = context.Background()

		Expect(db.Create(&userDatamodel.User{
			ID: "u-1", Email: "cutter@factory.test", Name: "Cutter", PasswordHash: "hash",
			Role: "CUTTING_MANAGER", IsActive: true,
		}).Error).To(Succeed())
		perm := userDatamodel.Permission{Name: "READ_REPORTS"}
		Expect(db.Create(&perm).Error).To(Succeed())
		Expect(db.Create(&userDatamodel.UserPermission{UserID: "u-1", PermissionID: perm.ID}).Error).To(Succeed())
	})

	AfterEach(func() {
		testutil.Close(db)
	})

	Describe("users", func() {
		It("finds a user by email regardless of case with grants", func() {
			u, err := repo.FindUserByEmail(ctx, "CUTTER@Factory.Test")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal("u-1"))
			Expect(u.PermissionNames()).To(ConsistOf("READ_REPORTS"))
		})

		It("returns ErrUserNotFound for unknown users", func() {
			_, err := repo.FindUserByEmail(ctx, "nobody@factory.test")
			Expect(err).To(MatchError(auth.ErrUserNotFound))
			_, err = repo.FindUserByID(ctx, "u-404")
			Expect(err).To(MatchError(auth.ErrUserNotFound))
		})

		It("records the last login", func() {
			at := time.Date(2026, 1, 5, 7, 30, 0, 0, time.UTC)
			Expect(repo.TouchLastLogin(ctx, "u-1", at)).To(Succeed())

			u, err := repo.FindUserByID(ctx, "u-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.LastLoginAt).NotTo(BeNil())
			Expect(u.LastLoginAt.Equal(at)).To(BeTrue())
		})
	})

	Describe("sessions", func() {
		It("upserts by token", func() {
			first := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
			second := first.Add(time.Hour)

			Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: "tok", UserID: "u-1", ExpiresAt: first})).To(Succeed())
			Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: "tok", UserID: "u-1", ExpiresAt: second})).To(Succeed())

			var count int64
			Expect(db.Model(&userDatamodel.Session{}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))

			s, err := repo.FindSession(ctx, "tok")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.ExpiresAt.Equal(second)).To(BeTrue())
		})

		It("returns ErrSessionNotFound for unknown tokens", func() {
			_, err := repo.FindSession(ctx, "missing")
			Expect(err).To(MatchError(auth.ErrSessionNotFound))
		})

		It("tolerates deleting the same session twice", func() {
			exp := time.Now().Add(time.Hour).UTC()
			Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: "tok", UserID: "u-1", ExpiresAt: exp})).To(Succeed())

			Expect(repo.DeleteSession(ctx, "tok")).To(Succeed())
			Expect(repo.DeleteSession(ctx, "tok")).To(Succeed())
			_, err := repo.FindSession(ctx, "tok")
			Expect(err).To(MatchError(auth.ErrSessionNotFound))
		})

		It("purges a session once its expiry has passed", func() {
			exp := time.Now().Add(time.Millisecond).UTC()
			Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: "short", UserID: "u-1", ExpiresAt: exp})).To(Succeed())

			n, err := repo.DeleteExpiredSessions(ctx, exp.Add(time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("deletes one, all or expired sessions", func() {
			now := time.Now().UTC()
			for token, exp := range map[string]time.Time{
				"a": now.Add(time.Hour),
				"b": now.Add(-time.Hour),
				"c": now.Add(2 * time.Hour),
			} {
				Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: token, UserID: "u-1", ExpiresAt: exp})).To(Succeed())
			}
			Expect(repo.UpsertSession(ctx, &userDatamodel.Session{Token: "other", UserID: "u-2", ExpiresAt: now.Add(time.Hour)})).To(Succeed())

			n, err := repo.DeleteExpiredSessions(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			Expect(repo.DeleteSession(ctx, "a")).To(Succeed())
			_, err = repo.FindSession(ctx, "a")
			Expect(err).To(MatchError(auth.ErrSessionNotFound))

			n, err = repo.DeleteUserSessions(ctx, "u-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = repo.FindSession(ctx, "other")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
