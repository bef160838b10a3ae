package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/garment-erp/internal/core/events"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("SessionRevoker", func() {
	var (
		mockRepo *mockRepository
		service  *Service
		bus      *events.EventBus
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		mockRepo.addUser("u-1", "one@factory.test", "correct_password", rbac.RoleUser, true)
		service = NewService(mockRepo, NewJWTTokenGenerator(testSecret, 0), nil,
			WithBCryptCost(bcrypt.MinCost), WithLogger(quietLogger()))
		bus = events.NewEventBus(quietLogger())
		NewSessionRevoker(service, quietLogger()).Register(bus)

		future := time.Now().Add(time.Hour)
		mockRepo.sessions["a"] = &userDatamodel.Session{Token: "a", UserID: "u-1", ExpiresAt: future}
		mockRepo.sessions["b"] = &userDatamodel.Session{Token: "b", UserID: "u-1", ExpiresAt: future}
		mockRepo.sessions["c"] = &userDatamodel.Session{Token: "c", UserID: "u-2", ExpiresAt: future}
	})

	ginkgo.DescribeTable("revokes the user's sessions",
		func(event events.Event) {
			gomega.Expect(bus.Publish(context.Background(), event)).To(gomega.Succeed())
			bus.Wait()

			gomega.Expect(mockRepo.sessions).ToNot(gomega.HaveKey("a"))
			gomega.Expect(mockRepo.sessions).ToNot(gomega.HaveKey("b"))
			gomega.Expect(mockRepo.sessions).To(gomega.HaveKey("c"))
		},
		ginkgo.Entry("on deactivation", events.NewUserDeactivatedEvent("u-1", "admin")),
		ginkgo.Entry("on role change", events.NewUserRoleChangedEvent("u-1", "admin", "USER", "MANAGER")),
		ginkgo.Entry("on password change", events.NewUserPasswordChangedEvent("u-1", "u-1")),
	)

	ginkgo.It("rejects foreign payloads", func() {
		err := NewSessionRevoker(service, quietLogger()).Handle(context.Background(), events.BaseEvent{Type: events.EventTypeUserDeactivated})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})

var _ = ginkgo.Describe("Purger", func() {
	var (
		mockRepo *mockRepository
		service  *Service
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		service = NewService(mockRepo, NewJWTTokenGenerator(testSecret, 0), nil, WithLogger(quietLogger()))
		mockRepo.sessions["old"] = &userDatamodel.Session{Token: "old", UserID: "u-1", ExpiresAt: time.Now().Add(-time.Hour)}
		mockRepo.sessions["new"] = &userDatamodel.Session{Token: "new", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)}
	})

	ginkgo.It("purges on demand", func() {
		n, err := NewPurger(service, "", quietLogger()).RunOnce(context.Background())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(n).To(gomega.Equal(int64(1)))
	})

	ginkgo.It("purges on schedule", func() {
		p := NewPurger(service, "* * * * * *", quietLogger())
		gomega.Expect(p.Start()).To(gomega.Succeed())
		defer p.Stop()

		gomega.Eventually(func() int { return mockRepo.sessionCount() }, 3*time.Second, 100*time.Millisecond).Should(gomega.Equal(1))
	})

	ginkgo.It("rejects a malformed schedule", func() {
		gomega.Expect(NewPurger(service, "every hour", quietLogger()).Start()).To(gomega.HaveOccurred())
	})
})
