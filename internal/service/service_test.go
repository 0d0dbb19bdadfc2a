package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository/memory"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/session"
)

const testTemporaryPassword = "Hacker@2025"

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	fail     bool
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

type fixture struct {
	store     *memory.Store
	sessions  *session.MemoryStore
	notifier  *recordingNotifier
	admission *AdmissionService
	accounts  *AccountService
	auth      *AuthService
	content   *ContentService
	dashboard *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := security.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	admissionCfg := config.AdmissionConfig{
		Prefix:            "CYBERWISE",
		Width:             3,
		TemporaryPassword: testTemporaryPassword,
		BcryptCost:        bcrypt.MinCost,
	}
	sessionCfg := config.SessionConfig{
		Driver:     "memory",
		Secret:     "test-secret",
		TTL:        time.Hour,
		CookieName: "cyberwise_session",
	}

	f := &fixture{
		store:    memory.NewStore(),
		sessions: session.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	log := zerolog.Nop()
	f.admission = NewAdmissionService(f.store, nil, hasher, f.notifier, nil, admissionCfg, log)
	f.accounts = NewAccountService(f.store, f.sessions, hasher, f.notifier, admissionCfg, log)
	f.auth = NewAuthService(f.store, f.sessions, hasher, nil, sessionCfg, log)
	f.content = NewContentService(f.store, log)
	f.dashboard = NewDashboardService(f.store, f.content)
	return f
}

func validApplication(email string) ApplicationInput {
	return ApplicationInput{
		FullName:        "Jane Doe",
		Email:           email,
		Phone:           "+254700000000",
		Location:        "Nairobi",
		ExperienceLevel: "beginner",
		Reason:          "I want to learn penetration testing.",
	}
}
