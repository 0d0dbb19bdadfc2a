package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/notify"
)

// admitStudent runs an application through approval and returns the admission number.
func admitStudent(t *testing.T, f *fixture, email string) string {
	t.Helper()
	ctx := context.Background()
	app, err := f.admission.SubmitApplication(ctx, validApplication(email), nil)
	require.NoError(t, err)
	number, err := f.admission.ApproveApplication(ctx, app.ID, "admin")
	require.NoError(t, err)
	return number
}

func login(t *testing.T, f *fixture, number, password string) LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), LoginInput{AdmissionNumber: number, Password: password})
	require.NoError(t, err)
	return res
}

func TestTemporaryPasswordRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	number := admitStudent(t, f, "student@example.com")

	first := login(t, f, number, testTemporaryPassword)
	assert.True(t, first.MustChangePassword)
	assert.True(t, first.User.MustChangePassword)
	assert.NotEmpty(t, first.Token)

	principal, err := f.auth.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	assert.True(t, principal.Session.MustChangePassword)

	err = f.accounts.ChangePassword(ctx, ChangePasswordInput{
		UserID:          principal.User.ID,
		SessionID:       principal.Session.ID,
		CurrentPassword: testTemporaryPassword,
		NewPassword:     "N3w!Secret",
	})
	require.NoError(t, err)

	principal, err = f.auth.Authenticate(ctx, first.Token)
	require.NoError(t, err)
	assert.False(t, principal.Session.MustChangePassword)
	assert.False(t, principal.User.MustChangePassword)

	_, err = f.auth.Login(ctx, LoginInput{AdmissionNumber: number, Password: testTemporaryPassword})
	assert.True(t, apperr.HasKind(err, apperr.KindInvalidCredential))

	second := login(t, f, number, "N3w!Secret")
	assert.False(t, second.MustChangePassword)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	number := admitStudent(t, f, "student@example.com")

	_, wrongPassword := f.auth.Login(ctx, LoginInput{AdmissionNumber: number, Password: "Wrong@1234"})
	_, unknownUser := f.auth.Login(ctx, LoginInput{AdmissionNumber: "CYBERWISE999", Password: "Wrong@1234"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, apperr.KindInvalidCredential, apperr.KindOf(wrongPassword))
	assert.Equal(t, apperr.KindOf(wrongPassword), apperr.KindOf(unknownUser))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())

	_, err := f.auth.Login(ctx, LoginInput{AdmissionNumber: number})
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))
}

func TestChangePasswordRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	number := admitStudent(t, f, "student@example.com")
	res := login(t, f, number, testTemporaryPassword)

	cases := []struct {
		name    string
		current string
		next    string
		kind    apperr.Kind
	}{
		{"weak", testTemporaryPassword, "password", apperr.KindWeakPassword},
		{"unchanged", testTemporaryPassword, testTemporaryPassword, apperr.KindWeakPassword},
		{"wrong current", "Wrong@1234", "N3w!Secret", apperr.KindInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.accounts.ChangePassword(ctx, ChangePasswordInput{
				UserID:          res.User.ID,
				SessionID:       res.SessionID,
				CurrentPassword: tc.current,
				NewPassword:     tc.next,
			})
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	user, err := f.store.Users().GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, user.MustChangePassword)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	number := admitStudent(t, f, "student@example.com")
	res := login(t, f, number, testTemporaryPassword)

	cases := map[string]string{
		"empty":   "",
		"garbage": "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.Authenticate(ctx, token)
			assert.True(t, apperr.HasKind(err, apperr.KindUnauthenticated))
		})
	}

	t.Run("expired session", func(t *testing.T) {
		f.auth.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }
		stale, err := f.auth.Login(ctx, LoginInput{AdmissionNumber: number, Password: testTemporaryPassword})
		f.auth.now = utcNow
		require.NoError(t, err)

		_, err = f.auth.Authenticate(ctx, stale.Token)
		assert.True(t, apperr.HasKind(err, apperr.KindUnauthenticated))
	})

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, f.auth.Logout(ctx, res.Token))
		_, err := f.auth.Authenticate(ctx, res.Token)
		assert.True(t, apperr.HasKind(err, apperr.KindUnauthenticated))
		require.NoError(t, f.auth.Logout(ctx, res.Token))
		require.NoError(t, f.auth.Logout(ctx, ""))
	})
}

func TestResetStudentPasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	number := admitStudent(t, f, "student@example.com")
	res := login(t, f, number, testTemporaryPassword)
	require.NoError(t, f.accounts.ChangePassword(ctx, ChangePasswordInput{
		UserID:          res.User.ID,
		SessionID:       res.SessionID,
		CurrentPassword: testTemporaryPassword,
		NewPassword:     "N3w!Secret",
	}))
	other := login(t, f, number, "N3w!Secret")

	require.NoError(t, f.accounts.ResetStudentPassword(ctx, res.User.ID))

	for _, token := range []string{res.Token, other.Token} {
		_, err := f.auth.Authenticate(ctx, token)
		assert.True(t, apperr.HasKind(err, apperr.KindUnauthenticated))
	}

	again := login(t, f, number, testTemporaryPassword)
	assert.True(t, again.MustChangePassword)

	sent := f.notifier.sent()
	last := sent[len(sent)-1]
	assert.Equal(t, notify.KindPasswordReset, last.Kind)
	assert.Equal(t, number, last.AdmissionNumber)

	err := f.accounts.ResetStudentPassword(ctx, "missing")
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := AdminAccount{
		AdmissionNumber: "CYBERWISEADMIN",
		FullName:        "Admin",
		Email:           "Admin@Example.com",
		Password:        "Adm1n!Pass",
	}

	created, err := f.accounts.EnsureAdmin(ctx, admin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.accounts.EnsureAdmin(ctx, admin)
	require.NoError(t, err)
	assert.False(t, created)

	res := login(t, f, "CYBERWISEADMIN", "Adm1n!Pass")
	assert.False(t, res.MustChangePassword)
	assert.Equal(t, "admin@example.com", res.User.Email)

	err = f.accounts.ResetStudentPassword(ctx, res.User.ID)
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	_, err = f.accounts.EnsureAdmin(ctx, AdminAccount{AdmissionNumber: "ROOT", Email: "root@example.com", Password: "weak"})
	assert.True(t, apperr.HasKind(err, apperr.KindWeakPassword))
}
