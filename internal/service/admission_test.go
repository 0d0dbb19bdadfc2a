package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/attachment"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository"
)

func TestFormatAdmissionNumber(t *testing.T) {
	assert.Equal(t, "CYBERWISE001", FormatAdmissionNumber("CYBERWISE", 3, 1))
	assert.Equal(t, "CYBERWISE042", FormatAdmissionNumber("CYBERWISE", 3, 42))
	assert.Equal(t, "CYBERWISE1000", FormatAdmissionNumber("CYBERWISE", 3, 1000))
}

func TestSubmitApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	app, err := f.admission.SubmitApplication(ctx, validApplication("  Jane@Example.COM "), nil)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", app.Email)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Nil(t, app.AdmissionNumber)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.KindApplicationReceived, sent[0].Kind)
	assert.Equal(t, "jane@example.com", sent[0].To)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.admission.SubmitApplication(ctx, validApplication("jane@example.com"), nil)
		assert.True(t, apperr.HasKind(err, apperr.KindDuplicateApplication))
		assert.Equal(t, "An application with this email already exists", err.Error())
	})

	t.Run("invalid input", func(t *testing.T) {
		input := validApplication("not-an-email")
		input.ExperienceLevel = "guru"
		_, err := f.admission.SubmitApplication(ctx, input, nil)
		require.True(t, apperr.HasKind(err, apperr.KindValidation))

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		fields := appErr.Details["fields"].(map[string]any)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "experienceLevel")
	})
}

func TestSubmitApplicationNotificationFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true

	_, err := f.admission.SubmitApplication(context.Background(), validApplication("a@example.com"), nil)
	require.NoError(t, err)
}

func TestSubmitApplicationRemovesCVOnDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	files, err := attachment.NewStore(dir, 1<<20)
	require.NoError(t, err)
	f.admission.files = files

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	app, err := f.admission.SubmitApplication(ctx, validApplication("cv@example.com"), &Upload{
		Filename: "resume.pdf",
		Content:  bytes.NewReader(pdf),
	})
	require.NoError(t, err)
	require.NotNil(t, app.CVURL)

	_, err = f.admission.SubmitApplication(ctx, validApplication("cv@example.com"), &Upload{
		Filename: "resume.pdf",
		Content:  bytes.NewReader(pdf),
	})
	require.True(t, apperr.HasKind(err, apperr.KindDuplicateApplication))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name, ok := attachment.NameFromURL(*app.CVURL)
	require.True(t, ok)
	assert.Equal(t, name, entries[0].Name())

	t.Run("rejects disguised text", func(t *testing.T) {
		_, err := f.admission.SubmitApplication(ctx, validApplication("txt@example.com"), &Upload{
			Filename: "resume.pdf",
			Content:  bytes.NewReader([]byte("plain text resume")),
		})
		assert.True(t, apperr.HasKind(err, apperr.KindValidation))
	})
}

func TestApproveApplicationAssignsSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.admission.SubmitApplication(ctx, validApplication("one@example.com"), nil)
	require.NoError(t, err)
	second, err := f.admission.SubmitApplication(ctx, validApplication("two@example.com"), nil)
	require.NoError(t, err)

	n1, err := f.admission.ApproveApplication(ctx, first.ID, "admin-1")
	require.NoError(t, err)
	n2, err := f.admission.ApproveApplication(ctx, second.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "CYBERWISE001", n1)
	assert.Equal(t, "CYBERWISE002", n2)

	app, err := f.store.Applications().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusApproved, app.Status)
	require.NotNil(t, app.AdmissionNumber)
	assert.Equal(t, n1, *app.AdmissionNumber)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, "admin-1", *app.ReviewedBy)

	user, err := f.store.Users().GetByAdmissionNumber(ctx, n1)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleStudent, user.Role)
	assert.True(t, user.MustChangePassword)
	assert.Equal(t, "one@example.com", user.Email)
	assert.NotEqual(t, []byte(testTemporaryPassword), user.PasswordHash)

	var approved []notify.Message
	for _, msg := range f.notifier.sent() {
		if msg.Kind == notify.KindApplicationApproved {
			approved = append(approved, msg)
		}
	}
	require.Len(t, approved, 2)
	assert.Equal(t, n1, approved[0].AdmissionNumber)
	assert.Equal(t, testTemporaryPassword, approved[0].TemporaryPassword)

	_, err = f.admission.ApproveApplication(ctx, first.ID, "admin-1")
	assert.True(t, apperr.HasKind(err, apperr.KindAlreadyProcessed))
}

func TestApproveUnknownApplication(t *testing.T) {
	f := newFixture(t)
	_, err := f.admission.ApproveApplication(context.Background(), "missing", "admin")
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))
}

func TestRejectApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	app, err := f.admission.SubmitApplication(ctx, validApplication("no@example.com"), nil)
	require.NoError(t, err)

	require.NoError(t, f.admission.RejectApplication(ctx, app.ID, "admin"))
	err = f.admission.RejectApplication(ctx, app.ID, "admin")
	assert.True(t, apperr.HasKind(err, apperr.KindAlreadyProcessed))
	_, err = f.admission.ApproveApplication(ctx, app.ID, "admin")
	assert.True(t, apperr.HasKind(err, apperr.KindAlreadyProcessed))

	stored, err := f.store.Applications().GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, stored.Status)
	assert.Nil(t, stored.AdmissionNumber)

	users, err := f.accounts.ListStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestConcurrentApprovalOfSameApplication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	app, err := f.admission.SubmitApplication(ctx, validApplication("race@example.com"), nil)
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		processed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.admission.ApproveApplication(ctx, app.ID, "admin")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.HasKind(err, apperr.KindAlreadyProcessed):
				processed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, processed)

	students, err := f.accounts.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestConcurrentApprovalsGetDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 20
	appIDs := make([]string, n)
	for i := range appIDs {
		app, err := f.admission.SubmitApplication(ctx, validApplication(fmt.Sprintf("s%d@example.com", i)), nil)
		require.NoError(t, err)
		appIDs[i] = app.ID
	}

	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i, id := range appIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			number, err := f.admission.ApproveApplication(ctx, id, "admin")
			assert.NoError(t, err)
			numbers[i] = number
		}(i, id)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, number := range numbers {
		assert.False(t, seen[number], number)
		seen[number] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[FormatAdmissionNumber("CYBERWISE", 3, int64(i))])
	}
}

func TestListApplications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.admission.SubmitApplication(ctx, validApplication("a@example.com"), nil)
	require.NoError(t, err)
	_, err = f.admission.SubmitApplication(ctx, validApplication("b@example.com"), nil)
	require.NoError(t, err)
	require.NoError(t, f.admission.RejectApplication(ctx, a.ID, "admin"))

	all, err := f.admission.ListApplications(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.admission.ListApplications(ctx, "PENDING")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b@example.com", pending[0].Email)

	_, err = f.admission.ListApplications(ctx, "archived")
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))
}

func TestApproveRollsBackWhenAccountCannotBeCreated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.accounts.EnsureAdmin(ctx, AdminAccount{
		AdmissionNumber: "CYBERWISEADMIN",
		FullName:        "Admin",
		Email:           "taken@example.com",
		Password:        "Adm1n!Pass",
	})
	require.NoError(t, err)

	clash, err := f.admission.SubmitApplication(ctx, validApplication("taken@example.com"), nil)
	require.NoError(t, err)

	_, err = f.admission.ApproveApplication(ctx, clash.ID, "admin")
	require.True(t, apperr.HasKind(err, apperr.KindConflict), err)

	stored, err := f.store.Applications().GetByID(ctx, clash.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, stored.Status)
	assert.Nil(t, stored.AdmissionNumber)
	assert.Nil(t, stored.ReviewedAt)

	_, err = f.store.Users().GetByAdmissionNumber(ctx, "CYBERWISE001")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	for _, msg := range f.notifier.sent() {
		assert.NotEqual(t, notify.KindApplicationApproved, msg.Kind)
	}

	next, err := f.admission.SubmitApplication(ctx, validApplication("next@example.com"), nil)
	require.NoError(t, err)
	number, err := f.admission.ApproveApplication(ctx, next.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "CYBERWISE002", number)
}

func TestAdminDashboardCountsPendingApplications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.admission.SubmitApplication(ctx, validApplication("one@example.com"), nil)
	require.NoError(t, err)
	_, err = f.admission.SubmitApplication(ctx, validApplication("two@example.com"), nil)
	require.NoError(t, err)
	_, err = f.admission.ApproveApplication(ctx, first.ID, "admin")
	require.NoError(t, err)

	stats, err := f.dashboard.Stats(ctx, models.User{ID: "admin", Role: models.UserRoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, stats.PendingApplications)
	assert.Equal(t, 1, *stats.PendingApplications)
	require.NotNil(t, stats.Students)
	assert.Equal(t, 1, *stats.Students)

	stats, err = f.dashboard.Stats(ctx, models.User{ID: "student", Role: models.UserRoleStudent})
	require.NoError(t, err)
	assert.Nil(t, stats.PendingApplications)
}
