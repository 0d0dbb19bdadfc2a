package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/models"
)

func seedCourse(t *testing.T, f *fixture) (models.Course, models.Module, models.Assignment) {
	t.Helper()
	ctx := context.Background()

	course, err := f.content.Courses.Create(ctx, models.Course{
		Name:        "Ethical Hacking",
		Description: "Offensive security fundamentals",
		Category:    "security",
	})
	require.NoError(t, err)

	module, err := f.content.CreateModule(ctx, models.Module{
		CourseID:     course.ID,
		ModuleNumber: 1,
		Title:        "Reconnaissance",
		Description:  "Footprinting and scanning",
	})
	require.NoError(t, err)

	assignment, err := f.content.CreateAssignment(ctx, models.Assignment{
		ModuleID:    module.ID,
		Title:       "Nmap lab",
		Description: "Scan the lab network",
		DueDate:     time.Now().UTC().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return course, module, assignment
}

func TestCourseDefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course, module, assignment := seedCourse(t, f)

	assert.NotEmpty(t, course.ID)
	assert.Equal(t, 80, course.CompletionThreshold)
	assert.False(t, module.ReleaseDate.IsZero())
	assert.Equal(t, 100, assignment.MaxScore)

	updated, err := f.content.Courses.Update(ctx, course.ID, json.RawMessage(`{"name":"Advanced Hacking","id":"hijack"}`))
	require.NoError(t, err)
	assert.Equal(t, course.ID, updated.ID)
	assert.Equal(t, "Advanced Hacking", updated.Name)
	assert.Equal(t, course.Description, updated.Description)

	_, err = f.content.Courses.Update(ctx, course.ID, json.RawMessage(`{"completionThreshold":150}`))
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))

	_, err = f.content.Courses.Update(ctx, course.ID, json.RawMessage(`[1,2]`))
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))

	_, err = f.content.Courses.Update(ctx, "missing", json.RawMessage(`{"name":"x"}`))
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	require.NoError(t, f.content.Courses.Delete(ctx, course.ID))
	_, err = f.content.Courses.Get(ctx, course.ID)
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))
	assert.True(t, apperr.HasKind(f.content.Courses.Delete(ctx, course.ID), apperr.KindNotFound))
}

func TestContentRequiresParents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.content.CreateModule(ctx, models.Module{CourseID: "missing", ModuleNumber: 1, Title: "t", Description: "d"})
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	_, err = f.content.CreateLesson(ctx, models.Lesson{ModuleID: "missing", LessonNumber: 1, Title: "t", Type: models.LessonVideo, URL: "https://example.com"})
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	_, module, _ := seedCourse(t, f)
	_, err = f.content.CreateAssignment(ctx, models.Assignment{ModuleID: module.ID, Title: "t", Description: "d"})
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))
}

func TestModulesAndLessonsAreOrdered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course, first, _ := seedCourse(t, f)

	_, err := f.content.CreateModule(ctx, models.Module{CourseID: course.ID, ModuleNumber: 3, Title: "Exploitation", Description: "d"})
	require.NoError(t, err)
	_, err = f.content.CreateModule(ctx, models.Module{CourseID: course.ID, ModuleNumber: 2, Title: "Scanning", Description: "d"})
	require.NoError(t, err)

	modules, err := f.content.ModulesForCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 3)
	for i, m := range modules {
		assert.Equal(t, i+1, m.ModuleNumber)
	}

	for _, n := range []int{2, 1} {
		_, err := f.content.CreateLesson(ctx, models.Lesson{
			ModuleID:     first.ID,
			LessonNumber: n,
			Title:        "Lesson",
			Type:         models.LessonReading,
			URL:          "https://example.com/lesson",
		})
		require.NoError(t, err)
	}
	lessons, err := f.content.LessonsForModule(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].LessonNumber)
}

func TestSubmissionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, assignment := seedCourse(t, f)
	student := models.User{ID: "student-1", Role: models.UserRoleStudent}
	admin := models.User{ID: "admin-1", Role: models.UserRoleAdmin}
	input := SubmissionInput{FileURL: "https://files.example.com/report.pdf", FileName: "report.pdf", FileSize: 1024}

	sub, err := f.content.SubmitAssignment(ctx, student.ID, assignment.ID, input)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, sub.Status)

	_, err = f.content.SubmitAssignment(ctx, student.ID, assignment.ID, input)
	assert.True(t, apperr.HasKind(err, apperr.KindConflict))

	_, err = f.content.SubmitAssignment(ctx, student.ID, "missing", input)
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	stats, err := f.dashboard.Stats(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveCourses)
	assert.Equal(t, 1, stats.PendingAssignments)
	assert.Equal(t, 0, stats.GradedAssignments)
	assert.Nil(t, stats.Students)

	_, err = f.content.GradeSubmission(ctx, admin.ID, sub.ID, GradeInput{Score: 101})
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))

	graded, err := f.content.GradeSubmission(ctx, admin.ID, sub.ID, GradeInput{Score: 40, Feedback: "Redo the scan", Status: models.SubmissionResubmit})
	require.NoError(t, err)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 40, *graded.Score)
	require.NotNil(t, graded.GradedBy)
	assert.Equal(t, admin.ID, *graded.GradedBy)

	resubmitted, err := f.content.SubmitAssignment(ctx, student.ID, assignment.ID, input)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, resubmitted.ID)
	assert.Equal(t, models.SubmissionSubmitted, resubmitted.Status)

	_, err = f.content.GradeSubmission(ctx, admin.ID, sub.ID, GradeInput{Score: 95})
	require.NoError(t, err)

	stats, err = f.dashboard.Stats(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PendingAssignments)
	assert.Equal(t, 1, stats.GradedAssignments)

	own, err := f.content.SubmissionsFor(ctx, models.User{ID: "student-2", Role: models.UserRoleStudent}, "")
	require.NoError(t, err)
	assert.Empty(t, own)

	all, err := f.content.SubmissionsFor(ctx, admin, assignment.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDiscussions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course, _, _ := seedCourse(t, f)

	post, err := f.content.CreatePost(ctx, "student-1", PostInput{CourseID: &course.ID, Title: "Wireshark filters", Content: "Which filter?"})
	require.NoError(t, err)
	assert.Equal(t, "student-1", post.AuthorID)

	_, err = f.content.CreatePost(ctx, "student-1", PostInput{Title: "", Content: "empty title"})
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))

	posts, err := f.content.ListPosts(ctx, course.ID, "")
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	first, err := f.content.CreateReply(ctx, "student-2", post.ID, "Try http.request")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.content.CreateReply(ctx, "student-1", post.ID, "Thanks")
	require.NoError(t, err)

	replies, err := f.content.RepliesForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, first.ID, replies[0].ID)

	_, err = f.content.CreateReply(ctx, "student-1", "missing", "hello")
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))
}

func TestCertificatesAndResources(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	course, _, _ := seedCourse(t, f)
	number := admitStudent(t, f, "student@example.com")
	student, err := f.store.Users().GetByAdmissionNumber(ctx, number)
	require.NoError(t, err)

	cert, err := f.content.IssueCertificate(ctx, models.Certificate{StudentID: student.ID, CourseID: course.ID})
	require.NoError(t, err)
	assert.False(t, cert.IssuedAt.IsZero())

	_, err = f.content.IssueCertificate(ctx, models.Certificate{StudentID: "missing", CourseID: course.ID})
	assert.True(t, apperr.HasKind(err, apperr.KindNotFound))

	certs, err := f.content.CertificatesFor(ctx, student)
	require.NoError(t, err)
	assert.Len(t, certs, 1)

	stats, err := f.dashboard.Stats(ctx, models.User{ID: "admin", Role: models.UserRoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, stats.Students)
	assert.Equal(t, 1, *stats.Students)
	require.NotNil(t, stats.PendingApplications)
	assert.Equal(t, 0, *stats.PendingApplications)

	_, err = f.content.Resources.Create(ctx, models.Resource{Title: "Docs", Type: models.ResourceDocument, URL: "https://example.com/docs"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	pinned, err := f.content.Resources.Create(ctx, models.Resource{Title: "Lab", Type: models.ResourceLab, URL: "https://example.com/lab", IsPinned: true})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.content.Resources.Create(ctx, models.Resource{Title: "Video", Type: models.ResourceVideo, URL: "https://example.com/video"})
	require.NoError(t, err)

	resources, err := f.content.ListResources(ctx, "")
	require.NoError(t, err)
	require.Len(t, resources, 3)
	assert.Equal(t, pinned.ID, resources[0].ID)
	assert.Equal(t, "Video", resources[1].Title)

	_, err = f.content.Resources.Create(ctx, models.Resource{Title: "Bad", Type: "podcast", URL: "https://example.com"})
	assert.True(t, apperr.HasKind(err, apperr.KindValidation))
}

func TestAnnouncementAuthorIsServerOwned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.content.CreateAnnouncement(ctx, "admin-1", models.Announcement{Title: "Welcome", Content: "Cohort starts Monday", AuthorID: "spoofed"})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", a.AuthorID)

	updated, err := f.content.Announcements.Update(ctx, a.ID, json.RawMessage(`{"authorId":"other","title":"Welcome!"}`))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", updated.AuthorID)
	assert.Equal(t, "Welcome!", updated.Title)
}
