package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
)

const (
	defaultCompletionThreshold = 80
	defaultMaxScore            = 100
)

// ContentService exposes the course catalogue and the student-facing records
// built on it.
type ContentService struct {
	store repository.Store
	log   zerolog.Logger

	Courses       *Resource[models.Course]
	Modules       *Resource[models.Module]
	Lessons       *Resource[models.Lesson]
	Assignments   *Resource[models.Assignment]
	Submissions   *Resource[models.Submission]
	Posts         *Resource[models.DiscussionPost]
	Replies       *Resource[models.DiscussionReply]
	Certificates  *Resource[models.Certificate]
	Resources     *Resource[models.Resource]
	Announcements *Resource[models.Announcement]
}

func NewContentService(store repository.Store, log zerolog.Logger) *ContentService {
	docs := store.Documents()
	return &ContentService{
		store: store,
		log:   log,
		Courses: &Resource[models.Course]{
			coll:  repository.NewCollection[models.Course](docs, models.KindCourse),
			label: "course",
			prepare: func(v *models.Course, id string, now time.Time) {
				v.ID, v.CreatedAt = id, now
				if v.CompletionThreshold == 0 {
					v.CompletionThreshold = defaultCompletionThreshold
				}
			},
			preserve: func(v *models.Course, old models.Course) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Modules: &Resource[models.Module]{
			coll:  repository.NewCollection[models.Module](docs, models.KindModule),
			label: "module",
			prepare: func(v *models.Module, id string, now time.Time) {
				v.ID, v.CreatedAt = id, now
				if v.ReleaseDate.IsZero() {
					v.ReleaseDate = now
				}
				if v.Objectives == nil {
					v.Objectives = []string{}
				}
			},
			preserve: func(v *models.Module, old models.Module) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Lessons: &Resource[models.Lesson]{
			coll:     repository.NewCollection[models.Lesson](docs, models.KindLesson),
			label:    "lesson",
			prepare:  func(v *models.Lesson, id string, now time.Time) { v.ID, v.CreatedAt = id, now },
			preserve: func(v *models.Lesson, old models.Lesson) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Assignments: &Resource[models.Assignment]{
			coll:  repository.NewCollection[models.Assignment](docs, models.KindAssignment),
			label: "assignment",
			prepare: func(v *models.Assignment, id string, now time.Time) {
				v.ID, v.CreatedAt = id, now
				if v.MaxScore == 0 {
					v.MaxScore = defaultMaxScore
				}
			},
			preserve: func(v *models.Assignment, old models.Assignment) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
			check: func(v models.Assignment) error {
				if v.DueDate.IsZero() {
					return apperr.Validation("dueDate is required").WithDetails(map[string]any{"fields": map[string]any{"dueDate": "dueDate is required"}})
				}
				return nil
			},
		},
		Submissions: &Resource[models.Submission]{
			coll:  repository.NewCollection[models.Submission](docs, models.KindSubmission),
			label: "submission",
			prepare: func(v *models.Submission, id string, now time.Time) {
				v.ID, v.CreatedAt, v.SubmittedAt = id, now, now
				v.Status = models.SubmissionSubmitted
			},
			preserve: func(v *models.Submission, old models.Submission) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Posts: &Resource[models.DiscussionPost]{
			coll:  repository.NewCollection[models.DiscussionPost](docs, models.KindDiscussionPost),
			label: "discussion",
			prepare: func(v *models.DiscussionPost, id string, now time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, now, now
			},
			preserve: func(v *models.DiscussionPost, old models.DiscussionPost) {
				v.ID, v.CreatedAt, v.AuthorID, v.UpdatedAt = old.ID, old.CreatedAt, old.AuthorID, utcNow()
			},
		},
		Replies: &Resource[models.DiscussionReply]{
			coll:  repository.NewCollection[models.DiscussionReply](docs, models.KindDiscussionReply),
			label: "reply",
			prepare: func(v *models.DiscussionReply, id string, now time.Time) {
				v.ID, v.CreatedAt, v.UpdatedAt = id, now, now
			},
			preserve: func(v *models.DiscussionReply, old models.DiscussionReply) {
				v.ID, v.CreatedAt, v.AuthorID, v.PostID, v.UpdatedAt = old.ID, old.CreatedAt, old.AuthorID, old.PostID, utcNow()
			},
		},
		Certificates: &Resource[models.Certificate]{
			coll:  repository.NewCollection[models.Certificate](docs, models.KindCertificate),
			label: "certificate",
			prepare: func(v *models.Certificate, id string, now time.Time) {
				v.ID, v.CreatedAt = id, now
				if v.IssuedAt.IsZero() {
					v.IssuedAt = now
				}
			},
			preserve: func(v *models.Certificate, old models.Certificate) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Resources: &Resource[models.Resource]{
			coll:     repository.NewCollection[models.Resource](docs, models.KindResource),
			label:    "resource",
			prepare:  func(v *models.Resource, id string, now time.Time) { v.ID, v.CreatedAt = id, now },
			preserve: func(v *models.Resource, old models.Resource) { v.ID, v.CreatedAt = old.ID, old.CreatedAt },
		},
		Announcements: &Resource[models.Announcement]{
			coll:    repository.NewCollection[models.Announcement](docs, models.KindAnnouncement),
			label:   "announcement",
			prepare: func(v *models.Announcement, id string, now time.Time) { v.ID, v.CreatedAt = id, now },
			preserve: func(v *models.Announcement, old models.Announcement) {
				v.ID, v.CreatedAt, v.AuthorID = old.ID, old.CreatedAt, old.AuthorID
			},
		},
	}
}

// CreateModule requires the parent course to exist.
func (s *ContentService) CreateModule(ctx context.Context, module models.Module) (models.Module, error) {
	if _, err := s.Courses.Get(ctx, module.CourseID); err != nil {
		return models.Module{}, err
	}
	return s.Modules.Create(ctx, module)
}

func (s *ContentService) CreateLesson(ctx context.Context, lesson models.Lesson) (models.Lesson, error) {
	if _, err := s.Modules.Get(ctx, lesson.ModuleID); err != nil {
		return models.Lesson{}, err
	}
	return s.Lessons.Create(ctx, lesson)
}

func (s *ContentService) CreateAssignment(ctx context.Context, assignment models.Assignment) (models.Assignment, error) {
	if _, err := s.Modules.Get(ctx, assignment.ModuleID); err != nil {
		return models.Assignment{}, err
	}
	return s.Assignments.Create(ctx, assignment)
}

// ModulesForCourse lists a course's modules in module order.
func (s *ContentService) ModulesForCourse(ctx context.Context, courseID string) ([]models.Module, error) {
	if _, err := s.Courses.Get(ctx, courseID); err != nil {
		return nil, err
	}
	modules, err := s.Modules.List(ctx, repository.DocumentFilter{"courseId": courseID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].ModuleNumber < modules[j].ModuleNumber })
	return modules, nil
}

// LessonsForModule lists a module's lessons in lesson order.
func (s *ContentService) LessonsForModule(ctx context.Context, moduleID string) ([]models.Lesson, error) {
	if _, err := s.Modules.Get(ctx, moduleID); err != nil {
		return nil, err
	}
	lessons, err := s.Lessons.List(ctx, repository.DocumentFilter{"moduleId": moduleID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].LessonNumber < lessons[j].LessonNumber })
	return lessons, nil
}

func (s *ContentService) AssignmentsForModule(ctx context.Context, moduleID string) ([]models.Assignment, error) {
	if _, err := s.Modules.Get(ctx, moduleID); err != nil {
		return nil, err
	}
	assignments, err := s.Assignments.List(ctx, repository.DocumentFilter{"moduleId": moduleID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(assignments, func(i, j int) bool { return assignments[i].DueDate.Before(assignments[j].DueDate) })
	return assignments, nil
}

type SubmissionInput struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// SubmitAssignment records a student's work. A student holds one submission
// per assignment; it may only be replaced after the grader asked for a resubmission.
func (s *ContentService) SubmitAssignment(ctx context.Context, studentID, assignmentID string, input SubmissionInput) (models.Submission, error) {
	if _, err := s.Assignments.Get(ctx, assignmentID); err != nil {
		return models.Submission{}, err
	}

	existing, err := s.Submissions.List(ctx, repository.DocumentFilter{
		"assignmentId": assignmentID,
		"studentId":    studentID,
	})
	if err != nil {
		return models.Submission{}, err
	}

	submission := models.Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      strings.TrimSpace(input.FileURL),
		FileName:     strings.TrimSpace(input.FileName),
		FileType:     input.FileType,
		FileSize:     input.FileSize,
	}
	if len(existing) == 0 {
		return s.Submissions.Create(ctx, submission)
	}

	prev := existing[0]
	if prev.Status != models.SubmissionResubmit {
		return models.Submission{}, apperr.Conflict("Assignment already submitted")
	}
	now := utcNow()
	submission.ID = prev.ID
	submission.CreatedAt = prev.CreatedAt
	submission.SubmittedAt = now
	submission.Status = models.SubmissionSubmitted
	submission.Feedback = prev.Feedback
	if err := s.Submissions.validate(submission); err != nil {
		return models.Submission{}, err
	}
	if err := s.Submissions.Replace(ctx, prev.ID, submission); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// SubmissionsFor returns the caller's own submissions, or every submission for admins.
func (s *ContentService) SubmissionsFor(ctx context.Context, user models.User, assignmentID string) ([]models.Submission, error) {
	filter := repository.DocumentFilter{}
	if !user.IsAdmin() {
		filter["studentId"] = user.ID
	}
	if assignmentID != "" {
		filter["assignmentId"] = assignmentID
	}
	return s.Submissions.List(ctx, filter)
}

type GradeInput struct {
	Score    int                     `json:"score"`
	Feedback string                  `json:"feedback"`
	Status   models.SubmissionStatus `json:"status"`
}

// GradeSubmission scores a submission against its assignment's maximum.
func (s *ContentService) GradeSubmission(ctx context.Context, graderID, submissionID string, input GradeInput) (models.Submission, error) {
	submission, err := s.Submissions.Get(ctx, submissionID)
	if err != nil {
		return models.Submission{}, err
	}
	assignment, err := s.Assignments.Get(ctx, submission.AssignmentID)
	if err != nil {
		return models.Submission{}, err
	}

	status := input.Status
	if status == "" {
		status = models.SubmissionGraded
	}
	if status != models.SubmissionGraded && status != models.SubmissionResubmit {
		return models.Submission{}, apperr.Validation("status must be graded or resubmit")
	}
	if input.Score < 0 || input.Score > assignment.MaxScore {
		return models.Submission{}, apperr.Validation(fmt.Sprintf("score must be between 0 and %d", assignment.MaxScore))
	}

	now := utcNow()
	score := input.Score
	submission.Score = &score
	submission.Feedback = input.Feedback
	submission.Status = status
	submission.GradedAt = &now
	submission.GradedBy = &graderID
	if err := s.Submissions.Replace(ctx, submission.ID, submission); err != nil {
		return models.Submission{}, err
	}
	s.log.Info().
		Str("submission_id", submission.ID).
		Str("grader_id", graderID).
		Int("score", score).
		Msg("submission graded")
	return submission, nil
}

type PostInput struct {
	CourseID *string `json:"courseId"`
	ModuleID *string `json:"moduleId"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
}

func (s *ContentService) CreatePost(ctx context.Context, authorID string, input PostInput) (models.DiscussionPost, error) {
	if input.CourseID != nil {
		if _, err := s.Courses.Get(ctx, *input.CourseID); err != nil {
			return models.DiscussionPost{}, err
		}
	}
	if input.ModuleID != nil {
		if _, err := s.Modules.Get(ctx, *input.ModuleID); err != nil {
			return models.DiscussionPost{}, err
		}
	}
	return s.Posts.Create(ctx, models.DiscussionPost{
		CourseID: input.CourseID,
		ModuleID: input.ModuleID,
		AuthorID: authorID,
		Title:    strings.TrimSpace(input.Title),
		Content:  strings.TrimSpace(input.Content),
	})
}

func (s *ContentService) ListPosts(ctx context.Context, courseID, moduleID string) ([]models.DiscussionPost, error) {
	filter := repository.DocumentFilter{}
	if courseID != "" {
		filter["courseId"] = courseID
	}
	if moduleID != "" {
		filter["moduleId"] = moduleID
	}
	return s.Posts.List(ctx, filter)
}

func (s *ContentService) CreateReply(ctx context.Context, authorID, postID, content string) (models.DiscussionReply, error) {
	if _, err := s.Posts.Get(ctx, postID); err != nil {
		return models.DiscussionReply{}, err
	}
	return s.Replies.Create(ctx, models.DiscussionReply{
		PostID:   postID,
		AuthorID: authorID,
		Content:  strings.TrimSpace(content),
	})
}

// RepliesForPost lists replies oldest first.
func (s *ContentService) RepliesForPost(ctx context.Context, postID string) ([]models.DiscussionReply, error) {
	if _, err := s.Posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	replies, err := s.Replies.List(ctx, repository.DocumentFilter{"postId": postID})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(replies)-1; i < j; i, j = i+1, j-1 {
		replies[i], replies[j] = replies[j], replies[i]
	}
	return replies, nil
}

// IssueCertificate awards a course certificate to a student.
func (s *ContentService) IssueCertificate(ctx context.Context, certificate models.Certificate) (models.Certificate, error) {
	student, err := s.store.Users().GetByID(ctx, certificate.StudentID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && student.Role != models.UserRoleStudent) {
		return models.Certificate{}, apperr.NotFound("student not found")
	}
	if err != nil {
		return models.Certificate{}, err
	}
	if _, err := s.Courses.Get(ctx, certificate.CourseID); err != nil {
		return models.Certificate{}, err
	}
	return s.Certificates.Create(ctx, certificate)
}

func (s *ContentService) CertificatesFor(ctx context.Context, user models.User) ([]models.Certificate, error) {
	filter := repository.DocumentFilter{}
	if !user.IsAdmin() {
		filter["studentId"] = user.ID
	}
	return s.Certificates.List(ctx, filter)
}

// ListResources returns pinned resources first, each group newest first.
func (s *ContentService) ListResources(ctx context.Context, moduleID string) ([]models.Resource, error) {
	filter := repository.DocumentFilter{}
	if moduleID != "" {
		filter["moduleId"] = moduleID
	}
	resources, err := s.Resources.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(resources, func(i, j int) bool { return resources[i].IsPinned && !resources[j].IsPinned })
	return resources, nil
}

func (s *ContentService) CreateAnnouncement(ctx context.Context, authorID string, announcement models.Announcement) (models.Announcement, error) {
	announcement.AuthorID = authorID
	return s.Announcements.Create(ctx, announcement)
}
