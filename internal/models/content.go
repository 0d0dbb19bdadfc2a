package models

import "time"

// Content kinds stored in the document store.
const (
	KindCourse          = "course"
	KindModule          = "module"
	KindLesson          = "lesson"
	KindAssignment      = "assignment"
	KindSubmission      = "submission"
	KindDiscussionPost  = "discussion_post"
	KindDiscussionReply = "discussion_reply"
	KindCertificate     = "certificate"
	KindResource        = "resource"
	KindAnnouncement    = "announcement"
)

type Course struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name" binding:"required"`
	Description         string    `json:"description" binding:"required"`
	Category            string    `json:"category" binding:"required"`
	ImageURL            string    `json:"imageUrl,omitempty" binding:"omitempty,url"`
	NetacadCourseURL    string    `json:"netacadCourseUrl,omitempty" binding:"omitempty,url"`
	NetacadLabURL       string    `json:"netacadLabUrl,omitempty" binding:"omitempty,url"`
	CompletionThreshold int       `json:"completionThreshold" binding:"gte=0,lte=100"`
	CreatedAt           time.Time `json:"createdAt"`
}

type Module struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"courseId" binding:"required"`
	ModuleNumber    int       `json:"moduleNumber" binding:"gte=1"`
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description" binding:"required"`
	Objectives      []string  `json:"objectives"`
	EstimatedHours  int       `json:"estimatedHours" binding:"gte=0"`
	PreludeTitle    string    `json:"preludeTitle,omitempty"`
	PreludeContent  string    `json:"preludeContent,omitempty"`
	PreludeVideoURL string    `json:"preludeVideoUrl,omitempty" binding:"omitempty,url"`
	ReleaseDate     time.Time `json:"releaseDate"`
	CreatedAt       time.Time `json:"createdAt"`
}

type LessonType string

const (
	LessonVideo    LessonType = "video"
	LessonReading  LessonType = "reading"
	LessonLab      LessonType = "lab"
	LessonExternal LessonType = "external"
)

type Lesson struct {
	ID           string     `json:"id"`
	ModuleID     string     `json:"moduleId" binding:"required"`
	LessonNumber int        `json:"lessonNumber" binding:"gte=1"`
	Title        string     `json:"title" binding:"required"`
	Type         LessonType `json:"type" binding:"required,oneof=video reading lab external"`
	URL          string     `json:"url" binding:"required,url"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Assignment struct {
	ID          string    `json:"id"`
	ModuleID    string    `json:"moduleId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	DueDate     time.Time `json:"dueDate"`
	MaxScore    int       `json:"maxScore" binding:"gte=0"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionResubmit  SubmissionStatus = "resubmit"
)

type Submission struct {
	ID           string           `json:"id"`
	AssignmentID string           `json:"assignmentId" binding:"required"`
	StudentID    string           `json:"studentId" binding:"required"`
	FileURL      string           `json:"fileUrl" binding:"required"`
	FileName     string           `json:"fileName" binding:"required"`
	FileType     string           `json:"fileType,omitempty"`
	FileSize     int64            `json:"fileSize" binding:"gte=0"`
	Status       SubmissionStatus `json:"status" binding:"required,oneof=submitted graded resubmit"`
	Score        *int             `json:"score,omitempty"`
	Feedback     string           `json:"feedback,omitempty"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty"`
	GradedBy     *string          `json:"gradedBy,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type DiscussionPost struct {
	ID        string    `json:"id"`
	CourseID  *string   `json:"courseId,omitempty"`
	ModuleID  *string   `json:"moduleId,omitempty"`
	AuthorID  string    `json:"authorId" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	Content   string    `json:"content" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DiscussionReply struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId" binding:"required"`
	AuthorID  string    `json:"authorId" binding:"required"`
	Content   string    `json:"content" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Certificate struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId" binding:"required"`
	CourseID  string    `json:"courseId" binding:"required"`
	IssuedAt  time.Time `json:"issuedAt"`
	PDFURL    string    `json:"pdfUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ResourceType string

const (
	ResourceNetacad  ResourceType = "netacad"
	ResourceLab      ResourceType = "lab"
	ResourceDocument ResourceType = "document"
	ResourceVideo    ResourceType = "video"
	ResourceExternal ResourceType = "external"
)

type Resource struct {
	ID          string       `json:"id"`
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description,omitempty"`
	Type        ResourceType `json:"type" binding:"required,oneof=netacad lab document video external"`
	URL         string       `json:"url" binding:"required,url"`
	ModuleID    *string      `json:"moduleId,omitempty"`
	IsPinned    bool         `json:"isPinned"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" binding:"required"`
	Content   string    `json:"content" binding:"required"`
	AuthorID  string    `json:"authorId" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`
}
