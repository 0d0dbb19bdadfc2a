package models

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

type Application struct {
	ID              string            `json:"id"`
	FullName        string            `json:"fullName"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	Location        string            `json:"location"`
	ExperienceLevel ExperienceLevel   `json:"experienceLevel"`
	Reason          string            `json:"reason"`
	CVURL           *string           `json:"cvUrl,omitempty"`
	Status          ApplicationStatus `json:"status"`
	AdmissionNumber *string           `json:"admissionNumber,omitempty"`
	SubmittedAt     time.Time         `json:"submittedAt"`
	ReviewedAt      *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy      *string           `json:"reviewedBy,omitempty"`
}

func (a Application) Pending() bool {
	return a.Status == ApplicationStatusPending
}

// ApplicationReview is the outcome recorded when an application leaves the pending state.
type ApplicationReview struct {
	Status          ApplicationStatus
	AdmissionNumber *string
	ReviewedAt      time.Time
	ReviewedBy      string
}
