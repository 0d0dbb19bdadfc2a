package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
)

// DashboardStats summarises the caller's progress. The admin-only counters
// are omitted for students.
type DashboardStats struct {
	ActiveCourses       int  `json:"activeCourses"`
	PendingAssignments  int  `json:"pendingAssignments"`
	GradedAssignments   int  `json:"gradedAssignments"`
	Certificates        int  `json:"certificates"`
	PendingApplications *int `json:"pendingApplications,omitempty"`
	Students            *int `json:"students,omitempty"`
}

type DashboardService struct {
	store   repository.Store
	content *ContentService
}

func NewDashboardService(store repository.Store, content *ContentService) *DashboardService {
	return &DashboardService{store: store, content: content}
}

// Stats gathers the counters concurrently.
func (s *DashboardService) Stats(ctx context.Context, user models.User) (DashboardStats, error) {
	var stats DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.content.Courses.Count(ctx, nil)
		stats.ActiveCourses = n
		return err
	})
	g.Go(func() error {
		n, err := s.content.Submissions.Count(ctx, repository.DocumentFilter{
			"studentId": user.ID,
			"status":    string(models.SubmissionSubmitted),
		})
		stats.PendingAssignments = n
		return err
	})
	g.Go(func() error {
		n, err := s.content.Submissions.Count(ctx, repository.DocumentFilter{
			"studentId": user.ID,
			"status":    string(models.SubmissionGraded),
		})
		stats.GradedAssignments = n
		return err
	})
	g.Go(func() error {
		n, err := s.content.Certificates.Count(ctx, repository.DocumentFilter{"studentId": user.ID})
		stats.Certificates = n
		return err
	})

	if user.IsAdmin() {
		g.Go(func() error {
			status := models.ApplicationStatusPending
			apps, err := s.store.Applications().List(ctx, repository.ApplicationFilter{Status: &status})
			n := len(apps)
			stats.PendingApplications = &n
			return err
		})
		g.Go(func() error {
			role := models.UserRoleStudent
			users, err := s.store.Users().List(ctx, repository.UserFilter{Role: &role})
			n := len(users)
			stats.Students = &n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}
