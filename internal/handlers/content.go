package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/middleware"
	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/service"
)

func getHandler[T any](res *service.Resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := res.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

func createHandler[T any](create func(context.Context, T) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v T
		if err := decodeJSON(c, &v); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		created, err := create(c.Request.Context(), v)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// updateHandler applies a partial JSON update.
func updateHandler[T any](res *service.Resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		updated, err := res.Update(c.Request.Context(), c.Param("id"), body)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func deleteHandler[T any](res *service.Resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := res.Delete(c.Request.Context(), c.Param("id")); err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h HandlerSet) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), principal(c).User)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h HandlerSet) ListCourses(c *gin.Context) {
	filter := repository.DocumentFilter{}
	if category := c.Query("category"); category != "" {
		filter["category"] = category
	}
	courses, err := h.content.Courses.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(courses))
}

func (h HandlerSet) ListCourseModules(c *gin.Context) {
	modules, err := h.content.ModulesForCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(modules))
}

func (h HandlerSet) ListModuleLessons(c *gin.Context) {
	lessons, err := h.content.LessonsForModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(lessons))
}

func (h HandlerSet) ListModuleAssignments(c *gin.Context) {
	assignments, err := h.content.AssignmentsForModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(assignments))
}

func (h HandlerSet) SubmitAssignment(c *gin.Context) {
	var input service.SubmissionInput
	if err := decodeJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	sub, err := h.content.SubmitAssignment(c.Request.Context(), principal(c).User.ID, c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h HandlerSet) ListSubmissions(c *gin.Context) {
	subs, err := h.content.SubmissionsFor(c.Request.Context(), principal(c).User, c.Query("assignmentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(subs))
}

func (h HandlerSet) AdminGradeSubmission(c *gin.Context) {
	var input service.GradeInput
	if err := decodeJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	sub, err := h.content.GradeSubmission(c.Request.Context(), principal(c).User.ID, c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h HandlerSet) ListResources(c *gin.Context) {
	resources, err := h.content.ListResources(c.Request.Context(), c.Query("moduleId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(resources))
}

func (h HandlerSet) ListDiscussions(c *gin.Context) {
	posts, err := h.content.ListPosts(c.Request.Context(), c.Query("courseId"), c.Query("moduleId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(posts))
}

func (h HandlerSet) CreateDiscussion(c *gin.Context) {
	var input service.PostInput
	if err := decodeJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	post, err := h.content.CreatePost(c.Request.Context(), principal(c).User.ID, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h HandlerSet) ListReplies(c *gin.Context) {
	replies, err := h.content.RepliesForPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(replies))
}

type replyRequest struct {
	Content string `json:"content"`
}

func (h HandlerSet) CreateReply(c *gin.Context) {
	var req replyRequest
	if err := decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	reply, err := h.content.CreateReply(c.Request.Context(), principal(c).User.ID, c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (h HandlerSet) ListCertificates(c *gin.Context) {
	certs, err := h.content.CertificatesFor(c.Request.Context(), principal(c).User)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(certs))
}

func (h HandlerSet) ListAnnouncements(c *gin.Context) {
	announcements, err := h.content.Announcements.List(c.Request.Context(), nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(announcements))
}

func (h HandlerSet) AdminCreateAnnouncement(c *gin.Context) {
	var announcement models.Announcement
	if err := decodeJSON(c, &announcement); err != nil {
		h.fail(c, err)
		return
	}
	created, err := h.content.CreateAnnouncement(c.Request.Context(), principal(c).User.ID, announcement)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
