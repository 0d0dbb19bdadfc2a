package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/attachment"
	"cyberwise/portal/internal/config"
	"cyberwise/portal/internal/metrics"
	"cyberwise/portal/internal/middleware"
	"cyberwise/portal/internal/notify"
	"cyberwise/portal/internal/repository"
	"cyberwise/portal/internal/security"
	"cyberwise/portal/internal/service"
	"cyberwise/portal/internal/session"
	"cyberwise/portal/internal/validation"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	store     repository.Store
	cache     *redis.Client
	files     *attachment.Store
	metrics   http.Handler
	admission *service.AdmissionService
	accounts  *service.AccountService
	auth      *service.AuthService
	content   *service.ContentService
	dashboard *service.DashboardService
}

// Dependencies are the infrastructure handlers are built on. Cache and
// MetricsHandler may be nil.
type Dependencies struct {
	Store          repository.Store
	Sessions       session.Store
	Cache          *redis.Client
	Files          *attachment.Store
	Notifier       notify.Notifier
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) (HandlerSet, error) {
	hasher, err := security.NewPasswordHasher(cfg.Admission.BcryptCost)
	if err != nil {
		return HandlerSet{}, err
	}

	content := service.NewContentService(deps.Store, log)
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		store:     deps.Store,
		cache:     deps.Cache,
		files:     deps.Files,
		metrics:   deps.MetricsHandler,
		admission: service.NewAdmissionService(deps.Store, deps.Files, hasher, deps.Notifier, deps.Metrics, cfg.Admission, log),
		accounts:  service.NewAccountService(deps.Store, deps.Sessions, hasher, deps.Notifier, cfg.Admission, log),
		auth:      service.NewAuthService(deps.Store, deps.Sessions, hasher, deps.Metrics, cfg.Session, log),
		content:   content,
		dashboard: service.NewDashboardService(deps.Store, content),
	}, nil
}

// Accounts exposes the account service for startup seeding.
func (h HandlerSet) Accounts() *service.AccountService {
	return h.accounts
}

func (h HandlerSet) Register(engine *gin.Engine) {
	if h.metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.metrics))
	}

	requireAuth := middleware.Auth(h.auth, h.cfg.Session.CookieName)

	uploads := engine.Group("/uploads")
	uploads.Use(requireAuth, middleware.RequirePasswordRotated(), middleware.RequireAdmin())
	uploads.GET("/:filename", h.DownloadUpload)

	api := engine.Group("/api")
	api.GET("/healthz", h.Health)
	api.POST("/applications", h.SubmitApplication)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)

	authed := api.Group("")
	authed.Use(requireAuth)
	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/change-password", h.ChangePassword)

	rotated := authed.Group("")
	rotated.Use(middleware.RequirePasswordRotated())
	{
		rotated.GET("/dashboard/stats", h.DashboardStats)

		rotated.GET("/courses", h.ListCourses)
		rotated.GET("/courses/:id", getHandler(h.content.Courses))
		rotated.GET("/courses/:id/modules", h.ListCourseModules)
		rotated.GET("/modules/:id", getHandler(h.content.Modules))
		rotated.GET("/modules/:id/lessons", h.ListModuleLessons)
		rotated.GET("/modules/:id/assignments", h.ListModuleAssignments)
		rotated.GET("/assignments/:id", getHandler(h.content.Assignments))
		rotated.POST("/assignments/:id/submit", h.SubmitAssignment)
		rotated.GET("/submissions", h.ListSubmissions)

		rotated.GET("/resources", h.ListResources)
		rotated.GET("/discussions", h.ListDiscussions)
		rotated.POST("/discussions", h.CreateDiscussion)
		rotated.GET("/discussions/:id/replies", h.ListReplies)
		rotated.POST("/discussions/:id/replies", h.CreateReply)
		rotated.GET("/certificates", h.ListCertificates)
		rotated.GET("/announcements", h.ListAnnouncements)
	}

	// Role is checked before rotation so non-admins always get forbidden.
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin(), middleware.RequirePasswordRotated())
	{
		admin.GET("/applications", h.AdminListApplications)
		admin.POST("/applications/:id/approve", h.AdminApproveApplication)
		admin.POST("/applications/:id/reject", h.AdminRejectApplication)
		admin.GET("/students", h.AdminListStudents)
		admin.PATCH("/students/:id/reset-password", h.AdminResetPassword)

		admin.POST("/courses", createHandler(h.content.Courses.Create))
		admin.PATCH("/courses/:id", updateHandler(h.content.Courses))
		admin.DELETE("/courses/:id", deleteHandler(h.content.Courses))

		admin.POST("/modules", createHandler(h.content.CreateModule))
		admin.PATCH("/modules/:id", updateHandler(h.content.Modules))
		admin.DELETE("/modules/:id", deleteHandler(h.content.Modules))

		admin.POST("/lessons", createHandler(h.content.CreateLesson))
		admin.PATCH("/lessons/:id", updateHandler(h.content.Lessons))
		admin.DELETE("/lessons/:id", deleteHandler(h.content.Lessons))

		admin.POST("/resources", createHandler(h.content.Resources.Create))
		admin.PATCH("/resources/:id", updateHandler(h.content.Resources))
		admin.DELETE("/resources/:id", deleteHandler(h.content.Resources))

		admin.POST("/announcements", h.AdminCreateAnnouncement)
		admin.PATCH("/announcements/:id", updateHandler(h.content.Announcements))
		admin.DELETE("/announcements/:id", deleteHandler(h.content.Announcements))

		admin.POST("/assignments", createHandler(h.content.CreateAssignment))
		admin.PATCH("/assignments/:id", updateHandler(h.content.Assignments))
		admin.PATCH("/submissions/:id/grade", h.AdminGradeSubmission)
		admin.POST("/certificates", createHandler(h.content.IssueCertificate))
	}
}

func principal(c *gin.Context) service.Principal {
	p, _ := middleware.CurrentPrincipal(c)
	return p
}

// decodeJSON reads the request body into v without running binding
// validation; services validate after filling server-owned fields.
func decodeJSON(c *gin.Context, v any) error {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body is too large")
		}
		return validation.BindError(err)
	}
	return nil
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody))
	if err != nil {
		return nil, apperr.Validation("request body is too large").Wrap(err)
	}
	if len(body) == 0 {
		return nil, apperr.Validation("request body is required")
	}
	return body, nil
}

func items[T any](list []T) gin.H {
	if list == nil {
		list = []T{}
	}
	return gin.H{"items": list}
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}
