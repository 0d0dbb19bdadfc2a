package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/attachment"
)

func (h HandlerSet) AdminListStudents(c *gin.Context) {
	students, err := h.accounts.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(students))
}

func (h HandlerSet) AdminResetPassword(c *gin.Context) {
	if err := h.accounts.ResetStudentPassword(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset to the temporary password"})
}

// DownloadUpload serves a stored CV. Only bare file names are accepted.
func (h HandlerSet) DownloadUpload(c *gin.Context) {
	if h.files == nil {
		h.fail(c, apperr.NotFound("file not found"))
		return
	}

	f, info, err := h.files.Open(c.Param("filename"))
	if errors.Is(err, attachment.ErrInvalidName) || errors.Is(err, attachment.ErrNotFound) {
		h.fail(c, apperr.NotFound("file not found"))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
