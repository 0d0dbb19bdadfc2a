package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"cyberwise/portal/internal/apperr"
	"cyberwise/portal/internal/service"
	"cyberwise/portal/internal/validation"
)

// multipartOverhead is the allowance for form fields on top of the CV size cap.
const multipartOverhead = 1 << 20

// SubmitApplication accepts JSON or multipart form data with an optional "cv" file.
func (h HandlerSet) SubmitApplication(c *gin.Context) {
	var (
		input service.ApplicationInput
		cv    *service.Upload
	)

	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		limit := int64(multipartOverhead)
		if h.files != nil {
			limit += h.files.MaxBytes()
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		form, err := c.MultipartForm()
		if err != nil {
			h.fail(c, apperr.Validation("invalid multipart form").Wrap(err))
			return
		}
		if err := binding.MapFormWithTag(&input, form.Value, "form"); err != nil {
			h.fail(c, validation.BindError(err))
			return
		}
		if headers := form.File["cv"]; len(headers) > 0 {
			file, err := openUpload(headers[0])
			if err != nil {
				h.fail(c, err)
				return
			}
			defer file.Close()
			cv = &service.Upload{Filename: headers[0].Filename, Content: file}
		}
	} else if err := decodeJSON(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	app, err := h.admission.SubmitApplication(c.Request.Context(), input, cv)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application submitted successfully",
		"application": app,
	})
}

func openUpload(header *multipart.FileHeader) (multipart.File, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperr.Validation("could not read uploaded file").Wrap(err)
	}
	return file, nil
}

func (h HandlerSet) AdminListApplications(c *gin.Context) {
	apps, err := h.admission.ListApplications(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items(apps))
}

func (h HandlerSet) AdminApproveApplication(c *gin.Context) {
	number, err := h.admission.ApproveApplication(c.Request.Context(), c.Param("id"), principal(c).User.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Application approved",
		"admissionNumber": number,
	})
}

func (h HandlerSet) AdminRejectApplication(c *gin.Context) {
	if err := h.admission.RejectApplication(c.Request.Context(), c.Param("id"), principal(c).User.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application rejected"})
}
