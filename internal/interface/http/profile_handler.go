package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/pkg/response"
	"github.com/oksasatya/account-service/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type ProfileHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewProfileHandler(svc *application.Service, logger *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Bio                *string `json:"bio" binding:"omitempty,max=500"`
	DateOfBirth        *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender             *string `json:"gender" binding:"omitempty,gender"`
	Phone              *string `json:"phone" binding:"omitempty,phone"`
	Address            *string `json:"address" binding:"omitempty,max=255"`
	City               *string `json:"city" binding:"omitempty,max=100"`
	Country            *string `json:"country" binding:"omitempty,max=100"`
	Locale             *string `json:"locale" binding:"omitempty,locale"`
	EmailNotifications *bool   `json:"email_notifications"`
	PushNotifications  *bool   `json:"push_notifications"`
	Version            int64   `json:"version" binding:"omitempty,gte=1"`
}

func (r updateProfileRequest) patch() (application.ProfilePatch, error) {
	p := application.ProfilePatch{
		Bio:                r.Bio,
		Phone:              r.Phone,
		Address:            r.Address,
		City:               r.City,
		Country:            r.Country,
		Locale:             r.Locale,
		EmailNotifications: r.EmailNotifications,
		PushNotifications:  r.PushNotifications,
		Version:            r.Version,
	}
	if r.DateOfBirth != nil {
		dob, err := time.Parse(time.DateOnly, *r.DateOfBirth)
		if err != nil {
			return p, err
		}
		p.DateOfBirth = &dob
	}
	if r.Gender != nil {
		g := entity.Gender(*r.Gender)
		p.Gender = &g
	}
	return p, nil
}

func (h *ProfileHandler) Get(c *gin.Context) {
	id := c.Param("id")
	p, err := h.Svc.GetProfile(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfileResponse(p), "profile", nil)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	patch, err := req.patch()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"date_of_birth": "must be YYYY-MM-DD"})
		return
	}
	p, err := h.Svc.UpdateProfile(c.Request.Context(), c.Param("id"), patch, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfileResponse(p), "profile updated", nil)
}

// UploadAvatar expects a multipart form with the image in the "avatar" field.
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes+1<<10)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"avatar": "is required"})
		return
	}
	if fh.Size > maxAvatarBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "avatar too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer f.Close()

	p, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("id"), middleware.ActorFrom(c), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toProfileResponse(p), "avatar updated", nil)
}
