package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/internal/interface/middleware"
	"github.com/oksasatya/account-service/pkg/response"
	"github.com/oksasatya/account-service/pkg/validation"
)

type AccountHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

type createAccountRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	FirstName string `json:"first_name" binding:"required,personname"`
	LastName  string `json:"last_name" binding:"required,personname"`
	Password  string `json:"password" binding:"required,strongpwd"`
}

type updateAccountRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,personname"`
	LastName  *string `json:"last_name" binding:"omitempty,personname"`
	Version   int64   `json:"version" binding:"omitempty,gte=1"`
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required,max=100"`
}

type resendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"max=100"`
	Page int    `form:"page" binding:"omitempty,gte=0"`
	Size int    `form:"size" binding:"omitempty,gte=1,lte=100"`
}

// accountID reads the :id path parameter. Malformed ids are reported as
// not found.
func (h *AccountHandler) accountID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, h.Logger, application.ErrAccountNotFound)
		return "", false
	}
	return id, true
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.Create(c.Request.Context(), application.CreateAccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toAccountResponse(a), "account created, check your email to verify it", nil)
}

func (h *AccountHandler) Me(c *gin.Context) {
	a, err := h.Svc.GetByID(c.Request.Context(), middleware.ActorFrom(c).ID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "account", nil)
}

func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	actor := middleware.ActorFrom(c)
	if !actor.Admin && !h.Svc.IsOwner(id, actor.ID) {
		writeError(c, h.Logger, application.ErrActionNotAllowed)
		return
	}
	a, err := h.Svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "account", nil)
}

func (h *AccountHandler) GetByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"email": "is required"})
		return
	}
	a, err := h.Svc.GetByEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "account", nil)
}

func (h *AccountHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	page, err := h.Svc.Search(c.Request.Context(), q.Q, q.Page, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	items, meta := toAccountPage(page)
	response.Success(c, http.StatusOK, items, "accounts", meta)
}

func (h *AccountHandler) UpdateBasicInfo(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.UpdateBasicInfo(c.Request.Context(), id, application.AccountPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Version:   req.Version,
	}, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "account updated", nil)
}

func (h *AccountHandler) Activate(c *gin.Context) {
	h.changeStatus(c, func(id string, actor entity.Actor) (*entity.Account, error) {
		return h.Svc.Activate(c.Request.Context(), id, actor)
	})
}

// Deactivate accepts ?permanent=true to move the account to DEACTIVATED.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	permanent, _ := strconv.ParseBool(c.Query("permanent"))
	h.changeStatus(c, func(id string, actor entity.Actor) (*entity.Account, error) {
		return h.Svc.Deactivate(c.Request.Context(), id, actor, permanent)
	})
}

func (h *AccountHandler) Suspend(c *gin.Context) {
	h.changeStatus(c, func(id string, actor entity.Actor) (*entity.Account, error) {
		return h.Svc.Suspend(c.Request.Context(), id, actor)
	})
}

func (h *AccountHandler) Close(c *gin.Context) {
	h.changeStatus(c, func(id string, actor entity.Actor) (*entity.Account, error) {
		return h.Svc.Close(c.Request.Context(), id, actor)
	})
}

func (h *AccountHandler) changeStatus(c *gin.Context, fn func(id string, actor entity.Actor) (*entity.Account, error)) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	a, err := fn(id, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "status updated", nil)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	if err := h.Svc.SoftDelete(c.Request.Context(), id, middleware.ActorFrom(c)); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "account deleted", nil)
}

func (h *AccountHandler) Restore(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	a, err := h.Svc.Restore(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toAccountResponse(a), "account restored", nil)
}

func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.verified(c, res)
}

func (h *AccountHandler) VerifyEmailByAdmin(c *gin.Context) {
	id, ok := h.accountID(c)
	if !ok {
		return
	}
	res, err := h.Svc.VerifyEmailByAdmin(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.verified(c, res)
}

func (h *AccountHandler) verified(c *gin.Context, res application.VerifyResult) {
	msg := "email verified"
	if res.AlreadyVerified {
		msg = "email already verified"
	}
	response.Success(c, http.StatusOK, toAccountResponse(res.Account), msg, gin.H{"already_verified": res.AlreadyVerified})
}

// ResendVerification always answers the same way for unknown addresses so
// the endpoint cannot be used to probe for accounts.
func (h *AccountHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ResendVerification(c.Request.Context(), req.Email)
	if err != nil && !errorsIsNotFound(err) {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusAccepted, gin.H{"sent": true}, "if the address is registered and unverified, a new link is on its way", nil)
}
