package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spirolink-backend/internal/api"
	"spirolink-backend/internal/domain"
)

func toSessionResponse(s domain.Session) api.SessionResponse {
	return api.SessionResponse{Token: s.Token, UID: s.UID, Email: s.Email, ExpiresAt: s.ExpiresAt}
}

func (h *handlers) recordAccount(op string, err error) {
	if m := h.deps.Metrics; m != nil {
		code := "OK"
		if err != nil {
			code = string(api.Code(err))
		}
		m.RecordAccountOp(op, code)
	}
}

func (h *handlers) bindCredentials(c *gin.Context) (api.CredentialsRequest, bool) {
	var req api.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		return req, false
	}
	return req, true
}

func (h *handlers) signUp(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	sess, err := h.deps.Accounts.SignUp(c.Request.Context(), req.Email, req.Password)
	h.recordAccount("signup", err)
	if err != nil {
		h.respondError(c, "signup", err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (h *handlers) signIn(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}
	sess, err := h.deps.Accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	h.recordAccount("signin", err)
	if err != nil {
		h.respondError(c, "signin", err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

// requireSession resolves the bearer token into the caller's session.
func (h *handlers) requireSession(c *gin.Context) {
	token, ok := api.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: api.MsgMissingToken})
		return
	}
	sess, err := h.deps.Accounts.CurrentUser(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, "session", err)
		c.Abort()
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func sessionFrom(c *gin.Context) domain.Session {
	sess, _ := c.MustGet(sessionKey).(domain.Session)
	return sess
}

func (h *handlers) signOut(c *gin.Context) {
	err := h.deps.Accounts.SignOut(c.Request.Context(), sessionFrom(c).Token)
	h.recordAccount("signout", err)
	if err != nil {
		h.respondError(c, "signout", err)
		return
	}
	c.JSON(http.StatusOK, api.SuccessResponse{Success: true})
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, toSessionResponse(sessionFrom(c)))
}

func (h *handlers) getProfile(c *gin.Context) {
	profile, err := h.deps.Accounts.GetProfile(c.Request.Context(), sessionFrom(c).UID)
	h.recordAccount("get_profile", err)
	if err != nil {
		h.respondError(c, "get_profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req api.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: api.MsgInvalidBody})
		return
	}
	profile, err := h.deps.Accounts.UpdateProfile(c.Request.Context(), sessionFrom(c).UID, domain.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
	})
	h.recordAccount("update_profile", err)
	if err != nil {
		h.respondError(c, "update_profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
