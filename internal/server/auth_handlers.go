package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidhal-dev/authfront/internal/client"
	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/session"
)

// LoginRequest represents a login form submission
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SignupRequest represents a signup form submission
type SignupRequest struct {
	FirstName       string `json:"firstName" form:"firstName" validate:"required"`
	LastName        string `json:"lastName" form:"lastName" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" form:"role" validate:"role"`
}

// ForgotPasswordRequest represents a reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a new password from a reset link
type ResetPasswordRequest struct {
	Token           string `json:"token" form:"token" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" form:"passwordConfirm" validate:"required,eqfield=Password"`
}

// SessionResponse describes the session and where the router stands
type SessionResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UserRole        string `json:"userRole"`
	Location        string `json:"location"`
	SessionExpired  bool   `json:"sessionExpired"`
}

func (s *Server) sessionResponse() SessionResponse {
	snap := s.app.Sessions.Snapshot()
	loc := s.app.Router.Current()
	return SessionResponse{
		IsAuthenticated: snap.IsAuthenticated,
		UserRole:        string(snap.Role),
		Location:        loc.String(),
		SessionExpired:  loc.SessionExpired(),
	}
}

// bind decodes the form or JSON body and validates it
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respondAPIError relays an API failure to the browser
func (s *Server) respondAPIError(c *gin.Context, err error, message string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		s.logger.Warn().Err(err).Msg(message)
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Body})
		return
	}
	respondWithError(c, s.logger, http.StatusBadGateway, err, message)
}

// @Summary Current session
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /session [get]
func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessionResponse())
}

// page answers a guarded page route with the location it resolved to
func (s *Server) page(c *gin.Context) {
	loc, _ := GetLocation(c)
	c.JSON(http.StatusOK, gin.H{
		"route":   loc.Name,
		"path":    loc.String(),
		"session": s.sessionResponse(),
	})
}

// notFound sends every unknown page to the not-found route
func (s *Server) notFound(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	loc, err := s.app.Router.Push(c.Request.Context(), router.Location{Path: c.Request.URL.Path})
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Navigation failed")
		return
	}
	c.Redirect(http.StatusFound, loc.String())
}

// @Summary Log in
// @Description Authenticates against the API and stores the token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bind(c, &req) {
		return
	}

	if _, err := s.app.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		s.respondAPIError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse())
}

// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /logout [post]
func (s *Server) logout(c *gin.Context) {
	if err := s.app.Logout(c.Request.Context()); err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Logout failed")
		return
	}

	c.JSON(http.StatusOK, s.sessionResponse())
}

// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} map[string]interface{}
// @Router /signup [post]
func (s *Server) signup(c *gin.Context) {
	var req SignupRequest
	if !s.bind(c, &req) {
		return
	}

	register := client.RegisterRequest{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if req.Role != "" {
		role, _ := session.ParseRole(req.Role)
		register.Role = string(role)
	}

	msg, err := s.app.Client.Register(c.Request.Context(), register)
	if err != nil {
		s.respondAPIError(c, err, "Signup failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// @Summary Request a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Email"
// @Success 200 {object} map[string]interface{}
// @Router /forgotten-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	msg, err := s.app.Client.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		s.respondAPIError(c, err, "Password reset request failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// @Summary Reset a password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} map[string]interface{}
// @Router /reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !s.bind(c, &req) {
		return
	}

	msg, err := s.app.Client.ResetPassword(c.Request.Context(), req.Token, req.Password, req.PasswordConfirm)
	if err != nil {
		s.respondAPIError(c, err, "Password reset failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// @Summary Activate an account
// @Tags auth
// @Param token path string true "Activation token"
// @Success 303
// @Router /activate/{token} [post]
func (s *Server) activate(c *gin.Context) {
	if err := s.app.Client.EnableUser(c.Request.Context(), c.Param("token")); err != nil {
		s.respondAPIError(c, err, "Activation failed")
		return
	}

	loc, err := s.app.Router.Push(c.Request.Context(), router.Location{Name: router.RouteLogin})
	if err != nil {
		respondWithError(c, s.logger, http.StatusInternalServerError, err, "Navigation failed")
		return
	}
	c.Redirect(http.StatusSeeOther, loc.String())
}
