// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/sigilauth/sigil/internal/auth"
	"github.com/sigilauth/sigil/internal/observability"
	"github.com/sigilauth/sigil/pkg/errutil"
)

// Error payloads use a "detail" field; the response shapes here are a wire
// contract shared with other services and must not change casually.
type errorResponse struct {
	Detail string `json:"detail"`
	// Populated only when the server was built with exposeErrs.
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse never carries the password hash.
type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// createUser handles POST /auth/users.
func (s *Server) createUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "invalid request body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "username and password are required"})
	}

	user, err := s.authSvc.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case auth.IsUserExists(err):
			s.countRegistration("conflict")
			return c.JSON(http.StatusConflict, errorResponse{Detail: err.Error()})
		case isValidationError(err):
			s.countRegistration("invalid")
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		default:
			s.countRegistration(observability.OutcomeError)
			return err
		}
	}

	s.countRegistration(observability.OutcomeSuccess)
	s.logger.Info("user created", "username", user.Username, "user_id", user.ID)
	return c.JSON(http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// getUser handles GET /auth/users/:username. This is the unauthenticated
// read path; unlike login it may say that a user does not exist.
func (s *Server) getUser(c echo.Context) error {
	user, err := s.authSvc.GetUser(c.Request().Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Detail: "User not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// issueToken handles POST /auth/token. The request is form-encoded with
// username and password fields; the response carries a bearer token.
func (s *Server) issueToken(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Detail: "username and password are required"})
	}

	user, err := s.authSvc.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.countLogin(observability.OutcomeUnauthorized)
			return c.JSON(http.StatusUnauthorized, errorResponse{Detail: "Incorrect username or password"})
		}
		s.countLogin(observability.OutcomeError)
		return err
	}

	token, err := s.authSvc.IssueSessionToken(user)
	if err != nil {
		s.countLogin(observability.OutcomeError)
		return err
	}

	s.countLogin(observability.OutcomeSuccess)
	if s.metrics != nil {
		s.metrics.TokensIssuedTotal.Inc()
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleError is the catch-all for errors handlers did not map themselves.
// Internal detail stays out of responses unless the server was explicitly
// built to expose it.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail, ok := he.Message.(string)
		if !ok {
			detail = http.StatusText(he.Code)
		}
		//nolint:errcheck // nothing left to do if the response write fails
		c.JSON(he.Code, errorResponse{Detail: detail})
		return
	}

	errutil.LogError(s.logger, "unhandled error", err)

	resp := errorResponse{Detail: "An internal server error occurred."}
	if s.exposeErrs {
		resp.ErrorType = errorType(err)
		resp.ErrorMessage = err.Error()
	}
	//nolint:errcheck // nothing left to do if the response write fails
	c.JSON(http.StatusInternalServerError, resp)
}

// isValidationError reports whether err stems from malformed input rather
// than a storage or hashing fault.
func isValidationError(err error) bool {
	if errors.Is(err, auth.ErrEmptyPassword) {
		return true
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code() == "AUTH_INVALID_USERNAME"
	}
	return false
}

// errorType names the error kind for debugging responses.
func errorType(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() != "" {
		return oopsErr.Code()
	}
	return "internal"
}

func (s *Server) countRegistration(outcome string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
