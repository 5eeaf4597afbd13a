package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/akrylov/authgate/internal/common"
	"github.com/akrylov/authgate/internal/server/services"
)

// The refresh token travels only in this cookie, scoped to /auth so browsers
// attach it to refresh and logout calls and nothing else.
const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/auth"
)

const dateLayout = "2006-01-02"

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	DOB      string `json:"dob"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Pincode  string `json:"pincode"`
	Gender   string `json:"gender"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// sessionResponse is the public session shape. The refresh token is
// deliberately absent: it only ever leaves through the cookie.
type sessionResponse struct {
	Message     string `json:"message"`
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"` // ms until access token expiry
}

type validateResetResponse struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondBadRequest(w, "email and password are required")
		return
	}

	var dob time.Time
	if req.DOB != "" {
		var err error
		dob, err = time.Parse(dateLayout, req.DOB)
		if err != nil {
			respondBadRequest(w, "dob must be formatted as "+dateLayout)
			return
		}
	}

	res, err := s.service.Register(r.Context(), req.Email, req.Password, services.Profile{
		FullName:    req.FullName,
		DateOfBirth: dob,
		City:        req.City,
		Country:     req.Country,
		Pincode:     req.Pincode,
		Gender:      req.Gender,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: res.Message, Email: res.Email})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, common.ErrInvalidToken)
		return
	}

	res, err := s.service.Verify(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: res.Message, Email: res.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondBadRequest(w, "email and password are required")
		return
	}

	session, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	s.setRefreshCookie(w, session.RefreshToken)
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := readRefreshCookie(r)
	if !ok {
		respondError(w, common.ErrInvalidToken)
		return
	}

	session, err := s.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		respondError(w, err)
		return
	}

	s.setRefreshCookie(w, session.RefreshToken)
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := readRefreshCookie(r)
	if !ok {
		respondError(w, common.ErrInvalidToken)
		return
	}

	res, err := s.service.Logout(r.Context(), refreshToken)
	if err != nil {
		respondError(w, err)
		return
	}

	clearRefreshCookie(w)
	respondJSON(w, http.StatusOK, messageResponse{Message: res.Message, Email: res.Email})
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" {
		respondBadRequest(w, "email is required")
		return
	}

	if err := s.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Password reset email sent if account exists"})
}

func (s *Server) handleResetValidate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, common.ErrInvalidToken)
		return
	}

	res, err := s.service.ValidateResetToken(r.Context(), token)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, validateResetResponse{Message: res.Message, Valid: res.Valid})
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		respondBadRequest(w, "token and newPassword are required")
		return
	}

	res, err := s.service.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: res.Message})
}

func toSessionResponse(session *services.Session) sessionResponse {
	return sessionResponse{
		Message:     session.Message,
		Email:       session.Email,
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn.Milliseconds(),
	}
}

func readRefreshCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   int(s.refreshTokenValidity.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
