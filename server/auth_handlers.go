package server

import (
	"net/http"

	"github.com/jrsteele09/masapp-server/auth"
	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler answers with a token pair, or {mfaRequired, challengeToken} when the account
// has two-factor enabled.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.LoginParameters
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.auth.Login(r.Context(), params, s.clientKey(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse(res))
	}
}

func (s *Server) VerifyTwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params auth.TwoFactorParameters
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		res, err := s.auth.VerifyTwoFactor(r.Context(), params, s.clientKey(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse(res))
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.RefreshToken == "" {
			writeError(w, apperrors.NewValidationError().Add("refreshToken", "is required"))
			return
		}
		pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// LogoutHandler revokes the bearer token and, when given, the refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, err)
				return
			}
		}
		if err := s.auth.Logout(r.Context(), accessTokenFromContext(r.Context()), req.RefreshToken); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.CurrentUser(r.Context(), accessTokenFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		var params auth.ChangePasswordParameters
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, err)
			return
		}
		if err := s.auth.ChangePassword(r.Context(), claims.UserID, accessTokenFromContext(r.Context()), params); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) SetupTwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		enrollment, err := s.auth.SetupTwoFactor(claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, enrollment)
	}
}

type codeRequest struct {
	Code string `json:"code"`
}

func (s *Server) EnableTwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		var req codeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		codes, err := s.auth.EnableTwoFactor(claims.UserID, req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"backupCodes": codes})
	}
}

func (s *Server) DisableTwoFactorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := claimsFromContext(r.Context())
		var req codeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := s.auth.DisableTwoFactor(claims.UserID, req.Code); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type loginResponseBody struct {
	AccessToken    string `json:"accessToken,omitempty"`
	RefreshToken   string `json:"refreshToken,omitempty"`
	ExpiresIn      int    `json:"expiresIn,omitempty"`
	TokenType      string `json:"tokenType,omitempty"`
	MFARequired    bool   `json:"mfaRequired"`
	ChallengeToken string `json:"challengeToken,omitempty"`
	User           any    `json:"user,omitempty"`
}

func loginResponse(res *auth.LoginResult) loginResponseBody {
	if res.MFARequired {
		return loginResponseBody{MFARequired: true, ChallengeToken: res.ChallengeToken}
	}
	return loginResponseBody{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
		TokenType:    res.Tokens.TokenType,
		User:         res.User,
	}
}
