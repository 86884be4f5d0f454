package fakeapi

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/fishmapai/fishmap-gateway/token"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

type adminView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type userView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Gender string `json:"gender,omitempty"`
}

func newAdminView(a *Account) *adminView {
	return &adminView{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

func newUserView(a *Account) *userView {
	return &userView{ID: a.ID, Name: a.Name, Email: a.Email, Phone: a.Phone, Gender: a.Gender}
}

func (s *Server) AdminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "Format permintaan tidak valid", false, http.StatusBadRequest)
			return
		}

		admin, err := s.accounts.GetByEmail(KindAdmin, req.Email)
		if err != nil || !CheckPasswordHash(req.Password, admin.PasswordHash) {
			writeJSONError(w, "Email atau password salah", false, http.StatusUnauthorized)
			return
		}

		s.issueSession(w, admin, AdminRefreshCookie)
	}
}

func (s *Server) AdminTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := s.accountFromRefreshCookie(r, AdminRefreshCookie, KindAdmin)
		if !ok {
			writeJSONError(w, "Refresh token tidak valid", true, http.StatusUnauthorized)
			return
		}

		accessToken, _, err := s.issueAccessToken(admin)
		if err != nil {
			log.Err(err).Msg("failed to issue admin access token")
			writeJSONError(w, "Gagal membuat token", false, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken": accessToken,
			"admin":       newAdminView(admin),
		})
	}
}

func (s *Server) AdminLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.endSession(w, r, AdminRefreshCookie)
	}
}

func (s *Server) AdminProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := s.accountFromBearer(w, r, token.KindAdmin)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"admin": newAdminView(admin)})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name            string `json:"name"`
			Email           string `json:"email"`
			Password        string `json:"password"`
			ConfirmPassword string `json:"confirmPassword"`
			Phone           string `json:"phone"`
			Gender          string `json:"gender"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "", false, http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
			writeJSONError(w, "Nama dan email wajib diisi", false, http.StatusBadRequest)
			return
		}
		if req.Password != req.ConfirmPassword {
			writeJSONError(w, "Password dan konfirmasi password tidak sama", false, http.StatusBadRequest)
			return
		}
		if err := ValidatePasswordStrength(req.Password); err != nil {
			writeJSONError(w, err.Error(), false, http.StatusBadRequest)
			return
		}

		hash, err := HashPassword(req.Password)
		if err != nil {
			writeJSONError(w, "Registrasi gagal", false, http.StatusInternalServerError)
			return
		}
		user := &Account{
			Kind:         KindUser,
			Name:         req.Name,
			Email:        strings.ToLower(req.Email),
			Phone:        req.Phone,
			Gender:       req.Gender,
			PasswordHash: hash,
			DateJoined:   token.NowTimeFunc(),
		}
		if err := s.accounts.Create(user); err != nil {
			writeJSONError(w, "Email atau nomor HP sudah terdaftar", false, http.StatusConflict)
			return
		}
		if err := s.sendOTP(user); err != nil {
			log.Err(err).Msg("failed to generate otp")
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"msg":  "Registrasi berhasil! Silakan cek email untuk kode OTP",
			"user": newUserView(user),
		})
	}
}

func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
			OTP   string `json:"otp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "", false, http.StatusBadRequest)
			return
		}

		user, err := s.accounts.GetByEmail(KindUser, req.Email)
		if err != nil {
			writeJSONError(w, "Akun tidak ditemukan", false, http.StatusNotFound)
			return
		}
		if user.OTP == "" || user.OTP != req.OTP || token.NowTimeFunc().After(user.OTPExpiry) {
			writeJSONError(w, "Kode OTP salah atau kedaluwarsa", false, http.StatusBadRequest)
			return
		}

		verified := *user
		verified.Verified = true
		verified.OTP = ""
		_ = s.accounts.Upsert(&verified)
		writeJSON(w, http.StatusOK, map[string]any{"msg": "Verifikasi berhasil"})
	}
}

func (s *Server) ResendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "", false, http.StatusBadRequest)
			return
		}

		user, err := s.accounts.GetByEmail(KindUser, req.Email)
		if err != nil {
			writeJSONError(w, "Akun tidak ditemukan", false, http.StatusNotFound)
			return
		}
		if user.Verified {
			writeJSONError(w, "Akun sudah terverifikasi", false, http.StatusBadRequest)
			return
		}
		if err := s.sendOTP(user); err != nil {
			writeJSONError(w, "Gagal mengirim OTP", false, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"msg": "Kode OTP baru telah dikirim"})
	}
}

func (s *Server) UserLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "", false, http.StatusBadRequest)
			return
		}

		user, err := s.accounts.GetByEmail(KindUser, req.Email)
		if err != nil || !CheckPasswordHash(req.Password, user.PasswordHash) {
			writeJSONError(w, "Email atau password salah", false, http.StatusUnauthorized)
			return
		}
		if !user.Verified {
			writeJSONError(w, "Akun belum diverifikasi", false, http.StatusForbidden)
			return
		}

		s.issueSession(w, user, UserRefreshCookie)
	}
}

func (s *Server) UserProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.accountFromBearer(w, r, token.KindUser)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, newUserView(user))
	}
}

func (s *Server) UserLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.endSession(w, r, UserRefreshCookie)
	}
}

func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.signer.JWKS()
		if err != nil {
			http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(w, http.StatusOK, jwks)
	}
}

// issueSession sets the refresh cookie and returns an access token with the
// account in the response body.
func (s *Server) issueSession(w http.ResponseWriter, a *Account, cookieName string) {
	refreshToken, err := s.refresh.Create(a.ID, a.Kind)
	if err != nil {
		log.Err(err).Msg("failed to create refresh token")
		writeJSONError(w, "Login gagal", false, http.StatusInternalServerError)
		return
	}
	accessToken, _, err := s.issueAccessToken(a)
	if err != nil {
		log.Err(err).Msg("failed to issue access token")
		writeJSONError(w, "Login gagal", false, http.StatusInternalServerError)
		return
	}

	updated := *a
	updated.LastLogin = token.NowTimeFunc()
	_ = s.accounts.Upsert(&updated)

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.refresh.expiry.Seconds()),
	})

	body := map[string]any{"accessToken": accessToken, "msg": "Login berhasil!"}
	if a.Kind == KindAdmin {
		body["admin"] = newAdminView(a)
	} else {
		body["user"] = newUserView(a)
	}
	log.Info().Str("account", a.ID).Str("kind", string(a.Kind)).Msg("login")
	writeJSON(w, http.StatusOK, body)
}

// endSession revokes the refresh cookie and the presented access token. It
// always succeeds.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, cookieName string) {
	if c, err := r.Cookie(cookieName); err == nil {
		s.refresh.Delete(c.Value)
	}
	if raw, ok := bearerToken(r); ok {
		if claims, err := s.issuer.Verify(raw); err == nil {
			s.issuer.Revoke(claims)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"msg": "Logout berhasil"})
}

func (s *Server) issueAccessToken(a *Account) (string, *token.Claims, error) {
	kind := token.KindUser
	if a.Kind == KindAdmin {
		kind = token.KindAdmin
	}
	return s.issuer.Issue(token.Subject{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		Role:  a.Role,
		Kind:  kind,
	})
}

func (s *Server) accountFromRefreshCookie(r *http.Request, cookieName string, kind Kind) (*Account, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	rt, ok := s.refresh.Get(c.Value, kind)
	if !ok {
		return nil, false
	}
	a, err := s.accounts.GetByID(rt.AccountID)
	if err != nil {
		return nil, false
	}
	return a, true
}

func (s *Server) accountFromBearer(w http.ResponseWriter, r *http.Request, kind string) (*Account, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		writeJSONError(w, "Token tidak ditemukan", true, http.StatusUnauthorized)
		return nil, false
	}
	claims, err := s.issuer.Verify(raw)
	if err != nil || claims.Kind != kind {
		writeJSONError(w, "Token tidak valid", true, http.StatusUnauthorized)
		return nil, false
	}
	a, err := s.accounts.GetByID(claims.Subject)
	if err != nil {
		writeJSONError(w, "Akun tidak ditemukan", false, http.StatusNotFound)
		return nil, false
	}
	return a, true
}

func (s *Server) sendOTP(a *Account) error {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return err
	}
	updated := *a
	updated.OTP = fmt.Sprintf("%06d", n.Int64())
	updated.OTPExpiry = token.NowTimeFunc().Add(otpTTL)
	log.Info().Str("email", a.Email).Msg("otp sent")
	return s.accounts.Upsert(&updated)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return raw, raw != ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes the backend's error shape: {"msg": ..., "needLogin": ...}
func writeJSONError(w http.ResponseWriter, msg string, needLogin bool, status int) {
	body := map[string]any{}
	if msg != "" {
		body["msg"] = msg
	}
	if needLogin {
		body["needLogin"] = true
	}
	writeJSON(w, status, body)
}
