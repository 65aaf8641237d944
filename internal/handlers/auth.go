package handlers

import (
	"net/http"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/services"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db  *gorm.DB
	svc *services.AuthService
}

func NewAuthHandler(db *gorm.DB, svc *services.AuthService) *AuthHandler {
	return &AuthHandler{db: db, svc: svc}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(fn func(*http.Request, credentials) (*services.Token, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in credentials
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Error(w, r, err)
			return
		}
		tok, err := fn(r, in)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, tok)
	}
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(func(r *http.Request, c credentials) (*services.Token, error) {
		return h.svc.LoginSuperAdmin(r.Context(), c.Email, c.Password)
	})(w, r)
}

func (h *AuthHandler) GaragisteLogin(w http.ResponseWriter, r *http.Request) {
	h.login(func(r *http.Request, c credentials) (*services.Token, error) {
		return h.svc.LoginGaragiste(r.Context(), c.Email, c.Password)
	})(w, r)
}

func (h *AuthHandler) ClientLogin(w http.ResponseWriter, r *http.Request) {
	h.login(func(r *http.Request, c credentials) (*services.Token, error) {
		return h.svc.LoginClient(r.Context(), c.Email, c.Password)
	})(w, r)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterClientInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	client, tok, err := h.svc.RegisterClient(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"client": client, "token": tok})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), in.Email); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Kind        auth.Kind `json:"kind"`
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	GarageID    *uint     `json:"garage_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	Permissions []string  `json:"permissions"`
	Account     any       `json:"account"`
}

// Me describes the authenticated principal and its account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	resp := meResponse{
		Kind:        p.Kind,
		ID:          p.ID,
		Email:       p.Email,
		GarageID:    p.GarageID,
		Role:        p.Role,
		Permissions: p.Permissions.Strings(),
	}

	var account any
	switch p.Kind {
	case auth.KindSuperAdmin:
		account = &models.User{}
	case auth.KindGaragiste:
		account = &models.Garagiste{}
	default:
		account = &models.Client{}
	}
	if err := h.db.WithContext(r.Context()).First(account, p.ID).Error; err == nil {
		resp.Account = account
	}
	httpx.JSON(w, http.StatusOK, resp)
}
