package policy

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/garage-manager/auth"
	"github.com/diewo77/garage-manager/gate"
	"github.com/diewo77/garage-manager/httpx"
	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Authenticator turns a bearer token into the request principal.
type Authenticator struct {
	db     *gorm.DB
	issuer *auth.Issuer
	gate   *AuthGate
}

func NewAuthenticator(gdb *gorm.DB, issuer *auth.Issuer, ag *AuthGate) *Authenticator {
	return &Authenticator{db: gdb, issuer: issuer, gate: ag}
}

// Authenticate verifies the token and loads the principal from its stored
// record. The garage id always comes from the record, not the token.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	claims, err := a.issuer.Verify(token)
	if err != nil {
		return auth.Principal{}, apperr.Unauthorized("invalid_token")
	}
	id, _ := claims.SubjectID()

	switch claims.Kind {
	case auth.KindSuperAdmin:
		return a.superAdmin(ctx, id)
	case auth.KindGaragiste:
		return a.garagiste(ctx, id)
	case auth.KindClient:
		return a.client(ctx, id)
	}
	return auth.Principal{}, apperr.Unauthorized("invalid_token")
}

func notFoundAsUnauthorized(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthorized("invalid_token")
	}
	return db.Translate(err, "", op)
}

func (a *Authenticator) superAdmin(ctx context.Context, id uint) (auth.Principal, error) {
	var u models.User
	if err := a.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return auth.Principal{}, notFoundAsUnauthorized(err, "load user")
	}
	if !u.IsActive {
		return auth.Principal{}, apperr.Forbidden("account_inactive")
	}
	if !u.IsSuperAdmin {
		return auth.Principal{}, apperr.Forbidden("super_admin_required")
	}
	return auth.Principal{
		Kind:        auth.KindSuperAdmin,
		ID:          u.ID,
		Email:       u.Email,
		Role:        string(models.RoleSuperAdmin),
		Permissions: gate.NewPermissionSet(gate.PermissionSuperAdmin),
	}, nil
}

func (a *Authenticator) garagiste(ctx context.Context, id uint) (auth.Principal, error) {
	var g models.Garagiste
	if err := a.db.WithContext(ctx).Preload("Garage").First(&g, id).Error; err != nil {
		return auth.Principal{}, notFoundAsUnauthorized(err, "load garagiste")
	}
	if err := CheckGaragisteAccess(&g); err != nil {
		return auth.Principal{}, err
	}
	profile, err := a.gate.Profile(ctx, g.ID)
	if err != nil {
		return auth.Principal{}, apperr.Internal(err, "resolve permissions of garagiste %d", g.ID)
	}
	return auth.Principal{
		Kind:        auth.KindGaragiste,
		ID:          g.ID,
		Email:       g.Email,
		GarageID:    g.GarageID,
		Role:        profile.Name(),
		Permissions: profile.Permissions(),
	}, nil
}

// CheckGaragisteAccess rejects inactive or unverified staff and staff of a
// deactivated garage. g.Garage must be loaded.
func CheckGaragisteAccess(g *models.Garagiste) error {
	if !g.IsActive {
		return apperr.Forbidden("account_inactive")
	}
	if !g.IsVerified {
		return apperr.Forbidden("account_not_verified")
	}
	if g.GarageID != nil && (g.Garage == nil || !g.Garage.IsActive) {
		return apperr.Forbidden("garage_inactive")
	}
	return nil
}

func (a *Authenticator) client(ctx context.Context, id uint) (auth.Principal, error) {
	var c models.Client
	if err := a.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return auth.Principal{}, notFoundAsUnauthorized(err, "load client")
	}
	if !c.IsActive {
		return auth.Principal{}, apperr.Forbidden("account_inactive")
	}
	gid := c.GarageID
	return auth.Principal{
		Kind:     auth.KindClient,
		ID:       c.ID,
		Email:    c.EmailValue(),
		GarageID: &gid,
	}, nil
}

// Middleware requires a valid bearer token and stores the principal in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			httpx.Error(w, r, apperr.Unauthorized("unauthorized"))
			return
		}
		p, err := a.Authenticate(r.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindForbidden {
				logrus.WithFields(logrus.Fields{
					"request_id": httpx.RequestIDFromContext(r.Context()),
					"reason":     apperr.As(err).Code,
				}).Info("authenticated principal rejected")
			}
			httpx.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}
