package policy

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/diewo77/garage-manager/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// roleAliases maps normalised role names to their kind. Only whole names
// match, so "admin" alone resolves to nothing.
var roleAliases = map[string]models.RoleCode{
	"super admin":           models.RoleSuperAdmin,
	"superadmin":            models.RoleSuperAdmin,
	"super administrateur":  models.RoleSuperAdmin,
	"admin garage":          models.RoleGarageAdmin,
	"garage admin":          models.RoleGarageAdmin,
	"administrateur garage": models.RoleGarageAdmin,
	"employe":               models.RoleEmployee,
	"employe garage":        models.RoleEmployee,
	"employee":              models.RoleEmployee,
	"garage employee":       models.RoleEmployee,
	"mecanicien":            models.RoleMechanic,
	"mechanic":              models.RoleMechanic,
}

// NormalizeRoleName strips accents, lowercases and collapses separators.
func NormalizeRoleName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseRoleKind resolves a role code or display name to its kind.
func ParseRoleKind(name string) (models.RoleCode, bool) {
	n := NormalizeRoleName(name)
	if code := models.RoleCode(strings.ReplaceAll(n, " ", "_")); code.Valid() {
		return code, true
	}
	code, ok := roleAliases[n]
	return code, ok
}

var customRoleCode = regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`)

// RoleCodeFor resolves name to the code a role is stored under: a built-in
// kind or alias first, otherwise the normalised name as a custom code.
func RoleCodeFor(name string) (models.RoleCode, bool) {
	if code, ok := ParseRoleKind(name); ok {
		return code, true
	}
	code := strings.ReplaceAll(NormalizeRoleName(name), " ", "_")
	return models.RoleCode(code), customRoleCode.MatchString(code)
}
