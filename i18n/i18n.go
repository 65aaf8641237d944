// Package i18n holds the fr/en message catalogue used for API error messages.
package i18n

import (
	"context"
	"strings"
)

type langKey struct{}

const defaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":                   "Requis",
		"invalid_email":              "Email invalide",
		"invalid_phone":              "Téléphone invalide",
		"must_be_positive":           "Doit être positif",
		"out_of_range":               "Hors limites",
		"invalid_value":              "Valeur invalide",
		"invalid_json":               "Corps JSON invalide",
		"invalid_id":                 "Identifiant invalide",
		"validation_failed":          "Données invalides",
		"unauthorized":               "Authentification requise",
		"invalid_token":              "Jeton invalide ou expiré",
		"invalid_credentials":        "Email ou mot de passe incorrect",
		"forbidden":                  "Accès refusé",
		"garage_inactive":            "Ce garage est désactivé",
		"account_inactive":           "Ce compte est désactivé",
		"account_not_verified":       "Adresse email non vérifiée",
		"super_admin_required":       "Réservé aux super-administrateurs",
		"garage_admin_required":      "Réservé aux administrateurs du garage",
		"role_required":              "Rôle insuffisant",
		"garage_mismatch":            "Ressource d'un autre garage",
		"permission_denied":          "Permission manquante",
		"garage_id_required":         "Le paramètre garageId est requis",
		"not_found":                  "Ressource introuvable",
		"role_not_found":             "Aucun rôle attribué",
		"conflict":                   "Conflit",
		"email_taken":                "Cet email est déjà utilisé",
		"phone_taken":                "Ce téléphone est déjà utilisé",
		"fiscal_id_taken":            "Ce matricule fiscal est déjà utilisé",
		"immatriculation_taken":      "Cette immatriculation existe déjà",
		"role_code_taken":            "Ce code de rôle existe déjà",
		"already_exists":             "Cet élément existe déjà",
		"last_super_admin":           "Impossible de rétrograder le dernier super-administrateur",
		"invalid_transition":         "Transition de statut impossible",
		"ordre_in_progress":          "Un ordre en cours ne peut pas être supprimé",
		"ordre_terminal":             "Cet ordre ne peut plus être modifié",
		"devis_not_editable":         "Ce devis ne peut plus être modifié",
		"facture_not_editable":       "Cette facture ne peut plus être modifiée",
		"reservation_not_editable":   "Cette réservation ne peut plus être modifiée",
		"cannot_delete_system_role":  "Un rôle système ne peut pas être supprimé",
		"cannot_delete_self":         "Impossible de supprimer son propre compte",
		"reset_token_expired":        "Lien de réinitialisation expiré",
		"permission_not_found":       "Permission introuvable",
		"permission_already_granted": "Permission déjà accordée",
		"grant_not_found":            "Permission individuelle introuvable",
		"numero_taken":               "Numéro déjà attribué, réessayez",
		"internal_error":             "Erreur interne du serveur",
	},
	"en": {
		"required":                   "Required",
		"invalid_email":              "Invalid email",
		"invalid_phone":              "Invalid phone",
		"must_be_positive":           "Must be positive",
		"out_of_range":               "Out of range",
		"invalid_value":              "Invalid value",
		"invalid_json":               "Invalid JSON body",
		"invalid_id":                 "Invalid identifier",
		"validation_failed":          "Validation failed",
		"unauthorized":               "Authentication required",
		"invalid_token":              "Invalid or expired token",
		"invalid_credentials":        "Invalid email or password",
		"forbidden":                  "Forbidden",
		"garage_inactive":            "This garage is deactivated",
		"account_inactive":           "This account is deactivated",
		"account_not_verified":       "Email address not verified",
		"super_admin_required":       "Super-admin only",
		"garage_admin_required":      "Garage admin only",
		"role_required":              "Insufficient role",
		"garage_mismatch":            "Resource belongs to another garage",
		"permission_denied":          "Missing permission",
		"garage_id_required":         "The garageId parameter is required",
		"not_found":                  "Not found",
		"role_not_found":             "No role assigned",
		"conflict":                   "Conflict",
		"email_taken":                "Email already in use",
		"phone_taken":                "Phone already in use",
		"fiscal_id_taken":            "Fiscal id already in use",
		"immatriculation_taken":      "Registration plate already exists",
		"role_code_taken":            "Role code already exists",
		"already_exists":             "Already exists",
		"last_super_admin":           "Cannot demote the last super-admin",
		"invalid_transition":         "Invalid status transition",
		"ordre_in_progress":          "A work order in progress cannot be deleted",
		"ordre_terminal":             "This work order can no longer be changed",
		"devis_not_editable":         "This quote can no longer be changed",
		"facture_not_editable":       "This invoice can no longer be changed",
		"reservation_not_editable":   "This reservation can no longer be changed",
		"cannot_delete_system_role":  "System roles cannot be deleted",
		"cannot_delete_self":         "You cannot delete your own account",
		"reset_token_expired":        "Reset link expired",
		"permission_not_found":       "Permission not found",
		"permission_already_granted": "Permission already granted",
		"grant_not_found":            "Individual grant not found",
		"numero_taken":               "Number already assigned, retry",
		"internal_error":             "Internal server error",
	},
}

// T translates code into lang. Unknown languages fall back to French,
// unknown codes to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[defaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks "en" or "fr" from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	if acceptLanguage == "" {
		return defaultLang
	}
	first := strings.SplitN(acceptLanguage, ",", 2)[0]
	first = strings.ToLower(strings.TrimSpace(strings.SplitN(first, ";", 2)[0]))
	if strings.HasPrefix(first, "en") {
		return "en"
	}
	return defaultLang
}

// WithLang stores the language in the context.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the request language, "fr" by default.
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return defaultLang
}
