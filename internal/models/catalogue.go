package models

// Resource types used in permission codes.
const (
	ResourceGarage      = "garage"
	ResourceGaragiste   = "garagiste"
	ResourceClient      = "client"
	ResourceVehicule    = "vehicule"
	ResourceService     = "service"
	ResourceAtelier     = "atelier"
	ResourceDevis       = "devis"
	ResourceFacture     = "facture"
	ResourceOrdre       = "ordre"
	ResourceReservation = "reservation"
	ResourceDashboard   = "dashboard"
)

// Resources lists every tenant resource type.
var Resources = []string{
	ResourceGarage,
	ResourceGaragiste,
	ResourceClient,
	ResourceVehicule,
	ResourceService,
	ResourceAtelier,
	ResourceDevis,
	ResourceFacture,
	ResourceOrdre,
	ResourceReservation,
	ResourceDashboard,
}

// RoleDefinition describes a seeded system role.
type RoleDefinition struct {
	Code        RoleCode
	Name        string
	Description string
	Permissions []string // "resource:action" format
}

// DefaultRoles are created by the seed when missing.
var DefaultRoles = []RoleDefinition{
	{
		Code:        RoleSuperAdmin,
		Name:        "Super Admin",
		Description: "Platform administrator with every permission",
		Permissions: []string{"*:*"},
	},
	{
		Code:        RoleGarageAdmin,
		Name:        "Admin Garage",
		Description: "Manages the garage, its staff and all its records",
		Permissions: []string{
			"garage:view", "garage:update",
			"garagiste:*", "client:*", "vehicule:*", "service:*", "atelier:*",
			"devis:*", "facture:*", "ordre:*", "reservation:*", "dashboard:view",
		},
	},
	{
		Code:        RoleEmployee,
		Name:        "Employé Garage",
		Description: "Front desk: clients, quotes, invoices and bookings",
		Permissions: []string{
			"garage:view",
			"client:*", "vehicule:*", "devis:*", "reservation:*",
			"facture:list", "facture:view", "facture:update",
			"ordre:list", "ordre:view", "ordre:create", "ordre:update",
			"service:list", "service:view", "atelier:list", "atelier:view",
			"dashboard:view",
		},
	},
	{
		Code:        RoleMechanic,
		Name:        "Mécanicien",
		Description: "Works on the orders assigned to the workshop",
		Permissions: []string{
			"garage:view",
			"ordre:list", "ordre:view", "ordre:update",
			"vehicule:list", "vehicule:view", "client:list", "client:view",
			"service:list", "service:view", "atelier:list", "atelier:view",
			"reservation:list", "reservation:view",
		},
	},
}
