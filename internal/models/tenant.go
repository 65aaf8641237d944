package models

// Tenanted is implemented by every garage-scoped model.
type Tenanted interface {
	GetGarageID() uint
	SetGarageID(id uint)
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Permission{},
		&Role{},
		&Garage{},
		&Garagiste{},
		&GaragisteRole{},
		&GaragistePermission{},
		&Client{},
		&Vehicule{},
		&Service{},
		&Atelier{},
		&Devis{},
		&DevisItem{},
		&Facture{},
		&OrdreTravail{},
		&Reservation{},
	}
}
