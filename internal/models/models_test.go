package models

import "testing"

func TestDevis_ComputeTotals(t *testing.T) {
	d := &Devis{Items: []DevisItem{
		{Description: "Vidange", Quantity: 1, UnitPrice: 80, VATRate: 0.20},
		{Description: "Filtre", Quantity: 2, UnitPrice: 12.5, VATRate: 0.20},
		{Description: "Main d'oeuvre", Quantity: 1.5, UnitPrice: 50, VATRate: 0.10},
	}}
	d.ComputeTotals()
	if d.TotalHT != 180 {
		t.Errorf("TotalHT = %f, want 180", d.TotalHT)
	}
	if d.TotalTVA != 28.5 {
		t.Errorf("TotalTVA = %f, want 28.5", d.TotalTVA)
	}
	if d.TotalTTC != 208.5 {
		t.Errorf("TotalTTC = %f, want 208.5", d.TotalTTC)
	}
}

func TestDevis_Status(t *testing.T) {
	tests := []struct {
		status    DevisStatus
		canEdit   bool
		canDecide bool
	}{
		{DevisBrouillon, true, true},
		{DevisEnvoye, false, true},
		{DevisAccepte, false, false},
		{DevisRefuse, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			d := &Devis{Status: tt.status}
			if d.CanEdit() != tt.canEdit {
				t.Errorf("CanEdit() = %v, want %v", d.CanEdit(), tt.canEdit)
			}
			if d.CanDecide() != tt.canDecide {
				t.Errorf("CanDecide() = %v, want %v", d.CanDecide(), tt.canDecide)
			}
		})
	}
}

func TestOrdreTravail_CanTransition(t *testing.T) {
	tests := []struct {
		from OrdreStatus
		to   OrdreStatus
		want bool
	}{
		{OrdreEnAttente, OrdreEnCours, true},
		{OrdreEnAttente, OrdreSupprime, true},
		{OrdreEnAttente, OrdreTermine, false},
		{OrdreEnCours, OrdreTermine, true},
		{OrdreEnCours, OrdreSupprime, false},
		{OrdreEnCours, OrdreEnCours, false},
		{OrdreTermine, OrdreEnCours, false},
		{OrdreTermine, OrdreSupprime, false},
		{OrdreSupprime, OrdreEnAttente, false},
		{OrdreSupprime, OrdreEnCours, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := &OrdreTravail{Status: tt.from}
			if got := o.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrdreStatus_IsTerminal(t *testing.T) {
	for _, s := range OrdreStatuses {
		want := s == OrdreTermine || s == OrdreSupprime
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v", s, s.IsTerminal())
		}
	}
}

func TestReservation_CanTransition(t *testing.T) {
	r := &Reservation{Status: ReservationEnAttente}
	if !r.CanTransition(ReservationConfirmee) || !r.CanTransition(ReservationAnnulee) {
		t.Error("pending reservation should be confirmable and cancellable")
	}
	if r.CanTransition(ReservationTerminee) {
		t.Error("pending reservation cannot complete")
	}
	r.Status = ReservationAnnulee
	if r.CanTransition(ReservationConfirmee) {
		t.Error("cancelled reservation is final")
	}
}

func TestRoleCode_Valid(t *testing.T) {
	for _, c := range RoleCodes {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if RoleCode("admin").Valid() {
		t.Error("admin is not a role kind")
	}
}

func TestNormalizeImmatriculation(t *testing.T) {
	if got := NormalizeImmatriculation(" ab-123-cd "); got != "AB123CD" {
		t.Errorf("NormalizeImmatriculation() = %q", got)
	}
}

func TestClient_Helpers(t *testing.T) {
	c := &Client{FirstName: "Ali", GarageID: 3}
	if c.FullName() != "Ali" || c.EmailValue() != "" {
		t.Errorf("unexpected helpers: %q %q", c.FullName(), c.EmailValue())
	}
	var tenanted Tenanted = c
	tenanted.SetGarageID(9)
	if c.GetGarageID() != 9 {
		t.Errorf("GetGarageID() = %d, want 9", c.GetGarageID())
	}
}

func TestAtelier_CapaciteJour(t *testing.T) {
	a := &Atelier{Capacite: 3, HeuresJour: 8}
	if a.CapaciteJour() != 24 {
		t.Errorf("CapaciteJour() = %f, want 24", a.CapaciteJour())
	}
}
