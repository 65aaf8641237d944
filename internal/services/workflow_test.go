package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/garage-manager/internal/apperr"
	"github.com/diewo77/garage-manager/internal/db/dbtest"
	"github.com/diewo77/garage-manager/internal/models"
	"github.com/diewo77/garage-manager/internal/tenancy"
	"gorm.io/gorm"
)

type garageFixture struct {
	db       *gorm.DB
	garage   *models.Garage
	client   *models.Client
	vehicule *models.Vehicule
	service  *models.Service
	scope    tenancy.Scope
}

func newGarageFixture(t *testing.T) *garageFixture {
	t.Helper()
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "Atelier Central")
	c := dbtest.Client(t, gdb, g.ID, "client@example.com")
	v := dbtest.Vehicule(t, gdb, g.ID, c.ID, "123TU4567")
	svc := &models.Service{GarageID: g.ID, Name: "Vidange", Prix: 80, TauxTVA: 0.19, DureeEstimee: 1.5, IsActive: true}
	if err := gdb.Create(svc).Error; err != nil {
		t.Fatal(err)
	}
	return &garageFixture{db: gdb, garage: g, client: c, vehicule: v, service: svc, scope: tenancy.ForGarage(g.ID)}
}

func (f *garageFixture) devisInput() DevisInput {
	price, vat := 50.0, 0.19
	return DevisInput{
		ClientID:   f.client.ID,
		VehiculeID: &f.vehicule.ID,
		Items: []DevisItemInput{
			{ServiceID: &f.service.ID, Quantity: 2},
			{Description: "Filtre à huile", Quantity: 1, UnitPrice: &price, VATRate: &vat},
		},
	}
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func TestDevisCreateNumbersAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	svc := NewDevisService(f.db, &recordingNotifier{}, "http://front.test")
	svc.now = fixedClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	d, err := svc.Create(ctx, f.scope, f.devisInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Numero != "DEV-2026-0001" {
		t.Fatalf("numero = %s", d.Numero)
	}
	// 2 x 80 + 50 = 210 HT, 19% VAT.
	if d.TotalHT != 210 || d.TotalTVA != 39.9 || d.TotalTTC != 249.9 {
		t.Fatalf("totals = %v / %v / %v", d.TotalHT, d.TotalTVA, d.TotalTTC)
	}
	if len(d.Items) != 2 || d.Items[0].Description != "Vidange" || d.Items[0].UnitPrice != 80 {
		t.Fatalf("service item defaults not applied: %+v", d.Items)
	}
	if d.Status != models.DevisBrouillon {
		t.Fatalf("status = %s", d.Status)
	}

	d2, err := svc.Create(ctx, f.scope, f.devisInput())
	if err != nil || d2.Numero != "DEV-2026-0002" {
		t.Fatalf("second numero = %v %v", d2, err)
	}
	if err := svc.Delete(ctx, f.scope, d2.ID); err != nil {
		t.Fatal(err)
	}
	d3, err := svc.Create(ctx, f.scope, f.devisInput())
	if err != nil || d3.Numero != "DEV-2026-0003" {
		t.Fatalf("numbers are never reused, got %v %v", d3, err)
	}
}

func TestDevisRejectsForeignReferences(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	other := dbtest.Garage(t, f.db, "Autre")
	foreign := dbtest.Client(t, f.db, other.ID, "foreign@example.com")
	svc := NewDevisService(f.db, &recordingNotifier{}, "")

	in := f.devisInput()
	in.ClientID = foreign.ID
	_, err := svc.Create(ctx, f.scope, in)
	wantCode(t, err, apperr.KindValidation, "validation_failed")

	in = f.devisInput()
	in.Items = nil
	_, err = svc.Create(ctx, f.scope, in)
	wantCode(t, err, apperr.KindValidation, "validation_failed")

	in = f.devisInput()
	in.Items[1].VATRate = nil
	_, err = svc.Create(ctx, f.scope, in)
	wantCode(t, err, apperr.KindValidation, "validation_failed")
}

func TestDevisAcceptCreatesFactureAndOrdre(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	n := &recordingNotifier{}
	svc := NewDevisService(f.db, n, "http://front.test")
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	d, err := svc.Create(ctx, f.scope, f.devisInput())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, f.scope, d.ID); err != nil {
		t.Fatal(err)
	}
	if msg := n.last(t); msg.kind != "devis" || msg.to != "client@example.com" {
		t.Fatalf("unexpected message %+v", msg)
	}
	_, err = svc.Update(ctx, f.scope, d.ID, f.devisInput())
	wantCode(t, err, apperr.KindConflict, "devis_not_editable")

	res, err := svc.Accept(ctx, f.scope, d.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Devis.Status != models.DevisAccepte {
		t.Fatalf("devis status = %s", res.Devis.Status)
	}
	if res.Facture.Numero != "FAC-2026-0001" || res.Facture.TotalTTC != d.TotalTTC || res.Facture.Status != models.FactureImpayee {
		t.Fatalf("facture = %+v", res.Facture)
	}
	if !res.Facture.DueDate.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("due date = %v", res.Facture.DueDate)
	}
	if res.Ordre.Status != models.OrdreEnAttente || res.Ordre.HeuresEstimees != 3 {
		t.Fatalf("ordre = %+v", res.Ordre)
	}
	if res.Ordre.DevisID == nil || *res.Ordre.DevisID != d.ID {
		t.Fatal("ordre must reference the devis")
	}

	_, err = svc.Accept(ctx, f.scope, d.ID)
	wantCode(t, err, apperr.KindConflict, "devis_not_editable")
	_, err = svc.Refuse(ctx, f.scope, d.ID)
	wantCode(t, err, apperr.KindConflict, "devis_not_editable")
}

func TestDevisClientDecisions(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	svc := NewDevisService(f.db, &recordingNotifier{}, "")
	stranger := dbtest.Client(t, f.db, f.garage.ID, "stranger@example.com")

	d, err := svc.Create(ctx, f.scope, f.devisInput())
	if err != nil {
		t.Fatal(err)
	}
	list, err := svc.ListForClient(ctx, f.scope, f.client.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("drafts are hidden from clients, got %d %v", len(list), err)
	}
	_, err = svc.AcceptForClient(ctx, f.scope, f.client.ID, d.ID)
	wantCode(t, err, apperr.KindNotFound, "not_found")

	if _, err := svc.Send(ctx, f.scope, d.ID); err != nil {
		t.Fatal(err)
	}
	_, err = svc.RefuseForClient(ctx, f.scope, stranger.ID, d.ID)
	wantCode(t, err, apperr.KindNotFound, "not_found")

	refused, err := svc.RefuseForClient(ctx, f.scope, f.client.ID, d.ID)
	if err != nil || refused.Status != models.DevisRefuse {
		t.Fatalf("refuse: %+v %v", refused, err)
	}
	var n int64
	f.db.Model(&models.Facture{}).Count(&n)
	if n != 0 {
		t.Fatal("refusing must not create an invoice")
	}
}

func TestFacturePayAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	devis := NewDevisService(f.db, &recordingNotifier{}, "")
	factures := NewFactureService(f.db)

	var ids []uint
	for i := 0; i < 2; i++ {
		d, err := devis.Create(ctx, f.scope, f.devisInput())
		if err != nil {
			t.Fatal(err)
		}
		res, err := devis.Accept(ctx, f.scope, d.ID)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, res.Facture.ID)
	}

	paid, err := factures.Pay(ctx, f.scope, ids[0])
	if err != nil || paid.Status != models.FacturePayee || paid.PaidDate == nil {
		t.Fatalf("pay: %+v %v", paid, err)
	}
	_, err = factures.Cancel(ctx, f.scope, ids[0])
	wantCode(t, err, apperr.KindConflict, "facture_not_editable")

	cancelled, err := factures.Cancel(ctx, f.scope, ids[1])
	if err != nil || cancelled.Status != models.FactureAnnulee {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}

	other := dbtest.Garage(t, f.db, "Autre")
	_, err = factures.Get(ctx, tenancy.ForGarage(other.ID), ids[0])
	wantCode(t, err, apperr.KindNotFound, "not_found")

	list, err := factures.List(ctx, f.scope, FactureFilter{Status: models.FacturePayee})
	if err != nil || len(list) != 1 {
		t.Fatalf("paid invoices = %d %v", len(list), err)
	}
}

func TestOrdreTransitions(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")
	svc := NewOrdreService(gdb)
	scope := tenancy.ForGarage(g.ID)

	cases := []struct {
		from models.OrdreStatus
		op   string
		want models.OrdreStatus
		code string
	}{
		{models.OrdreEnAttente, "start", models.OrdreEnCours, ""},
		{models.OrdreEnAttente, "finish", "", "invalid_transition"},
		{models.OrdreEnAttente, "delete", models.OrdreSupprime, ""},
		{models.OrdreEnCours, "finish", models.OrdreTermine, ""},
		{models.OrdreEnCours, "start", "", "invalid_transition"},
		{models.OrdreEnCours, "delete", "", "ordre_in_progress"},
		{models.OrdreTermine, "start", "", "ordre_terminal"},
		{models.OrdreTermine, "delete", "", "ordre_terminal"},
		{models.OrdreSupprime, "start", "", "ordre_terminal"},
		{models.OrdreSupprime, "delete", "", "ordre_terminal"},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_%s", c.from, c.op), func(t *testing.T) {
			o := dbtest.Ordre(t, gdb, g.ID, c.from)
			var err error
			switch c.op {
			case "start":
				_, err = svc.Start(ctx, scope, o.ID)
			case "finish":
				_, err = svc.Finish(ctx, scope, o.ID)
			case "delete":
				err = svc.Delete(ctx, scope, o.ID)
			}
			if c.code != "" {
				wantCode(t, err, apperr.KindConflict, c.code)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var got models.OrdreTravail
			gdb.First(&got, o.ID)
			if got.Status != c.want {
				t.Fatalf("status = %s, want %s", got.Status, c.want)
			}
			if c.want == models.OrdreEnCours && got.DateDebut == nil {
				t.Fatal("start must set date_debut")
			}
			if c.want == models.OrdreTermine && got.DateFin == nil {
				t.Fatal("finish must set date_fin")
			}
		})
	}
}

func TestOrdreListExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")
	svc := NewOrdreService(gdb)
	scope := tenancy.ForGarage(g.ID)

	keep := dbtest.Ordre(t, gdb, g.ID, models.OrdreEnAttente)
	gone := dbtest.Ordre(t, gdb, g.ID, models.OrdreEnAttente)
	if err := svc.Delete(ctx, scope, gone.ID); err != nil {
		t.Fatal(err)
	}
	list, err := svc.List(ctx, scope, OrdreFilter{})
	if err != nil || len(list) != 1 || list[0].ID != keep.ID {
		t.Fatalf("default listing = %+v %v", list, err)
	}
	deleted, _ := svc.List(ctx, scope, OrdreFilter{Status: models.OrdreSupprime})
	if len(deleted) != 1 {
		t.Fatalf("supprime filter = %d", len(deleted))
	}

	stats, err := svc.Stats(ctx, scope)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.ByStatus[models.OrdreSupprime] != 1 || stats.ByStatus[models.OrdreTermine] != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestOrdreCreateChecksGarage(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	a := dbtest.Garage(t, gdb, "A")
	b := dbtest.Garage(t, gdb, "B")
	foreignAtelier := dbtest.Atelier(t, gdb, b.ID, "Carrosserie")
	meca := dbtest.Garagiste(t, gdb, &a.ID, "meca@example.com", models.RoleMechanic)
	svc := NewOrdreService(gdb)

	_, err := svc.Create(ctx, tenancy.ForGarage(a.ID), OrdreInput{Description: "Freins", AtelierID: &foreignAtelier.ID})
	wantCode(t, err, apperr.KindValidation, "validation_failed")

	o, err := svc.Create(ctx, tenancy.ForGarage(a.ID), OrdreInput{Description: "Freins", MecanicienID: &meca.ID, HeuresEstimees: 1})
	if err != nil || o.Mecanicien == nil || o.Mecanicien.ID != meca.ID {
		t.Fatalf("create: %+v %v", o, err)
	}
}

func TestOrdreCalendar(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.Open(t)
	g := dbtest.Garage(t, gdb, "A")
	atelier := dbtest.Atelier(t, gdb, g.ID, "Mécanique")
	svc := NewOrdreService(gdb)
	scope := tenancy.ForGarage(g.ID)

	day1 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	plan := func(at time.Time, hours float64, atelierID *uint, status models.OrdreStatus) {
		o := &models.OrdreTravail{GarageID: g.ID, Description: "x", Status: status, DatePrevue: &at, HeuresEstimees: hours, AtelierID: atelierID}
		if err := gdb.Create(o).Error; err != nil {
			t.Fatal(err)
		}
	}
	plan(day1, 2, &atelier.ID, models.OrdreEnAttente)
	plan(day1.Add(3*time.Hour), 1.5, &atelier.ID, models.OrdreEnCours)
	plan(day1, 4, &atelier.ID, models.OrdreSupprime)
	plan(day1, 1, nil, models.OrdreEnAttente)
	plan(day2, 3, &atelier.ID, models.OrdreTermine)
	plan(day2.AddDate(0, 0, 5), 8, &atelier.ID, models.OrdreEnAttente)

	days, err := svc.Calendar(ctx, scope, day1, day2)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0].Date != "2026-06-01" || days[1].Date != "2026-06-02" {
		t.Fatalf("days = %+v", days)
	}
	first := days[0].Ateliers
	if len(first) != 2 || first[0].AtelierID != 0 || first[0].Heures != 1 {
		t.Fatalf("unassigned load = %+v", first)
	}
	if first[1].AtelierID != atelier.ID || first[1].Heures != 3.5 || first[1].Ordres != 2 || first[1].Capacite != 16 {
		t.Fatalf("atelier load = %+v", first[1])
	}
	if days[1].Ateliers[0].Heures != 3 {
		t.Fatalf("day 2 = %+v", days[1])
	}

	_, err = svc.Calendar(ctx, scope, day2, day1)
	wantCode(t, err, apperr.KindValidation, "validation_failed")
}

func TestReservationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	svc := NewReservationService(f.db)
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	_, err := svc.CreateForClient(ctx, f.scope, f.client.ID, ReservationInput{DateReservation: now.Add(-time.Hour)})
	wantCode(t, err, apperr.KindValidation, "validation_failed")

	r, err := svc.CreateForClient(ctx, f.scope, f.client.ID, ReservationInput{
		DateReservation: now.Add(48 * time.Hour),
		VehiculeID:      &f.vehicule.ID,
		ServiceID:       &f.service.ID,
		Message:         "Bruit au freinage",
	})
	if err != nil || r.Status != models.ReservationEnAttente || r.ClientID != f.client.ID {
		t.Fatalf("create: %+v %v", r, err)
	}
	_, err = svc.Complete(ctx, f.scope, r.ID)
	wantCode(t, err, apperr.KindConflict, "reservation_not_editable")

	if r, err = svc.Confirm(ctx, f.scope, r.ID); err != nil || r.Status != models.ReservationConfirmee {
		t.Fatalf("confirm: %+v %v", r, err)
	}
	if r, err = svc.Complete(ctx, f.scope, r.ID); err != nil || r.Status != models.ReservationTerminee {
		t.Fatalf("complete: %+v %v", r, err)
	}
	_, err = svc.Cancel(ctx, f.scope, r.ID)
	wantCode(t, err, apperr.KindConflict, "reservation_not_editable")

	mine, err := svc.List(ctx, f.scope, ReservationFilter{ClientID: f.client.ID})
	if err != nil || len(mine) != 1 {
		t.Fatalf("client reservations = %d %v", len(mine), err)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newGarageFixture(t)
	devis := NewDevisService(f.db, &recordingNotifier{}, "")
	factures := NewFactureService(f.db)
	dash := NewDashboardService(f.db)

	d, err := devis.Create(ctx, f.scope, f.devisInput())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := devis.Create(ctx, f.scope, f.devisInput()); err != nil {
		t.Fatal(err)
	}
	res, err := devis.Accept(ctx, f.scope, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := factures.Pay(ctx, f.scope, res.Facture.ID); err != nil {
		t.Fatal(err)
	}

	stats, err := dash.Stats(ctx, f.scope)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Clients != 1 || stats.Vehicules != 1 || stats.DevisEnAttente != 1 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.ChiffreAffaires != d.TotalTTC || stats.FacturesImpayees != 0 {
		t.Fatalf("revenue = %+v", stats)
	}
	if stats.Ordres.Total != 1 || stats.Ordres.ByStatus[models.OrdreEnAttente] != 1 {
		t.Fatalf("ordres = %+v", stats.Ordres)
	}

	other := dbtest.Garage(t, f.db, "Vide")
	empty, err := dash.Stats(ctx, tenancy.ForGarage(other.ID))
	if err != nil || empty.Clients != 0 || empty.ChiffreAffaires != 0 {
		t.Fatalf("other garage = %+v %v", empty, err)
	}
}
