package database

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"fretus-backend/internal/models"
	"fretus-backend/internal/services"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
)

const (
	kg = models.Kilogram
	g  = models.Gram
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

var (
	pgOnce      sync.Once
	pgContainer *postgres.PostgresContainer
	pgDSN       string
	pgErr       error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

// openTestDB connects to TEST_DATABASE_URL, or to a throwaway PostgreSQL
// container, and returns a migrated, empty database. Without either the
// test is skipped.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		pgOnce.Do(func() {
			ctx := context.Background()
			pgContainer, pgErr = postgres.Run(ctx, "postgres:16-alpine",
				postgres.WithDatabase("fretus"),
				postgres.WithUsername("fretus"),
				postgres.WithPassword("fretus"),
				postgres.BasicWaitStrategies(),
			)
			if pgErr == nil {
				pgDSN, pgErr = pgContainer.ConnectionString(ctx, "sslmode=disable")
			}
		})
		if pgErr != nil {
			t.Skipf("postgres unavailable: %v", pgErr)
		}
		dsn = pgDSN
	}

	db, err := Connect(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE users, intermunicipal_routes, price_tiers, settings CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

type fixture struct {
	ctx       context.Context
	db        *sqlx.DB
	store     *Store
	driverID  string
	companyID string
	routeID   string
	tierID    string
	profile   *models.DriverRouteProfile
}

// newFixture seeds a driver who runs the route every day with 10 packages
// and the given weight capacity.
func newFixture(t *testing.T, capacity models.Weight) *fixture {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()
	f := &fixture{
		ctx:       ctx,
		db:        db,
		store:     NewStore(db),
		driverID:  uuid.New().String(),
		companyID: uuid.New().String(),
		routeID:   uuid.New().String(),
		tierID:    uuid.New().String(),
	}

	for _, u := range []models.User{
		{ID: f.driverID, Email: "motorista@fretus.com.br", Password: "x", Name: "João", Role: models.RoleDriver},
		{ID: f.companyID, Email: "empresa@fretus.com.br", Password: "x", Name: "Empresa", Role: models.RoleCompany},
	} {
		u := u
		if err := CreateUser(ctx, db, &u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	if err := CreateRoute(ctx, db, &models.Route{
		ID: f.routeID, Name: "Campinas → São Paulo", OriginCity: "Campinas", DestinationCity: "São Paulo",
		DistanceKm: 95, AvgDurationMinutes: 90, Active: true,
	}); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if err := CreatePriceTier(ctx, db, &models.PriceTier{
		ID: f.tierID, Name: "Padrão", BaseFare: 25, PerKmRate: 1.2, StopFee: 5, Active: true,
	}); err != nil {
		t.Fatalf("CreatePriceTier: %v", err)
	}
	f.profile = &models.DriverRouteProfile{
		ID: uuid.New().String(), DriverID: f.driverID, RouteID: f.routeID,
		DaysOfWeek: pq.Int64Array{1, 2, 3, 4, 5, 6, 7}, DepartureTime: "07:00",
		CapacityPackages: 10, CapacityWeight: capacity, Active: true,
	}
	if err := CreateProfile(ctx, db, f.profile); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	return f
}

func (f *fixture) key() models.TripKey {
	return models.TripKey{DriverID: f.driverID, RouteID: f.routeID, Date: "2026-10-19"}
}

func (f *fixture) engine() *services.Engine {
	e := services.NewEngine(f.store, services.NopNotifier{}, zap.NewNop(), time.UTC)
	e.SetClock(func() time.Time { return monday })
	return e
}

func (f *fixture) request(t *testing.T, e *services.Engine, weight models.Weight) string {
	t.Helper()
	d, err := e.CreateDelivery(f.ctx, f.companyID, services.DeliveryInput{
		RouteID:        f.routeID,
		PriceTierID:    f.tierID,
		PickupAddress:  "Rua Barão de Jaguara, 1000, Campinas",
		DropoffAddress: "Av. Paulista, 1578, São Paulo",
		RecipientName:  "Maria Souza",
		RecipientPhone: "+5511988887777",
		PackageCount:   1,
		Weight:         weight,
	})
	if err != nil {
		t.Fatalf("CreateDelivery: %v", err)
	}
	return d.ID
}

func TestReserveLedgerIsConditional(t *testing.T) {
	f := newFixture(t, 5*kg)
	key := f.key()

	err := f.store.WithTx(f.ctx, func(tx services.Tx) error {
		if _, opened, err := tx.OpenLedger(f.ctx, key, f.profile, 1); err != nil || !opened {
			t.Fatalf("OpenLedger: opened=%v err=%v", opened, err)
		}
		if _, err := tx.ReserveLedger(f.ctx, key, models.Load{Packages: 1, Weight: 4500 * g}, 2); err != nil {
			t.Fatalf("reserve 4.5kg: %v", err)
		}
		if _, err := tx.ReserveLedger(f.ctx, key, models.Load{Packages: 1, Weight: 600 * g}, 3); !errors.Is(err, models.ErrCapacityExceeded) {
			t.Fatalf("reserve past capacity: err = %v, want ErrCapacityExceeded", err)
		}
		entry, err := tx.ReserveLedger(f.ctx, key, models.Load{Packages: 1, Weight: 500 * g}, 4)
		if err != nil {
			t.Fatalf("reserve exact fit: %v", err)
		}
		if entry.AcceptedWeight != 5*kg || entry.AcceptedPackages != 2 || entry.AcceptedDeliveryCount != 2 {
			t.Errorf("entry = %+v", entry)
		}

		entry, err = tx.ReleaseLedger(f.ctx, key, models.Load{Packages: 1, Weight: 500 * g}, 5)
		if err != nil {
			t.Fatalf("release: %v", err)
		}
		if entry.AcceptedWeight != 4500*g || entry.AcceptedDeliveryCount != 1 {
			t.Errorf("after release = %+v", entry)
		}
		if _, err := tx.ReleaseLedger(f.ctx, key, models.Load{Packages: 1, Weight: 5 * kg}, 6); err == nil {
			t.Error("release below zero succeeded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	entry, err := GetLedgerEntry(f.ctx, f.db, key)
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if entry.AcceptedWeight != 4500*g || entry.TotalCapacityWeight != 5*kg {
		t.Errorf("committed entry = %+v", entry)
	}
}

func TestLedgerCheckConstraintRejectsOverflow(t *testing.T) {
	f := newFixture(t, 5*kg)
	key := f.key()
	if err := f.store.WithTx(f.ctx, func(tx services.Tx) error {
		_, _, err := tx.OpenLedger(f.ctx, key, f.profile, 1)
		return err
	}); err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}

	_, err := f.db.Exec(`UPDATE capacity_ledger SET accepted_weight_g = total_capacity_weight_g + 1`)
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23514" {
		t.Fatalf("err = %v, want check_violation", err)
	}
}

func TestOpenLedgerConcurrentFirstOfDay(t *testing.T) {
	f := newFixture(t, 50*kg)
	const workers = 4

	var (
		wg     sync.WaitGroup
		start  = make(chan struct{})
		mu     sync.Mutex
		opened int
		ids    = map[string]bool{}
		errs   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.store.WithTx(f.ctx, func(tx services.Tx) error {
				entry, first, err := tx.OpenLedger(f.ctx, f.key(), f.profile, 1)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if first {
					opened++
				}
				ids[entry.ID] = true
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("OpenLedger errors: %v", errs)
	}
	if opened != 1 || len(ids) != 1 {
		t.Errorf("opened = %d, distinct ids = %d, want 1 and 1", opened, len(ids))
	}
	var rows int
	if err := f.db.Get(&rows, `SELECT COUNT(*) FROM capacity_ledger`); err != nil || rows != 1 {
		t.Errorf("ledger rows = %d (err %v), want 1", rows, err)
	}
}

func TestFindOrCreateTripConcurrent(t *testing.T) {
	f := newFixture(t, 50*kg)
	const workers = 4

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		mu    sync.Mutex
		ids   = map[string]bool{}
		errs  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.store.WithTx(f.ctx, func(tx services.Tx) error {
				trip, err := tx.FindOrCreateTrip(f.ctx, &models.Trip{
					ID: uuid.New().String(), DriverID: f.driverID, RouteID: f.routeID, ServiceDate: "2026-10-19",
					Status: models.TripStatusScheduled, CapacityPackages: 10, CapacityWeight: 50 * kg, CreatedAt: 1,
				})
				if err != nil {
					return err
				}
				mu.Lock()
				ids[trip.ID] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("FindOrCreateTrip errors: %v", errs)
	}
	if len(ids) != 1 {
		t.Errorf("distinct trip ids = %d, want 1", len(ids))
	}
	var rows int
	if err := f.db.Get(&rows, `SELECT COUNT(*) FROM trips`); err != nil || rows != 1 {
		t.Errorf("trip rows = %d (err %v), want 1", rows, err)
	}
}

func TestConcurrentAcceptRacesForLastFiveKilos(t *testing.T) {
	f := newFixture(t, 50*kg)
	e := f.engine()

	first, err := e.Accept(f.ctx, f.request(t, e, 45*kg), f.driverID)
	if err != nil {
		t.Fatalf("Accept 45kg: %v", err)
	}
	contenders := []string{f.request(t, e, 5*kg), f.request(t, e, 5*kg)}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(contenders))
	)
	for i, id := range contenders {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, errs[i] = e.Accept(f.ctx, id, f.driverID)
		}(i, id)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, models.ErrCapacityExceeded):
			d, gerr := GetDelivery(f.ctx, f.db, contenders[i])
			if gerr != nil {
				t.Fatalf("GetDelivery: %v", gerr)
			}
			if d.TripID != nil || d.Status != models.DeliveryStatusAwaitingDriver {
				t.Errorf("loser was modified: %+v", d)
			}
		default:
			t.Fatalf("Accept: unexpected error %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}

	entry, err := GetLedgerEntry(f.ctx, f.db, f.key())
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if entry.AcceptedWeight != 50*kg || entry.AcceptedDeliveryCount != 2 {
		t.Errorf("ledger = %+v, want 50kg over 2 deliveries", entry)
	}
	trip, err := getTrip(f.ctx, f.db, first.Trip.ID, false)
	if err != nil {
		t.Fatalf("getTrip: %v", err)
	}
	if trip.AcceptedWeight != 50*kg || trip.DeliveryCount != 2 {
		t.Errorf("trip = %+v, want 50kg over 2 deliveries", trip)
	}
}

func TestAcceptUnbindRestoresDecimalTotals(t *testing.T) {
	f := newFixture(t, 50*kg)
	e := f.engine()

	first, err := e.Accept(f.ctx, f.request(t, e, 100*g), f.driverID)
	if err != nil {
		t.Fatalf("Accept 0.1kg: %v", err)
	}
	before, err := GetLedgerEntry(f.ctx, f.db, f.key())
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}

	second := f.request(t, e, 200*g)
	if _, err := e.Accept(f.ctx, second, f.driverID); err != nil {
		t.Fatalf("Accept 0.2kg: %v", err)
	}
	if err := e.Unbind(f.ctx, second); err != nil {
		t.Fatalf("Unbind: %v", err)
	}

	after, err := GetLedgerEntry(f.ctx, f.db, f.key())
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if after.AcceptedWeight != before.AcceptedWeight || after.AcceptedPackages != before.AcceptedPackages ||
		after.AcceptedDeliveryCount != before.AcceptedDeliveryCount {
		t.Errorf("ledger = %+v, want totals of %+v", after, before)
	}
	trip, err := getTrip(f.ctx, f.db, first.Trip.ID, false)
	if err != nil {
		t.Fatalf("getTrip: %v", err)
	}
	if trip.AcceptedWeight != 100*g || trip.DeliveryCount != 1 {
		t.Errorf("trip = %+v, want 0.1kg over 1 delivery", trip)
	}
	d, err := GetDelivery(f.ctx, f.db, second)
	if err != nil {
		t.Fatalf("GetDelivery: %v", err)
	}
	if d.TripID != nil || d.Status != models.DeliveryStatusAwaitingDriver {
		t.Errorf("unbound request = %+v", d)
	}
}
