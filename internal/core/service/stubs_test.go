package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/auth"
	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories. They apply scopes the same way the Mongo
// repositories compile them.
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

// testHasher uses the lowest bcrypt cost to keep the suite fast.
var testHasher = auth.NewHasher(auth.HasherConfig{Cost: 4})

type stubUserRepo struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*domain.User
	deleteErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[int64]*domain.User)}
}

func (r *stubUserRepo) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) List(_ context.Context, scope policy.Scope) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byID {
		if scope.MatchUser(*u) {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	clone := *user
	clone.ID = r.nextID
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.byID {
		if u.ID != user.ID && u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	clone := *user
	r.byID[user.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) ExistsWithRole(_ context.Context, role domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

// seed stores u with a hash of password and returns the stored copy.
func (r *stubUserRepo) seed(name, email, password string, role domain.Role) *domain.User {
	hash, err := testHasher.Hash(password)
	if err != nil {
		panic(err)
	}
	u, err := r.Create(context.Background(), &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		panic(err)
	}
	return u
}

type stubLocationRepo struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*domain.Location
	clearErr error
}

func newStubLocationRepo() *stubLocationRepo {
	return &stubLocationRepo{byID: make(map[int64]*domain.Location)}
}

func cloneLocation(l *domain.Location) *domain.Location {
	clone := *l
	if l.OwnerID != nil {
		owner := *l.OwnerID
		clone.OwnerID = &owner
	}
	return &clone
}

func (r *stubLocationRepo) FindByID(_ context.Context, id int64) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	return cloneLocation(l), nil
}

func (r *stubLocationRepo) List(_ context.Context, scope policy.Scope) ([]*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Location
	for _, l := range r.byID {
		if scope.MatchLocation(*l) {
			out = append(out, cloneLocation(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubLocationRepo) Create(_ context.Context, loc *domain.Location) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	stored := cloneLocation(loc)
	stored.ID = r.nextID
	r.byID[stored.ID] = stored
	return cloneLocation(stored), nil
}

func (r *stubLocationRepo) Update(_ context.Context, loc *domain.Location) (*domain.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[loc.ID]; !ok {
		return nil, domain.ErrLocationNotFound
	}
	r.byID[loc.ID] = cloneLocation(loc)
	return cloneLocation(loc), nil
}

func (r *stubLocationRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrLocationNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubLocationRepo) CountByOwner(_ context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.byID {
		if l.OwnedBy(ownerID) {
			n++
		}
	}
	return n, nil
}

func (r *stubLocationRepo) ClearOwner(_ context.Context, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clearErr != nil {
		return r.clearErr
	}
	for _, l := range r.byID {
		if l.OwnedBy(ownerID) {
			l.OwnerID = nil
		}
	}
	return nil
}

type stubMeterRepo struct {
	mu        sync.Mutex
	byEAN     map[string]*domain.Meter
	locations *stubLocationRepo
	applyErr  error
}

func newStubMeterRepo(locations *stubLocationRepo) *stubMeterRepo {
	return &stubMeterRepo{byEAN: make(map[string]*domain.Meter), locations: locations}
}

func (r *stubMeterRepo) FindByEAN(_ context.Context, ean string) (*domain.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byEAN[ean]
	if !ok {
		return nil, domain.ErrMeterNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *stubMeterRepo) List(ctx context.Context, scope policy.Scope) ([]*domain.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Meter
	for _, m := range r.byEAN {
		loc, err := r.locations.FindByID(ctx, m.LocationID)
		if err != nil {
			if scope.Kind == policy.ScopeUnrestricted {
				clone := *m
				out = append(out, &clone)
			}
			continue
		}
		if scope.MatchMeter(*m, *loc) {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EAN < out[j].EAN })
	return out, nil
}

func (r *stubMeterRepo) Create(_ context.Context, m *domain.Meter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEAN[m.EAN]; ok {
		return domain.ErrMeterExists
	}
	clone := *m
	r.byEAN[m.EAN] = &clone
	return nil
}

func (r *stubMeterRepo) Apply(_ context.Context, ean string, change ports.MeterChange) (*domain.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return nil, r.applyErr
	}
	m, ok := r.byEAN[ean]
	if !ok {
		return nil, domain.ErrMeterNotFound
	}
	if change.Reading != nil {
		if !(*change.Reading > m.Reading) {
			return nil, domain.ErrReadingMustIncrease
		}
		m.Reading = *change.Reading
	}
	if change.Status != nil {
		m.Status = *change.Status
	}
	m.LastUpdate = change.LastUpdate
	clone := *m
	return &clone, nil
}

func (r *stubMeterRepo) Delete(_ context.Context, ean string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEAN[ean]; !ok {
		return domain.ErrMeterNotFound
	}
	delete(r.byEAN, ean)
	return nil
}

func (r *stubMeterRepo) CountByLocation(_ context.Context, locationID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.byEAN {
		if m.LocationID == locationID {
			n++
		}
	}
	return n, nil
}

type stubReadingRepo struct {
	mu        sync.Mutex
	records   []*domain.ReadingRecord
	appendErr error
}

func (r *stubReadingRepo) Append(_ context.Context, rec *domain.ReadingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	clone := *rec
	r.records = append(r.records, &clone)
	return nil
}

func (r *stubReadingRepo) ListByEAN(_ context.Context, ean string, limit int) ([]*domain.ReadingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ReadingRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].EAN == ean {
			clone := *r.records[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

// stubStore joins the user and meter stubs into a CredentialStore.
type stubStore struct {
	*stubUserRepo
	meters *stubMeterRepo
}

func (s stubStore) CountMetersForLocation(ctx context.Context, locationID int64) (int64, error) {
	return s.meters.CountByLocation(ctx, locationID)
}

// fixture wires every stub together.
type fixture struct {
	users     *stubUserRepo
	locations *stubLocationRepo
	meters    *stubMeterRepo
	readings  *stubReadingRepo

	admin    domain.Principal
	employee domain.Principal
	consumer domain.Principal
	other    domain.Principal
}

func newFixture() *fixture {
	f := &fixture{
		users:     newStubUserRepo(),
		locations: newStubLocationRepo(),
		readings:  &stubReadingRepo{},
	}
	f.meters = newStubMeterRepo(f.locations)

	f.admin = principalOf(f.users.seed("Ada", "admin@example.com", "admin-pass", domain.RoleAdmin))
	f.employee = principalOf(f.users.seed("Eve", "employee@example.com", "employee-pass", domain.RoleEmployee))
	f.consumer = principalOf(f.users.seed("Carl", "consumer@example.com", "consumer-pass", domain.RoleConsumer))
	f.other = principalOf(f.users.seed("Olga", "other@example.com", "other-pass", domain.RoleConsumer))
	return f
}

func (f *fixture) store() ports.CredentialStore {
	return stubStore{stubUserRepo: f.users, meters: f.meters}
}

// addLocation stores a location owned by owner (0 for none).
func (f *fixture) addLocation(name string, owner int64) *domain.Location {
	loc := &domain.Location{Name: name, Lat: 52.37, Lon: 4.89}
	if owner != 0 {
		loc.OwnerID = &owner
	}
	created, _ := f.locations.Create(context.Background(), loc)
	return created
}

func (f *fixture) addMeter(ean string, t domain.MeterType, reading float64, locationID int64) {
	_ = f.meters.Create(context.Background(), &domain.Meter{
		EAN:        ean,
		Status:     domain.MeterOpen,
		Type:       t,
		Reading:    reading,
		Unit:       domain.DeriveUnit(t),
		LocationID: locationID,
	})
}

func principalOf(u *domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

var errStoreDown = errors.New("store unavailable")
