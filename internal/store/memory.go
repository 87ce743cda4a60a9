package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"rental-service/internal/models"
)

// MemoryStore is an in-process Repository. Transactions are serialized and
// work on a copy of the state that replaces the live state on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	tx    bool
	now   func() time.Time
}

var _ Repository = (*MemoryStore)(nil)

type memState struct {
	nextID map[string]int64

	customers        map[int64]models.Customer
	genres           map[int64]models.Genre
	medias           map[int64]models.Media
	mediaGenres      map[int64][]int64
	units            map[int64]models.Unit
	negotiations     map[int64]models.Negotiation
	negotiationUnits map[int64][]int64
	events           map[string]models.NegotiationHistoryEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			nextID:           map[string]int64{},
			customers:        map[int64]models.Customer{},
			genres:           map[int64]models.Genre{},
			medias:           map[int64]models.Media{},
			mediaGenres:      map[int64][]int64{},
			units:            map[int64]models.Unit{},
			negotiations:     map[int64]models.Negotiation{},
			negotiationUnits: map[int64][]int64{},
			events:           map[string]models.NegotiationHistoryEntry{},
		},
		now: time.Now,
	}
}

// Link slices are replaced, never mutated in place, so copying the maps is enough.
func (st *memState) clone() *memState {
	cp := func(m map[int64][]int64) map[int64][]int64 {
		out := make(map[int64][]int64, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	next := make(map[string]int64, len(st.nextID))
	for k, v := range st.nextID {
		next[k] = v
	}
	events := make(map[string]models.NegotiationHistoryEntry, len(st.events))
	for k, v := range st.events {
		events[k] = v
	}
	return &memState{
		nextID:           next,
		customers:        cloneMap(st.customers),
		genres:           cloneMap(st.genres),
		medias:           cloneMap(st.medias),
		mediaGenres:      cp(st.mediaGenres),
		units:            cloneMap(st.units),
		negotiations:     cloneMap(st.negotiations),
		negotiationUnits: cp(st.negotiationUnits),
		events:           events,
	}
}

func (st *memState) id(table string) int64 {
	st.nextID[table]++
	return st.nextID[table]
}

func cloneMap[T any](m map[int64]T) map[int64]T {
	out := make(map[int64]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedValues returns the values of m ordered by key
func sortedValues[T any](m map[int64]T) []T {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func visible[T models.Archivable](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !item.IsArchived() {
			out = append(out, item)
		}
	}
	return out
}

func page[T any](items []T, p models.ListParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit >= 0 && p.Limit < end-p.Offset {
		end = p.Offset + p.Limit
	}
	return slices.Clone(items[p.Offset:end])
}

func (s *MemoryStore) lock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx runs fn against a private copy of the state
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if s.tx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := &MemoryStore{state: s.state.clone(), tx: true, now: s.now}
	if err := fn(view); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = view.state
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Archive soft deletes a visible record of e
func (s *MemoryStore) Archive(ctx context.Context, e Entity, id int64) error {
	if !e.Archivable {
		return ErrNotArchivable
	}
	defer s.lock()()
	now := s.now()

	switch e.Table {
	case Customers.Table:
		return archiveIn(s.state.customers, id, func(c *models.Customer) { c.Archived, c.UpdatedAt = true, now })
	case Medias.Table:
		return archiveIn(s.state.medias, id, func(m *models.Media) { m.Archived, m.UpdatedAt = true, now })
	case Units.Table:
		return archiveIn(s.state.units, id, func(u *models.Unit) { u.Archived, u.UpdatedAt = true, now })
	case Negotiations.Table:
		return archiveIn(s.state.negotiations, id, func(n *models.Negotiation) { n.Archived, n.UpdatedAt = true, now })
	}
	return ErrNotArchivable
}

func archiveIn[T models.Archivable](m map[int64]T, id int64, set func(*T)) error {
	item, ok := m[id]
	if !ok || item.IsArchived() {
		return ErrNotFound
	}
	set(&item)
	m[id] = item
	return nil
}

// Customers

func (s *MemoryStore) ListCustomers(ctx context.Context, p models.ListParams) ([]models.Customer, int64, error) {
	defer s.lock()()
	all := visible(sortedValues(s.state.customers))
	return page(all, p), int64(len(all)), nil
}

func (s *MemoryStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	defer s.lock()()
	c, ok := s.state.customers[id]
	if !ok || c.Archived {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) emailTaken(email string, exceptID int64) bool {
	for id, c := range s.state.customers {
		if id != exceptID && c.Email == email {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	defer s.lock()()
	if s.emailTaken(c.Email, 0) {
		return uniqueViolation("customers_email_key")
	}

	now := s.now()
	c.ID = s.state.id(Customers.Table)
	c.Archived = false
	c.CreatedAt, c.UpdatedAt = now, now
	s.state.customers[c.ID] = *c
	return nil
}

func (s *MemoryStore) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	defer s.lock()()
	current, ok := s.state.customers[c.ID]
	if !ok || current.Archived {
		return ErrNotFound
	}
	if s.emailTaken(c.Email, c.ID) {
		return uniqueViolation("customers_email_key")
	}

	current.FirstName, current.LastName, current.Email = c.FirstName, c.LastName, c.Email
	current.UpdatedAt = s.now()
	s.state.customers[c.ID] = current
	*c = current
	return nil
}

// Genres

func (s *MemoryStore) ListGenres(ctx context.Context, p models.ListParams) ([]models.Genre, int64, error) {
	defer s.lock()()
	all := sortedValues(s.state.genres)
	return page(all, p), int64(len(all)), nil
}

func (s *MemoryStore) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	defer s.lock()()
	g, ok := s.state.genres[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) genreTitleTaken(title string, exceptID int64) bool {
	for id, g := range s.state.genres {
		if id != exceptID && g.Title == title {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateGenre(ctx context.Context, g *models.Genre) error {
	defer s.lock()()
	if s.genreTitleTaken(g.Title, 0) {
		return uniqueViolation("genres_title_key")
	}

	now := s.now()
	g.ID = s.state.id(Genres.Table)
	g.CreatedAt, g.UpdatedAt = now, now
	s.state.genres[g.ID] = *g
	return nil
}

func (s *MemoryStore) UpdateGenre(ctx context.Context, g *models.Genre) error {
	defer s.lock()()
	current, ok := s.state.genres[g.ID]
	if !ok {
		return ErrNotFound
	}
	if s.genreTitleTaken(g.Title, g.ID) {
		return uniqueViolation("genres_title_key")
	}

	current.Title = g.Title
	current.UpdatedAt = s.now()
	s.state.genres[g.ID] = current
	*g = current
	return nil
}

func (s *MemoryStore) DeleteGenre(ctx context.Context, id int64) error {
	defer s.lock()()
	if _, ok := s.state.genres[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.genres, id)
	for mediaID, genreIDs := range s.state.mediaGenres {
		s.state.mediaGenres[mediaID] = slices.DeleteFunc(slices.Clone(genreIDs), func(g int64) bool { return g == id })
	}
	return nil
}

// Medias

func (s *MemoryStore) withGenres(m models.Media) models.Media {
	m.Genres = []models.Genre{}
	for _, id := range s.state.mediaGenres[m.ID] {
		if g, ok := s.state.genres[id]; ok {
			m.Genres = append(m.Genres, g)
		}
	}
	sort.Slice(m.Genres, func(i, j int) bool { return m.Genres[i].ID < m.Genres[j].ID })
	return m
}

func (s *MemoryStore) withUnits(m models.Media) models.Media {
	m.Units = []models.Unit{}
	for _, u := range sortedValues(s.state.units) {
		if u.MediaID == m.ID && !u.Archived {
			m.Units = append(m.Units, u)
		}
	}
	return m
}

func (s *MemoryStore) ListMedias(ctx context.Context, p models.ListParams) ([]models.Media, int64, error) {
	defer s.lock()()
	all := visible(sortedValues(s.state.medias))
	out := page(all, p)
	for i := range out {
		out[i] = s.withGenres(out[i])
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) GetMedia(ctx context.Context, id int64) (*models.Media, error) {
	defer s.lock()()
	m, ok := s.state.medias[id]
	if !ok || m.Archived {
		return nil, ErrNotFound
	}
	m = s.withGenres(m)
	return &m, nil
}

func (s *MemoryStore) mediaTaken(title string, mediaType models.MediaType, exceptID int64) bool {
	for id, m := range s.state.medias {
		if id != exceptID && m.Title == title && m.MediaType == mediaType {
			return true
		}
	}
	return false
}

func (s *MemoryStore) checkGenres(genreIDs []int64) error {
	for _, id := range genreIDs {
		if _, ok := s.state.genres[id]; !ok {
			return foreignKeyViolation("media_genres_genre_id_fkey")
		}
	}
	return nil
}

func (s *MemoryStore) CreateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error {
	defer s.lock()()
	if s.mediaTaken(m.Title, m.MediaType, 0) {
		return uniqueViolation("medias_title_media_type_key")
	}
	if err := s.checkGenres(genreIDs); err != nil {
		return err
	}

	now := s.now()
	m.ID = s.state.id(Medias.Table)
	m.Archived = false
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	stored.Genres, stored.Units = nil, nil
	s.state.medias[m.ID] = stored
	s.state.mediaGenres[m.ID] = UniqueIDs(genreIDs)
	return nil
}

func (s *MemoryStore) UpdateMedia(ctx context.Context, m *models.Media, genreIDs []int64) error {
	defer s.lock()()
	current, ok := s.state.medias[m.ID]
	if !ok || current.Archived {
		return ErrNotFound
	}
	if s.mediaTaken(m.Title, m.MediaType, m.ID) {
		return uniqueViolation("medias_title_media_type_key")
	}
	if err := s.checkGenres(genreIDs); err != nil {
		return err
	}

	current.Title, current.Subtitle, current.AuthorName = m.Title, m.Subtitle, m.AuthorName
	current.Description, current.ReleaseYear, current.MediaType = m.Description, m.ReleaseYear, m.MediaType
	current.UpdatedAt = s.now()
	s.state.medias[m.ID] = current
	if genreIDs != nil {
		s.state.mediaGenres[m.ID] = UniqueIDs(genreIDs)
	}
	*m = current
	return nil
}

func (s *MemoryStore) SearchMedias(ctx context.Context, p models.SearchParams) ([]models.Media, int64, error) {
	defer s.lock()()
	title := strings.ToLower(p.Title)

	var matched []models.Media
	for _, m := range visible(sortedValues(s.state.medias)) {
		if title != "" && !strings.Contains(strings.ToLower(m.Title), title) {
			continue
		}
		if p.MediaType != "" && m.MediaType != p.MediaType {
			continue
		}
		m = s.withUnits(m)
		if p.AvailableFor != "" && !allOffer(m.Units, p.AvailableFor) {
			continue
		}
		matched = append(matched, s.withGenres(m))
	}
	return page(matched, p.ListParams), int64(len(matched)), nil
}

func allOffer(units []models.Unit, t models.NegotiationType) bool {
	for _, u := range units {
		if !u.Offers(t) {
			return false
		}
	}
	return true
}

// Units

func (s *MemoryStore) ListUnits(ctx context.Context, mediaID int64, p models.ListParams) ([]models.Unit, int64, error) {
	defer s.lock()()
	var all []models.Unit
	for _, u := range visible(sortedValues(s.state.units)) {
		if u.MediaID == mediaID {
			all = append(all, u)
		}
	}
	return page(all, p), int64(len(all)), nil
}

func (s *MemoryStore) GetUnit(ctx context.Context, mediaID, id int64) (*models.Unit, error) {
	defer s.lock()()
	u, ok := s.state.units[id]
	if !ok || u.Archived || u.MediaID != mediaID {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUnitsByIDs(ctx context.Context, ids []int64) ([]models.Unit, error) {
	defer s.lock()()
	units := []models.Unit{}
	for _, id := range UniqueIDs(ids) {
		if u, ok := s.state.units[id]; ok {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (s *MemoryStore) CreateUnit(ctx context.Context, u *models.Unit) error {
	defer s.lock()()
	if _, ok := s.state.medias[u.MediaID]; !ok {
		return foreignKeyViolation("units_media_id_fkey")
	}

	now := s.now()
	u.ID = s.state.id(Units.Table)
	u.Available = true
	u.Archived = false
	u.AvailableFor = slices.Clone(u.AvailableFor)
	if u.AvailableFor == nil {
		u.AvailableFor = []string{}
	}
	u.CreatedAt, u.UpdatedAt = now, now
	s.state.units[u.ID] = *u
	return nil
}

func (s *MemoryStore) UpdateUnit(ctx context.Context, u *models.Unit) error {
	defer s.lock()()
	current, ok := s.state.units[u.ID]
	if !ok || current.Archived || current.MediaID != u.MediaID {
		return ErrNotFound
	}

	current.AvailableFor = slices.Clone(u.AvailableFor)
	current.SalePrice, current.RentalPrice = u.SalePrice, u.RentalPrice
	current.UpdatedAt = s.now()
	s.state.units[u.ID] = current
	*u = current
	return nil
}

func (s *MemoryStore) ReserveUnit(ctx context.Context, id int64) (bool, error) {
	defer s.lock()()
	u, ok := s.state.units[id]
	if !ok || !u.Available || u.Archived {
		return false, nil
	}
	u.Available = false
	u.UpdatedAt = s.now()
	s.state.units[id] = u
	return true, nil
}

func (s *MemoryStore) ReleaseUnit(ctx context.Context, id int64) error {
	defer s.lock()()
	u, ok := s.state.units[id]
	if !ok {
		return ErrNotFound
	}
	u.Available = true
	u.UpdatedAt = s.now()
	s.state.units[id] = u
	return nil
}

// Negotiations

func (s *MemoryStore) hydrate(n models.Negotiation) models.Negotiation {
	if c, ok := s.state.customers[n.CustomerID]; ok {
		n.Customer = &c
	}
	n.Units = []models.Unit{}
	for _, id := range s.state.negotiationUnits[n.ID] {
		if u, ok := s.state.units[id]; ok {
			n.Units = append(n.Units, u)
		}
	}
	sort.Slice(n.Units, func(i, j int) bool { return n.Units[i].ID < n.Units[j].ID })
	return n
}

func (s *MemoryStore) ListNegotiations(ctx context.Context, p models.ListParams) ([]models.Negotiation, int64, error) {
	defer s.lock()()
	all := visible(sortedValues(s.state.negotiations))
	out := page(all, p)
	for i := range out {
		out[i] = s.hydrate(out[i])
	}
	return out, int64(len(all)), nil
}

func (s *MemoryStore) GetNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	defer s.lock()()
	n, ok := s.state.negotiations[id]
	if !ok || n.Archived {
		return nil, ErrNotFound
	}
	n = s.hydrate(n)
	return &n, nil
}

// LockNegotiation needs no extra locking: transactions already run one at a time.
func (s *MemoryStore) LockNegotiation(ctx context.Context, id int64) (*models.Negotiation, error) {
	return s.GetNegotiation(ctx, id)
}

func (s *MemoryStore) CreateNegotiation(ctx context.Context, n *models.Negotiation, unitIDs []int64) error {
	defer s.lock()()
	if _, ok := s.state.customers[n.CustomerID]; !ok {
		return foreignKeyViolation("negotiations_customer_id_fkey")
	}
	for _, id := range unitIDs {
		if _, ok := s.state.units[id]; !ok {
			return foreignKeyViolation("negotiation_units_unit_id_fkey")
		}
	}

	now := s.now()
	n.ID = s.state.id(Negotiations.Table)
	n.DeliveredAt = nil
	n.Archived = false
	n.CreatedAt, n.UpdatedAt = now, now
	stored := *n
	stored.Customer, stored.Units = nil, nil
	s.state.negotiations[n.ID] = stored
	s.state.negotiationUnits[n.ID] = UniqueIDs(unitIDs)
	return nil
}

func (s *MemoryStore) MarkNegotiationDelivered(ctx context.Context, id int64, at time.Time) error {
	defer s.lock()()
	n, ok := s.state.negotiations[id]
	if !ok || n.Archived || n.DeliveredAt != nil {
		return ErrNotFound
	}
	n.DeliveredAt = &at
	n.UpdatedAt = s.now()
	s.state.negotiations[id] = n
	return nil
}

func (s *MemoryStore) RecordNegotiationEvent(ctx context.Context, e *models.NegotiationHistoryEntry) (bool, error) {
	defer s.lock()()
	if _, ok := s.state.events[e.EventID]; ok {
		return false, nil
	}
	e.RecordedAt = s.now()
	stored := *e
	stored.UnitIDs = slices.Clone(e.UnitIDs)
	s.state.events[e.EventID] = stored
	return true, nil
}

func (s *MemoryStore) ListNegotiationEvents(ctx context.Context, negotiationID int64) ([]models.NegotiationHistoryEntry, error) {
	defer s.lock()()
	events := []models.NegotiationHistoryEntry{}
	for _, e := range s.state.events {
		if e.NegotiationID == negotiationID {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].EventID < events[j].EventID
	})
	return events, nil
}
