package businessflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// txContext seeds an ambient transaction so flows never open a real one.
func txContext() context.Context {
	return context.WithValue(context.Background(), repository.TxContextKey, &gorm.DB{})
}

type fakeDemandRepo struct {
	demands      []*models.Demand
	saveErr      error
	updateErr    error
	listErr      error
	lastActivity map[uint]time.Time
	softDeleted  []uint
	nextID       uint
}

func newFakeDemandRepo(demands ...*models.Demand) *fakeDemandRepo {
	repo := &fakeDemandRepo{lastActivity: map[uint]time.Time{}, nextID: 1000}
	for _, d := range demands {
		if d.UUID == uuid.Nil {
			d.UUID = uuid.New()
		}
		repo.demands = append(repo.demands, d)
	}
	return repo
}

func (r *fakeDemandRepo) ByID(ctx context.Context, id uint) (*models.Demand, error) {
	for _, d := range r.demands {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDemandRepo) ByUUID(ctx context.Context, u string) (*models.Demand, error) {
	for _, d := range r.demands {
		if d.UUID.String() == u {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDemandRepo) ByFilter(ctx context.Context, filter models.DemandFilter, orderBy string, limit, offset int) ([]*models.Demand, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []*models.Demand{}
	for _, d := range r.demands {
		if filter.Category != nil && d.Category != *filter.Category {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, s := range filter.Statuses {
				if d.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *fakeDemandRepo) Save(ctx context.Context, demand *models.Demand) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if demand.ID == 0 {
		r.nextID++
		demand.ID = r.nextID
	}
	if demand.UUID == uuid.Nil {
		demand.UUID = uuid.New()
	}
	r.demands = append(r.demands, demand)
	return nil
}

func (r *fakeDemandRepo) SaveBatch(ctx context.Context, demands []*models.Demand) error {
	for _, d := range demands {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeDemandRepo) Count(ctx context.Context, filter models.DemandFilter) (int64, error) {
	demands, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(demands)), err
}

func (r *fakeDemandRepo) Exists(ctx context.Context, filter models.DemandFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeDemandRepo) ListActiveDemands(ctx context.Context, limit, offset int) ([]*models.Demand, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []*models.Demand{}
	for _, d := range r.demands {
		if d.Status.IsMatchable() {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDemandRepo) CountActiveDemands(ctx context.Context) (int64, error) {
	demands, err := r.ListActiveDemands(ctx, 0, 0)
	return int64(len(demands)), err
}

func (r *fakeDemandRepo) Update(ctx context.Context, demand models.Demand) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i, d := range r.demands {
		if d.ID == demand.ID {
			copied := demand
			r.demands[i] = &copied
			return nil
		}
	}
	return errors.New("demand not found")
}

func (r *fakeDemandRepo) UpdateLastActivity(ctx context.Context, demandID uint, at time.Time) error {
	r.lastActivity[demandID] = at
	return nil
}

func (r *fakeDemandRepo) SoftDelete(ctx context.Context, demandID uint) error {
	r.softDeleted = append(r.softDeleted, demandID)
	return nil
}

type fakeMatchRepo struct {
	matches     []*models.Match
	upsertErr   error
	upsertCalls int
	updateCalls int
	nextID      uint
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{nextID: 5000}
	for _, m := range matches {
		if m.UUID == uuid.Nil {
			m.UUID = uuid.New()
		}
		if m.IsActive == nil {
			m.IsActive = utils.ToPtr(true)
		}
		repo.matches = append(repo.matches, m)
	}
	return repo
}

func (r *fakeMatchRepo) ByID(ctx context.Context, id uint) (*models.Match, error) {
	for _, m := range r.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) ByUUID(ctx context.Context, u string) (*models.Match, error) {
	for _, m := range r.matches {
		if m.UUID.String() == u {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) ByFilter(ctx context.Context, filter models.MatchFilter, orderBy string, limit, offset int) ([]*models.Match, error) {
	out := []*models.Match{}
	for _, m := range r.matches {
		if filter.IsActive != nil && utils.IsTrue(m.IsActive) != *filter.IsActive {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeMatchRepo) Save(ctx context.Context, match *models.Match) error {
	if match.ID == 0 {
		r.nextID++
		match.ID = r.nextID
	}
	if match.UUID == uuid.Nil {
		match.UUID = uuid.New()
	}
	r.matches = append(r.matches, match)
	return nil
}

func (r *fakeMatchRepo) SaveBatch(ctx context.Context, matches []*models.Match) error {
	for _, m := range matches {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMatchRepo) Count(ctx context.Context, filter models.MatchFilter) (int64, error) {
	matches, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(matches)), err
}

func (r *fakeMatchRepo) Exists(ctx context.Context, filter models.MatchFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *fakeMatchRepo) ActiveByDemand(ctx context.Context, demandID uint) ([]*models.Match, error) {
	out := []*models.Match{}
	for _, m := range r.matches {
		if m.DemandID == demandID && utils.IsTrue(m.IsActive) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ActiveByKey(ctx context.Context, demandID uint, ref models.ListingRef) (*models.Match, error) {
	for _, m := range r.matches {
		if m.DemandID == demandID && m.ListingID == ref.ID && m.ListingType == ref.Type && utils.IsTrue(m.IsActive) {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) UpsertBatch(ctx context.Context, matches []*models.Match) error {
	r.upsertCalls++
	if r.upsertErr != nil {
		return r.upsertErr
	}
	for _, m := range matches {
		existing, _ := r.ActiveByKey(ctx, m.DemandID, m.ListingRef())
		if existing != nil {
			existing.Score = m.Score
			existing.Breakdown = m.Breakdown
			m.ID = existing.ID
			m.UUID = existing.UUID
			m.Status = existing.Status
			m.CreatedAt = existing.CreatedAt
			continue
		}
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMatchRepo) Update(ctx context.Context, match models.Match) error {
	r.updateCalls++
	for i, m := range r.matches {
		if m.ID == match.ID {
			copied := match
			r.matches[i] = &copied
			return nil
		}
	}
	return errors.New("match not found")
}

func (r *fakeMatchRepo) CountDistinctDemandsWithActiveMatch(ctx context.Context) (int64, error) {
	seen := map[uint]bool{}
	for _, m := range r.matches {
		if utils.IsTrue(m.IsActive) {
			seen[m.DemandID] = true
		}
	}
	return int64(len(seen)), nil
}

func (r *fakeMatchRepo) CountActiveWithMinScore(ctx context.Context, minScore float64) (int64, error) {
	var n int64
	for _, m := range r.matches {
		if utils.IsTrue(m.IsActive) && m.Score >= minScore {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) DeactivateByDemand(ctx context.Context, demandID uint) error {
	for _, m := range r.matches {
		if m.DemandID == demandID {
			m.IsActive = utils.ToPtr(false)
		}
	}
	return nil
}

type fakeActivityRepo struct {
	activities []*models.DemandActivity
	saveErr    error
}

func (r *fakeActivityRepo) ByID(ctx context.Context, id uint) (*models.DemandActivity, error) {
	return nil, nil
}

func (r *fakeActivityRepo) ByFilter(ctx context.Context, filter models.DemandActivityFilter, orderBy string, limit, offset int) ([]*models.DemandActivity, error) {
	return r.activities, nil
}

func (r *fakeActivityRepo) Save(ctx context.Context, activity *models.DemandActivity) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.activities = append(r.activities, activity)
	return nil
}

func (r *fakeActivityRepo) SaveBatch(ctx context.Context, activities []*models.DemandActivity) error {
	for _, a := range activities {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeActivityRepo) Count(ctx context.Context, filter models.DemandActivityFilter) (int64, error) {
	return int64(len(r.activities)), nil
}

func (r *fakeActivityRepo) Exists(ctx context.Context, filter models.DemandActivityFilter) (bool, error) {
	return len(r.activities) > 0, nil
}

func (r *fakeActivityRepo) ListByDemand(ctx context.Context, demandID uint, limit, offset int) ([]*models.DemandActivity, error) {
	out := []*models.DemandActivity{}
	for _, a := range r.activities {
		if a.DemandID == demandID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) byAction(action string) []*models.DemandActivity {
	out := []*models.DemandActivity{}
	for _, a := range r.activities {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

type fakeCustomerRepo struct {
	customers map[uint]*models.Customer
}

func newFakeCustomerRepo(customers ...*models.Customer) *fakeCustomerRepo {
	repo := &fakeCustomerRepo{customers: map[uint]*models.Customer{}}
	for _, c := range customers {
		repo.customers[c.ID] = c
	}
	return repo
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	return r.customers[id], nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, u string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.UUID.String() == u {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByMobile(ctx context.Context, mobile string) (*models.Customer, error) {
	for _, c := range r.customers {
		if c.Mobile == mobile {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	return nil, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, customer *models.Customer) error {
	r.customers[customer.ID] = customer
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, customers []*models.Customer) error {
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	return int64(len(r.customers)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	return len(r.customers) > 0, nil
}

type fakeStaffRepo struct {
	staff map[uint]*models.Staff
}

func newFakeStaffRepo(staff ...*models.Staff) *fakeStaffRepo {
	repo := &fakeStaffRepo{staff: map[uint]*models.Staff{}}
	for _, s := range staff {
		repo.staff[s.ID] = s
	}
	return repo
}

func (r *fakeStaffRepo) ByID(ctx context.Context, id uint) (*models.Staff, error) {
	return r.staff[id], nil
}

func (r *fakeStaffRepo) ByUUID(ctx context.Context, u string) (*models.Staff, error) {
	return nil, nil
}

func (r *fakeStaffRepo) ByFilter(ctx context.Context, filter models.StaffFilter, orderBy string, limit, offset int) ([]*models.Staff, error) {
	return nil, nil
}

func (r *fakeStaffRepo) Save(ctx context.Context, staff *models.Staff) error {
	r.staff[staff.ID] = staff
	return nil
}

func (r *fakeStaffRepo) SaveBatch(ctx context.Context, staff []*models.Staff) error {
	return nil
}

func (r *fakeStaffRepo) Count(ctx context.Context, filter models.StaffFilter) (int64, error) {
	return int64(len(r.staff)), nil
}

func (r *fakeStaffRepo) Exists(ctx context.Context, filter models.StaffFilter) (bool, error) {
	return len(r.staff) > 0, nil
}

type fakeListingRepo struct {
	listingType models.ListingType
	snapshots   []models.ListingSnapshot
	findErr     error
	lastFilter  *repository.CandidateFilter
}

func (r *fakeListingRepo) Type() models.ListingType {
	return r.listingType
}

func (r *fakeListingRepo) ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error) {
	for _, s := range r.snapshots {
		if s.Ref.ID == id {
			snapshot := s
			return &snapshot, nil
		}
	}
	return nil, nil
}

func (r *fakeListingRepo) FindCandidates(ctx context.Context, filter repository.CandidateFilter) ([]models.ListingSnapshot, error) {
	r.lastFilter = &filter
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.snapshots, nil
}

type fakeNotifier struct {
	newMatches    []int
	presented     int
	accepted      int
	rejected      int
	demandUpdated [][]string
	err           error
}

func (n *fakeNotifier) NotifyNewMatches(demand *models.Demand, matches []*models.Match) error {
	n.newMatches = append(n.newMatches, len(matches))
	return n.err
}

func (n *fakeNotifier) NotifyMatchPresented(match *models.Match) error {
	n.presented++
	return n.err
}

func (n *fakeNotifier) NotifyMatchAccepted(match *models.Match) error {
	n.accepted++
	return n.err
}

func (n *fakeNotifier) NotifyMatchRejected(match *models.Match) error {
	n.rejected++
	return n.err
}

func (n *fakeNotifier) NotifyDemandUpdated(demand *models.Demand, changedFields []string) error {
	n.demandUpdated = append(n.demandUpdated, changedFields)
	return n.err
}
