package customers

import (
	"context"

	"github.com/friendsofgo/errors"

	"github.com/fieldserve/docpaging"
	"github.com/fieldserve/docpaging/controller"
	"github.com/fieldserve/docpaging/planner"
)

// Store manages the customer collection: typed CRUD plus a paginated,
// filterable listing. Listing state (current page, filters, totals) lives in
// the embedded controller; one Store backs one customer-list view.
//
// Supported filter fields: name (prefix, via the derived nameLower field),
// email, phone, location, and postCode. A single filtered field runs as a
// native store query; combinations fall back to client-side filtering.
type Store struct {
	gateway docpaging.Gateway
	list    *controller.Controller
}

// NewStore creates a customer store over the gateway. Options are passed
// through to the listing controller.
func NewStore(gateway docpaging.Gateway, opts ...controller.Option) *Store {
	pl := planner.New(gateway, Collection,
		[]docpaging.OrderBy{{Field: "nameLower"}},
		planner.WithFieldAlias("name", "nameLower"),
	)
	return &Store{
		gateway: gateway,
		list:    controller.New(gateway, pl, opts...),
	}
}

// List loads page 0 of customers matching the filters.
func (s *Store) List(ctx context.Context, filters docpaging.FilterSet) error {
	return s.list.Load(ctx, filters)
}

// NextPage advances the listing one page.
func (s *Store) NextPage(ctx context.Context) error {
	return s.list.Next(ctx)
}

// PreviousPage steps the listing back one page.
func (s *Store) PreviousPage(ctx context.Context) error {
	return s.list.Previous(ctx)
}

// Page returns the customers on the current page with the page metadata.
func (s *Store) Page() ([]*Customer, docpaging.PageState) {
	snap := s.list.State()
	customers := make([]*Customer, len(snap.Records))
	for i, rec := range snap.Records {
		customers[i] = customerFromRecord(rec)
	}
	return customers, snap.Page
}

// Controller exposes the listing controller for view wiring (loading flag,
// stored error, refresh, close).
func (s *Store) Controller() *controller.Controller {
	return s.list
}

// Get fetches one customer by id.
func (s *Store) Get(ctx context.Context, id string) (*Customer, error) {
	rec, err := s.gateway.GetRecord(ctx, Collection, id)
	if err != nil {
		return nil, err
	}
	return customerFromRecord(rec), nil
}

// Create stores a new customer and refreshes the listing.
func (s *Store) Create(ctx context.Context, customer *Customer) (*Customer, error) {
	rec, err := s.list.Create(ctx, customer.data())
	if err != nil {
		return nil, err
	}
	return customerFromRecord(rec), nil
}

// Update overwrites a customer's fields and refreshes the listing. The
// derived nameLower field is recomputed from the given name.
func (s *Store) Update(ctx context.Context, customer *Customer) error {
	if customer.ID == "" {
		return errors.Wrap(docpaging.ErrWriteFailed, "update customer without id")
	}
	return s.list.Update(ctx, customer.ID, customer.data())
}

// Delete removes a customer and refreshes the listing.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.list.Remove(ctx, id)
}

// JobStore manages the jobs collection. Jobs are scoped to one customer at a
// time through an equality filter on customerId, which stays on the native
// query path. Ordering is most-recent visit first.
type JobStore struct {
	gateway docpaging.Gateway
	list    *controller.Controller
}

// NewJobStore creates a job store over the gateway.
func NewJobStore(gateway docpaging.Gateway, opts ...controller.Option) *JobStore {
	pl := planner.New(gateway, JobsCollection,
		[]docpaging.OrderBy{{Field: "date", Desc: true}},
		planner.WithEqualityField("customerId"),
	)
	return &JobStore{
		gateway: gateway,
		list:    controller.New(gateway, pl, opts...),
	}
}

// ListForCustomer loads page 0 of the customer's jobs.
func (s *JobStore) ListForCustomer(ctx context.Context, customerID string) error {
	return s.list.Load(ctx, docpaging.FilterSet{"customerId": customerID})
}

// NextPage advances the job listing one page.
func (s *JobStore) NextPage(ctx context.Context) error {
	return s.list.Next(ctx)
}

// PreviousPage steps the job listing back one page.
func (s *JobStore) PreviousPage(ctx context.Context) error {
	return s.list.Previous(ctx)
}

// Page returns the jobs on the current page with the page metadata.
func (s *JobStore) Page() ([]*Job, docpaging.PageState) {
	snap := s.list.State()
	jobs := make([]*Job, len(snap.Records))
	for i, rec := range snap.Records {
		jobs[i] = jobFromRecord(rec)
	}
	return jobs, snap.Page
}

// Controller exposes the listing controller for view wiring.
func (s *JobStore) Controller() *controller.Controller {
	return s.list
}

// Get fetches one job by id.
func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	rec, err := s.gateway.GetRecord(ctx, JobsCollection, id)
	if err != nil {
		return nil, err
	}
	return jobFromRecord(rec), nil
}

// Create stores a new job and refreshes the listing. The customer reference
// is required; it is the foreign key the listing is scoped by.
func (s *JobStore) Create(ctx context.Context, job *Job) (*Job, error) {
	if job.CustomerID == "" {
		return nil, errors.Wrap(docpaging.ErrWriteFailed, "create job without customer id")
	}
	rec, err := s.list.Create(ctx, job.data())
	if err != nil {
		return nil, err
	}
	return jobFromRecord(rec), nil
}

// Update overwrites a job's fields and refreshes the listing.
func (s *JobStore) Update(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return errors.Wrap(docpaging.ErrWriteFailed, "update job without id")
	}
	return s.list.Update(ctx, job.ID, job.data())
}

// Delete removes a job and refreshes the listing.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	return s.list.Remove(ctx, id)
}
