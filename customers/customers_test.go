package customers_test

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldserve/docpaging"
	"github.com/fieldserve/docpaging/customers"
	"github.com/fieldserve/docpaging/memory"
)

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		gateway *memory.Gateway
		store   *customers.Store
	)

	create := func(name, location string) *customers.Customer {
		customer, err := store.Create(ctx, &customers.Customer{
			Name:     name,
			Email:    name + "@example.com",
			Location: location,
		})
		Expect(err).ToNot(HaveOccurred())
		return customer
	}

	pageNames := func() []string {
		page, _ := store.Page()
		names := make([]string, len(page))
		for i, c := range page {
			names[i] = c.Name
		}
		return names
	}

	BeforeEach(func() {
		ctx = context.Background()
		gateway = memory.New()
		store = customers.NewStore(gateway)
	})

	It("lists customers ordered by name", func() {
		create("Carol Danvers", "north")
		create("Alice Cooper", "south")
		create("Bob Odenkirk", "north")

		Expect(store.List(ctx, nil)).To(Succeed())
		Expect(pageNames()).To(Equal([]string{"Alice Cooper", "Bob Odenkirk", "Carol Danvers"}))
	})

	It("finds customers by case-insensitive name prefix", func() {
		create("Joanna Reyes", "north")
		create("John Smith", "south")
		create("Alice Cooper", "north")

		Expect(store.List(ctx, docpaging.FilterSet{"name": "JO"})).To(Succeed())

		_, page := store.Page()
		Expect(page.TotalItems).To(Equal(int64(2)))
		Expect(pageNames()).To(Equal([]string{"Joanna Reyes", "John Smith"}))
	})

	It("combines filters across fields", func() {
		create("Joanna Reyes", "shelbyville")
		create("John Smith", "springfield")
		create("June Carter", "springfield")

		Expect(store.List(ctx, docpaging.FilterSet{
			"name":     "j",
			"location": "spring",
		})).To(Succeed())

		Expect(pageNames()).To(Equal([]string{"John Smith", "June Carter"}))
	})

	It("round-trips a customer through create and get", func() {
		created := create("Alice Cooper", "north")

		got, err := store.Get(ctx, created.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Name).To(Equal("Alice Cooper"))
		Expect(got.Email).To(Equal("Alice Cooper@example.com"))
		Expect(got.CreatedAt).ToNot(BeZero())
	})

	It("re-derives the lowercase name on update", func() {
		created := create("Alice Cooper", "north")
		Expect(store.List(ctx, nil)).To(Succeed())

		created.Name = "Zelda Fitzgerald"
		Expect(store.Update(ctx, created)).To(Succeed())

		Expect(store.List(ctx, docpaging.FilterSet{"name": "zel"})).To(Succeed())
		_, page := store.Page()
		Expect(page.TotalItems).To(Equal(int64(1)))
	})

	It("rejects an update without an id", func() {
		err := store.Update(ctx, &customers.Customer{Name: "Nobody"})
		Expect(errors.Is(err, docpaging.ErrWriteFailed)).To(BeTrue())
	})

	It("removes deleted customers from the listing", func() {
		created := create("Alice Cooper", "north")
		create("Bob Odenkirk", "south")
		Expect(store.List(ctx, nil)).To(Succeed())

		Expect(store.Delete(ctx, created.ID)).To(Succeed())
		Expect(pageNames()).To(Equal([]string{"Bob Odenkirk"}))
	})
})

var _ = Describe("JobStore", func() {
	var (
		ctx     context.Context
		gateway *memory.Gateway
		jobs    *customers.JobStore
	)

	date := func(day int) time.Time {
		return time.Date(2026, time.August, day, 0, 0, 0, 0, time.UTC)
	}

	addJob := func(customerID string, day int, comments string) *customers.Job {
		job, err := jobs.Create(ctx, &customers.Job{
			CustomerID: customerID,
			Date:       date(day),
			Interior:   true,
			Price:      85.50,
			Comments:   comments,
		})
		Expect(err).ToNot(HaveOccurred())
		return job
	}

	BeforeEach(func() {
		ctx = context.Background()
		gateway = memory.New()
		jobs = customers.NewJobStore(gateway)
	})

	It("lists only the requested customer's jobs, newest first", func() {
		addJob("cust-a", 3, "first visit")
		addJob("cust-a", 12, "follow-up")
		addJob("cust-b", 8, "other customer")

		Expect(jobs.ListForCustomer(ctx, "cust-a")).To(Succeed())

		page, state := jobs.Page()
		Expect(state.TotalItems).To(Equal(int64(2)))
		Expect(page).To(HaveLen(2))
		Expect(page[0].Comments).To(Equal("follow-up"))
		Expect(page[1].Comments).To(Equal("first visit"))
		Expect(page[0].CustomerID).To(Equal("cust-a"))
	})

	It("preserves the customer id's case when filtering", func() {
		addJob("CuSt-MiXeD", 1, "visit")

		Expect(jobs.ListForCustomer(ctx, "CuSt-MiXeD")).To(Succeed())

		_, state := jobs.Page()
		Expect(state.TotalItems).To(Equal(int64(1)))
	})

	It("round-trips job fields through the record codec", func() {
		created := addJob("cust-a", 5, "gutters next time")

		got, err := jobs.Get(ctx, created.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.CustomerID).To(Equal("cust-a"))
		Expect(got.Date).To(Equal(date(5)))
		Expect(got.Interior).To(BeTrue())
		Expect(got.Exterior).To(BeFalse())
		Expect(got.Price).To(Equal(85.50))
		Expect(got.Comments).To(Equal("gutters next time"))
	})

	It("requires a customer reference on create", func() {
		_, err := jobs.Create(ctx, &customers.Job{Date: date(1)})
		Expect(errors.Is(err, docpaging.ErrWriteFailed)).To(BeTrue())
	})

	It("updates and deletes jobs within the listing", func() {
		created := addJob("cust-a", 5, "initial")
		other := addJob("cust-a", 9, "second")
		Expect(jobs.ListForCustomer(ctx, "cust-a")).To(Succeed())

		created.Comments = "revised"
		Expect(jobs.Update(ctx, created)).To(Succeed())

		got, err := jobs.Get(ctx, created.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(got.Comments).To(Equal("revised"))

		Expect(jobs.Delete(ctx, other.ID)).To(Succeed())
		_, state := jobs.Page()
		Expect(state.TotalItems).To(Equal(int64(1)))
	})
})
