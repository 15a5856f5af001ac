package firestore_test

import (
	"sort"
	"strings"

	"github.com/friendsofgo/errors"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldserve/docpaging"
)

var byName = []docpaging.OrderBy{{Field: "nameLower"}}

var _ = Describe("Gateway", func() {
	var collection string

	// Each spec writes to its own collection; the emulator has no cheap
	// collection-wide truncate.
	BeforeEach(func() {
		collection = "customers-" + uuid.NewString()
	})

	seed := func(names ...string) []docpaging.Record {
		records := make([]docpaging.Record, 0, len(names))
		for _, name := range names {
			rec, err := gateway.CreateRecord(ctx, collection, map[string]any{
				"name":      name,
				"nameLower": strings.ToLower(name),
			})
			Expect(err).ToNot(HaveOccurred())
			records = append(records, rec)
		}
		return records
	}

	names := func(records []docpaging.Record) []string {
		out := make([]string, len(records))
		for i, rec := range records {
			out[i] = rec.Field("name")
		}
		return out
	}

	Describe("QueryPage", func() {
		It("orders by the sort field regardless of insertion order", func() {
			seed("Cora", "Ada", "Bea")

			records, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(names(records)).To(Equal([]string{"Ada", "Bea", "Cora"}))
		})

		It("breaks sort-key ties by document id ascending", func() {
			seed("Smith", "Smith", "Smith")

			records, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(records).To(HaveLen(3))

			ids := make([]string, len(records))
			for i, rec := range records {
				ids[i] = rec.ID
			}
			Expect(sort.StringsAreSorted(ids)).To(BeTrue())
		})

		It("resumes strictly after a start-after cursor", func() {
			seed("Ada", "Bea", "Cora", "Dina")

			first, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
				Limit:      2,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(names(first)).To(Equal([]string{"Ada", "Bea"}))

			anchor := docpaging.CursorFor(first[1], byName)
			rest, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
				Limit:      2,
				StartAfter: &anchor,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(names(rest)).To(Equal([]string{"Cora", "Dina"}))
		})

		It("resumes at a start-at cursor inclusively", func() {
			seed("Ada", "Bea", "Cora", "Dina")

			all, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
			})
			Expect(err).ToNot(HaveOccurred())

			anchor := docpaging.CursorFor(all[2], byName)
			page, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				OrderBy:    byName,
				Limit:      2,
				StartAt:    &anchor,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(names(page)).To(Equal([]string{"Cora", "Dina"}))
		})

		It("paginates across identical sort keys without gaps or overlap", func() {
			seed("Smith", "Smith", "Smith", "Smith", "Smith")

			var seen []string
			var anchor *docpaging.Cursor
			for {
				page, err := gateway.QueryPage(ctx, docpaging.Query{
					Collection: collection,
					OrderBy:    byName,
					Limit:      2,
					StartAfter: anchor,
				})
				Expect(err).ToNot(HaveOccurred())
				if len(page) == 0 {
					break
				}
				for _, rec := range page {
					seen = append(seen, rec.ID)
				}
				cursor := docpaging.CursorFor(page[len(page)-1], byName)
				anchor = &cursor
			}

			Expect(seen).To(HaveLen(5))
			deduped := map[string]bool{}
			for _, id := range seen {
				deduped[id] = true
			}
			Expect(deduped).To(HaveLen(5))
		})

		It("applies prefix range predicates", func() {
			seed("Ada", "Joanna Reyes", "John Smith", "Zoe")

			records, err := gateway.QueryPage(ctx, docpaging.Query{
				Collection: collection,
				Predicates: docpaging.PrefixPredicates("nameLower", "jo"),
				OrderBy:    byName,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(names(records)).To(Equal([]string{"Joanna Reyes", "John Smith"}))
		})
	})

	Describe("ApproxCount", func() {
		It("serves totals from the aggregation query", func() {
			seed("Ada", "Bea", "Joanna Reyes", "John Smith")

			total, err := gateway.ApproxCount(ctx, collection, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(total).To(Equal(int64(4)))

			filtered, err := gateway.ApproxCount(ctx, collection, docpaging.PrefixPredicates("nameLower", "jo"))
			Expect(err).ToNot(HaveOccurred())
			Expect(filtered).To(Equal(int64(2)))
		})

		It("counts an empty collection as zero", func() {
			total, err := gateway.ApproxCount(ctx, collection, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(total).To(BeZero())
		})
	})

	Describe("record lifecycle", func() {
		It("round-trips a created document through get", func() {
			created, err := gateway.CreateRecord(ctx, collection, map[string]any{
				"name":      "Alice",
				"nameLower": "alice",
				"location":  "north",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(created.ID).ToNot(BeEmpty())

			got, err := gateway.GetRecord(ctx, collection, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Field("name")).To(Equal("Alice"))
			Expect(got.Field("location")).To(Equal("north"))
		})

		It("maps a missing document to ErrNotFound", func() {
			_, err := gateway.GetRecord(ctx, collection, "missing")
			Expect(errors.Is(err, docpaging.ErrNotFound)).To(BeTrue())

			err = gateway.UpdateRecord(ctx, collection, "missing", map[string]any{"name": "x"})
			Expect(errors.Is(err, docpaging.ErrNotFound)).To(BeTrue())
		})

		It("overwrites only the given fields on update", func() {
			created, err := gateway.CreateRecord(ctx, collection, map[string]any{
				"name":     "Alice",
				"location": "north",
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(gateway.UpdateRecord(ctx, collection, created.ID, map[string]any{
				"location": "south",
			})).To(Succeed())

			got, err := gateway.GetRecord(ctx, collection, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Field("name")).To(Equal("Alice"))
			Expect(got.Field("location")).To(Equal("south"))
		})

		It("treats an update with no fields as a no-op", func() {
			created, err := gateway.CreateRecord(ctx, collection, map[string]any{"name": "Alice"})
			Expect(err).ToNot(HaveOccurred())

			Expect(gateway.UpdateRecord(ctx, collection, created.ID, nil)).To(Succeed())
			Expect(gateway.UpdateRecord(ctx, collection, created.ID, map[string]any{})).To(Succeed())

			got, err := gateway.GetRecord(ctx, collection, created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Field("name")).To(Equal("Alice"))
		})

		It("deletes idempotently", func() {
			created, err := gateway.CreateRecord(ctx, collection, map[string]any{"name": "Alice"})
			Expect(err).ToNot(HaveOccurred())

			Expect(gateway.DeleteRecord(ctx, collection, created.ID)).To(Succeed())
			Expect(gateway.DeleteRecord(ctx, collection, created.ID)).To(Succeed())

			_, err = gateway.GetRecord(ctx, collection, created.ID)
			Expect(errors.Is(err, docpaging.ErrNotFound)).To(BeTrue())
		})
	})
})
