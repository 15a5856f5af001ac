// Package customers is the domain layer for the admin console's customer
// records and their per-customer jobs (site-visit work records). Customers
// and jobs live in separate collections; a job references its customer by id,
// so both paginate independently through the store's cursor mechanism.
package customers

import (
	"strings"
	"time"

	"github.com/fieldserve/docpaging"
)

// Collection names used by the stores.
const (
	Collection     = "customers"
	JobsCollection = "jobs"
)

// Customer is one customer record. NameLower is derived from Name on every
// write and backs the store-native prefix search on names.
type Customer struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	Location       string
	BillingAddress string
	PostCode       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c *Customer) data() map[string]any {
	return map[string]any{
		"name":           c.Name,
		"nameLower":      strings.ToLower(c.Name),
		"email":          c.Email,
		"phone":          c.Phone,
		"location":       c.Location,
		"billingAddress": c.BillingAddress,
		"postCode":       c.PostCode,
	}
}

func customerFromRecord(rec docpaging.Record) *Customer {
	return &Customer{
		ID:             rec.ID,
		Name:           rec.Field("name"),
		Email:          rec.Field("email"),
		Phone:          rec.Field("phone"),
		Location:       rec.Field("location"),
		BillingAddress: rec.Field("billingAddress"),
		PostCode:       rec.Field("postCode"),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// Job is one site-visit work record, owned by a customer through CustomerID.
type Job struct {
	ID         string
	CustomerID string
	Date       time.Time
	Interior   bool
	Exterior   bool
	Gutters    bool
	Price      float64
	Comments   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (j *Job) data() map[string]any {
	return map[string]any{
		"customerId": j.CustomerID,
		"date":       j.Date,
		"interior":   j.Interior,
		"exterior":   j.Exterior,
		"gutters":    j.Gutters,
		"price":      j.Price,
		"comments":   j.Comments,
	}
}

func jobFromRecord(rec docpaging.Record) *Job {
	job := &Job{
		ID:         rec.ID,
		CustomerID: rec.Field("customerId"),
		Comments:   rec.Field("comments"),
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if date, ok := rec.Data["date"].(time.Time); ok {
		job.Date = date
	}
	job.Interior, _ = rec.Data["interior"].(bool)
	job.Exterior, _ = rec.Data["exterior"].(bool)
	job.Gutters, _ = rec.Data["gutters"].(bool)
	if price, ok := rec.Data["price"].(float64); ok {
		job.Price = price
	}
	return job
}
