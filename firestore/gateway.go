// Package firestore adapts Cloud Firestore to the docpaging.Gateway
// interface. It is a thin translation layer: neutral query parameters become
// Firestore Where/OrderBy/Limit/StartAfter calls, counts come from the
// server-side aggregation query, and NotFound is mapped out of gRPC status
// codes. No pagination logic lives here.
package firestore

import (
	"context"
	"log/slog"
	"sort"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/friendsofgo/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fieldserve/docpaging"
)

const countAlias = "all"

// NewClient creates a Firestore client for the given project ID. It
// centralizes client creation so callers construct exactly one client and
// pass it down.
func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "create firestore client")
	}

	return client, nil
}

// Gateway implements docpaging.Gateway over a Firestore client.
type Gateway struct {
	client *firestore.Client
	logger *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for query traces.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New wraps an existing Firestore client.
func New(client *firestore.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// QueryPage runs one ordered, limited, optionally anchored query. Results
// always carry the ascending document-ID tie-break after the caller's sort
// fields, so cursor anchors resolve unambiguously.
func (g *Gateway) QueryPage(ctx context.Context, q docpaging.Query) ([]docpaging.Record, error) {
	query := g.buildQuery(q)

	if q.StartAfter != nil {
		query = query.StartAfter(cursorValues(q.OrderBy, *q.StartAfter)...)
	} else if q.StartAt != nil {
		query = query.StartAt(cursorValues(q.OrderBy, *q.StartAt)...)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	it := query.Documents(ctx)
	defer it.Stop()

	var records []docpaging.Record
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "iterate %s", q.Collection)
		}
		records = append(records, docpaging.Record{
			ID:        doc.Ref.ID,
			Data:      doc.Data(),
			CreatedAt: doc.CreateTime,
			UpdatedAt: doc.UpdateTime,
		})
	}

	g.logger.DebugContext(ctx, "firestore query",
		"collection", q.Collection,
		"predicates", len(q.Predicates),
		"limit", q.Limit,
		"records", len(records),
	)
	return records, nil
}

// ApproxCount serves counts from Firestore's COUNT aggregation, which runs
// server-side without streaming documents.
func (g *Gateway) ApproxCount(ctx context.Context, collection string, predicates []docpaging.Predicate) (int64, error) {
	query := g.client.Collection(collection).Query
	for _, p := range predicates {
		query = query.Where(p.Field, string(p.Op), p.Value)
	}

	results, err := query.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", collection)
	}

	value, ok := results[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, errors.Errorf("count %s: unexpected aggregation result %T", collection, results[countAlias])
	}
	return value.GetIntegerValue(), nil
}

// CreateRecord stores a new document under a generated ID.
func (g *Gateway) CreateRecord(ctx context.Context, collection string, data map[string]any) (docpaging.Record, error) {
	ref := g.client.Collection(collection).NewDoc()
	result, err := ref.Create(ctx, data)
	if err != nil {
		return docpaging.Record{}, errors.Wrapf(docpaging.ErrWriteFailed, "create in %s: %v", collection, err)
	}

	return docpaging.Record{
		ID:        ref.ID,
		Data:      data,
		CreatedAt: result.UpdateTime,
		UpdatedAt: result.UpdateTime,
	}, nil
}

// GetRecord fetches one document by id.
func (g *Gateway) GetRecord(ctx context.Context, collection, id string) (docpaging.Record, error) {
	doc, err := g.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return docpaging.Record{}, errors.Wrapf(docpaging.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return docpaging.Record{}, errors.Wrapf(docpaging.ErrQueryFailed, "get %s/%s: %v", collection, id, err)
	}

	return docpaging.Record{
		ID:        doc.Ref.ID,
		Data:      doc.Data(),
		CreatedAt: doc.CreateTime,
		UpdatedAt: doc.UpdateTime,
	}, nil
}

// UpdateRecord overwrites the given fields of an existing document. Updating
// an absent document is ErrNotFound. An empty field set is a no-op; the SDK
// rejects an update with no paths, and a blank edit must not fail.
func (g *Gateway) UpdateRecord(ctx context.Context, collection, id string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	updates := make([]firestore.Update, 0, len(data))
	for _, field := range sortedFields(data) {
		updates = append(updates, firestore.Update{Path: field, Value: data[field]})
	}

	_, err := g.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return errors.Wrapf(docpaging.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return errors.Wrapf(docpaging.ErrWriteFailed, "update %s/%s: %v", collection, id, err)
	}
	return nil
}

// DeleteRecord removes a document. Firestore treats deleting an absent
// document as success, matching the Gateway contract.
func (g *Gateway) DeleteRecord(ctx context.Context, collection, id string) error {
	if _, err := g.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return errors.Wrapf(docpaging.ErrWriteFailed, "delete %s/%s: %v", collection, id, err)
	}
	return nil
}

func (g *Gateway) buildQuery(q docpaging.Query) firestore.Query {
	query := g.client.Collection(q.Collection).Query
	for _, p := range q.Predicates {
		query = query.Where(p.Field, string(p.Op), p.Value)
	}
	for _, ob := range q.OrderBy {
		dir := firestore.Asc
		if ob.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(ob.Field, dir)
	}
	// Stable tie-break on document ID, required for unambiguous cursors.
	return query.OrderBy(firestore.DocumentID, firestore.Asc)
}

// cursorValues lays out a cursor's sort-field values in OrderBy declaration
// order, ending with the document ID for the tie-break clause.
func cursorValues(orderBy []docpaging.OrderBy, c docpaging.Cursor) []any {
	values := make([]any, 0, len(orderBy)+1)
	for _, ob := range orderBy {
		values = append(values, c.Values[ob.Field])
	}
	return append(values, c.DocID)
}

func sortedFields(data map[string]any) []string {
	fields := make([]string, 0, len(data))
	for field := range data {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
