// Package bigquery implements the storage contract on BigQuery tables.
// Live queries are emulated by polling: each subscription re-runs its
// owner-filtered SELECT on an interval and pushes the full row set whenever
// it changes. Suitable for small per-user datasets; the poll interval
// bounds staleness.
package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	st "github.com/dvloznov/wealthflow/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Second

// Store is a BigQuery-backed implementation of storage.Store.
type Store struct {
	client       *bigquery.Client
	projectID    string
	datasetID    string
	pollInterval time.Duration
	log          zerolog.Logger
}

// NewStore creates a store over the given project and dataset.
func NewStore(ctx context.Context, projectID, datasetID string, pollInterval time.Duration, log zerolog.Logger) (*Store, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{
		client:       client,
		projectID:    projectID,
		datasetID:    datasetID,
		pollInterval: pollInterval,
		log:          log,
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Subscribe implements storage.Store by polling. The initial push is
// delivered synchronously before Subscribe returns; afterwards a goroutine
// re-runs the query and pushes only when the result set changed. The
// returned CancelFunc synchronously prevents further deliveries.
func (s *Store) Subscribe(ctx context.Context, collection, ownerID string, fn st.SnapshotFunc) (st.CancelFunc, error) {
	if _, ok := columns[collection]; !ok {
		return nil, fmt.Errorf("Subscribe: unknown collection %q", collection)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("Subscribe: ownerID is required")
	}

	docs, err := s.fetch(ctx, collection, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: initial fetch: %w", err)
	}

	sub := &pollSub{fn: fn}
	sub.deliver(docs)

	pollCtx, cancel := context.WithCancel(ctx)
	go s.poll(pollCtx, collection, ownerID, sub)

	return func() {
		cancel()
		sub.close()
	}, nil
}

// pollSub serializes deliveries and drops them after close. Holding mu
// across fn keeps cancellation synchronous: once close returns, no further
// callback runs.
type pollSub struct {
	mu          sync.Mutex
	fn          st.SnapshotFunc
	closed      bool
	fingerprint string
}

func (p *pollSub) deliver(docs []st.Document) {
	fp := fingerprint(docs)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || fp == p.fingerprint {
		return
	}
	p.fingerprint = fp
	p.fn(docs)
}

func (p *pollSub) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (s *Store) poll(ctx context.Context, collection, ownerID string, sub *pollSub) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			docs, err := s.fetch(ctx, collection, ownerID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn().Err(err).Str("collection", collection).Msg("Poll query failed")
				continue
			}
			sub.deliver(docs)
		}
	}
}

// fingerprint is a change detector over a full result set, independent of
// row order.
func fingerprint(docs []st.Document) string {
	sorted := make([]st.Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool {
		a, _ := sorted[i]["id"].(string)
		b, _ := sorted[j]["id"].(string)
		return a < b
	})
	data, err := json.Marshal(sorted)
	if err != nil {
		return ""
	}
	return string(data)
}

// fetch runs the owner-filtered SELECT for a collection.
func (s *Store) fetch(ctx context.Context, collection, ownerID string) ([]st.Document, error) {
	q := s.client.Query(fmt.Sprintf(
		"SELECT * FROM `%s.%s.%s` WHERE owner_id = @owner_id",
		s.projectID, s.datasetID, collection,
	))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: reading query: %w", err)
	}

	docs := []st.Document{}
	for {
		var doc st.Document
		var err error
		switch collection {
		case st.CollectionAccounts:
			var row accountRow
			err = it.Next(&row)
			doc = row.toDocument()
		case st.CollectionTransactions:
			var row transactionRow
			err = it.Next(&row)
			doc = row.toDocument()
		case st.CollectionHoldings:
			var row holdingRow
			err = it.Next(&row)
			doc = row.toDocument()
		}
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch: iterating: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Insert implements storage.Store with a parameterized DML INSERT.
func (s *Store) Insert(ctx context.Context, collection string, doc st.Document) (string, error) {
	cols, ok := columns[collection]
	if !ok {
		return "", fmt.Errorf("Insert: unknown collection %q", collection)
	}

	fields := make([]string, 0, len(cols))
	for field := range cols {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	id := uuid.NewString()
	names := []string{"id", "owner_id"}
	params := []bigquery.QueryParameter{
		{Name: "id", Value: id},
		{Name: "owner_id", Value: docString(doc, st.OwnerField)},
	}
	for _, field := range fields {
		column := cols[field]
		names = append(names, column)
		params = append(params, bigquery.QueryParameter{Name: column, Value: paramValue(collection, field, doc[field])})
	}

	placeholders := make([]string, len(names))
	for i, n := range names {
		placeholders[i] = "@" + n
	}
	q := s.client.Query(fmt.Sprintf(
		"INSERT INTO `%s.%s.%s` (%s) VALUES (%s)",
		s.projectID, s.datasetID, collection,
		strings.Join(names, ", "), strings.Join(placeholders, ", "),
	))
	q.Parameters = params

	if _, err := s.runDML(ctx, q); err != nil {
		return "", fmt.Errorf("Insert: %w", err)
	}
	return id, nil
}

// Update implements storage.Store with a parameterized DML UPDATE. Patch
// fields outside the collection schema are rejected.
func (s *Store) Update(ctx context.Context, collection, id string, patch st.Document) error {
	cols, ok := columns[collection]
	if !ok {
		return fmt.Errorf("Update: unknown collection %q", collection)
	}

	var sets []string
	params := []bigquery.QueryParameter{{Name: "id", Value: id}}
	fields := make([]string, 0, len(patch))
	for field := range patch {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if field == "id" || field == st.OwnerField {
			continue
		}
		column, ok := cols[field]
		if !ok {
			return fmt.Errorf("Update: field %q not in %s schema", field, collection)
		}
		sets = append(sets, fmt.Sprintf("%s = @%s", column, column))
		params = append(params, bigquery.QueryParameter{Name: column, Value: paramValue(collection, field, patch[field])})
	}
	if len(sets) == 0 {
		return fmt.Errorf("Update: empty patch")
	}

	q := s.client.Query(fmt.Sprintf(
		"UPDATE `%s.%s.%s` SET %s WHERE id = @id",
		s.projectID, s.datasetID, collection, strings.Join(sets, ", "),
	))
	q.Parameters = params

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Update: %s/%s: %w", collection, id, st.ErrNotFound)
	}
	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, ok := columns[collection]; !ok {
		return fmt.Errorf("Delete: unknown collection %q", collection)
	}

	q := s.client.Query(fmt.Sprintf(
		"DELETE FROM `%s.%s.%s` WHERE id = @id",
		s.projectID, s.datasetID, collection,
	))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}

	affected, err := s.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Delete: %s/%s: %w", collection, id, st.ErrNotFound)
	}
	return nil
}

// runDML executes a DML statement and returns the affected row count.
func (s *Store) runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok && qs.DMLStats != nil {
		return qs.DMLStats.InsertedRowCount + qs.DMLStats.UpdatedRowCount + qs.DMLStats.DeletedRowCount, nil
	}
	return 1, nil
}

// paramValue converts a document value to a query parameter value. Dates
// travel as RFC 3339 strings in documents but as TIMESTAMP in the table.
func paramValue(collection, field string, v interface{}) interface{} {
	if collection == st.CollectionTransactions && field == "date" {
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		}
		if ts, ok := v.(time.Time); ok {
			return ts
		}
	}
	return v
}

func docString(doc st.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

// Ensure Store implements the storage interface.
var _ st.Store = (*Store)(nil)
