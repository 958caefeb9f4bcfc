package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

const firestorePageSize = 300

// FirestoreOptions identifies the database to talk to.
type FirestoreOptions struct {
	ProjectID       string
	DatabaseID      string // "(default)" when empty
	BaseURL         string // API root (without /v1); the public one when empty
	CredentialsFile string // service account JSON; ADC when empty
}

// Firestore stores each collection as a Firestore collection, one
// document per item.
type Firestore struct {
	docs *firestore.ProjectsDatabasesDocumentsService
	root string // projects/{p}/databases/{d}/documents
}

// DialFirestore builds a client from service account credentials (or
// application default credentials). extra is appended last, so tests can
// pass option.WithHTTPClient.
func DialFirestore(ctx context.Context, opts FirestoreOptions, extra ...option.ClientOption) (*Firestore, error) {
	copts := []option.ClientOption{option.WithScopes(firestore.DatastoreScope)}
	if opts.CredentialsFile != "" {
		copts = append(copts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.BaseURL != "" {
		copts = append(copts, option.WithEndpoint(strings.TrimRight(opts.BaseURL, "/")+"/"))
	}
	copts = append(copts, extra...)

	svc, err := firestore.NewService(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	db := opts.DatabaseID
	if db == "" {
		db = "(default)"
	}
	return &Firestore{
		docs: svc.Projects.Databases.Documents,
		root: fmt.Sprintf("projects/%s/databases/%s/documents", opts.ProjectID, db),
	}, nil
}

func encodeValue(v any) firestore.Value {
	switch x := v.(type) {
	case string:
		return firestore.Value{StringValue: x, ForceSendFields: []string{"StringValue"}}
	case bool:
		return firestore.Value{BooleanValue: x, ForceSendFields: []string{"BooleanValue"}}
	case int:
		return firestore.Value{IntegerValue: int64(x), ForceSendFields: []string{"IntegerValue"}}
	case time.Time:
		return firestore.Value{TimestampValue: x.UTC().Format(time.RFC3339Nano)}
	}
	return firestore.Value{NullValue: "NULL_VALUE"}
}

func valueString(v firestore.Value) string {
	switch {
	case v.StringValue != "":
		return v.StringValue
	case v.TimestampValue != "":
		return v.TimestampValue
	case v.IntegerValue != 0:
		return strconv.FormatInt(v.IntegerValue, 10)
	}
	return ""
}

func valueInt(v firestore.Value) int {
	if v.IntegerValue != 0 {
		return int(v.IntegerValue)
	}
	return int(v.DoubleValue)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func itemFields(it catalog.Item) map[string]firestore.Value {
	f := map[string]firestore.Value{
		"kind":        encodeValue(string(it.Kind)),
		"displayName": encodeValue(it.DisplayName),
		"slug":        encodeValue(it.Slug),
		"description": encodeValue(it.Description),
		"imageUrl":    encodeValue(it.ImageURL),
		"featured":    encodeValue(it.Featured),
		"updatedAt":   encodeValue(it.UpdatedAt),
		"updatedBy":   encodeValue(it.UpdatedBy),
	}
	if it.Kind == catalog.KindCategory {
		f["productCount"] = encodeValue(it.ProductCount)
	} else {
		f["category"] = encodeValue(it.Category)
	}
	return f
}

// first returns the first present field among names. Older documents use
// name/title and image instead of displayName and imageUrl.
func first(fields map[string]firestore.Value, names ...string) (firestore.Value, bool) {
	for _, n := range names {
		if v, ok := fields[n]; ok {
			return v, true
		}
	}
	return firestore.Value{}, false
}

func decodeDocument(c catalog.Collection, doc *firestore.Document) catalog.Item {
	it := catalog.Item{ID: doc.Name[strings.LastIndex(doc.Name, "/")+1:], Kind: c.Kind()}
	f := doc.Fields
	if v, ok := first(f, "displayName", "name", "title"); ok {
		it.DisplayName = valueString(v)
	}
	if v, ok := f["slug"]; ok {
		it.Slug = valueString(v)
	}
	if it.Slug == "" && it.DisplayName != "" {
		it.Slug = catalog.Slugify(it.DisplayName)
	}
	if v, ok := f["description"]; ok {
		it.Description = valueString(v)
	}
	if v, ok := first(f, "imageUrl", "image"); ok {
		it.ImageURL = valueString(v)
	}
	if v, ok := f["category"]; ok {
		it.Category = valueString(v)
	}
	if v, ok := f["featured"]; ok {
		it.Featured = v.BooleanValue
	}
	if v, ok := f["productCount"]; ok {
		it.ProductCount = valueInt(v)
	}
	if v, ok := f["updatedAt"]; ok {
		it.UpdatedAt = parseTimestamp(valueString(v))
	}
	if it.UpdatedAt.IsZero() && doc.UpdateTime != "" {
		it.UpdatedAt = parseTimestamp(doc.UpdateTime)
	}
	if v, ok := f["updatedBy"]; ok {
		it.UpdatedBy = valueString(v)
	}
	return it
}

func (f *Firestore) docName(c catalog.Collection, id string) string {
	return f.root + "/" + string(c) + "/" + id
}

// mapError translates API errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusConflict:
			return ErrConflict
		}
	}
	return unavailable(err)
}

// List implements Store.
func (f *Firestore) List(ctx context.Context, c catalog.Collection) ([]catalog.Item, error) {
	items := []catalog.Item{}
	err := f.docs.List(f.root, string(c)).PageSize(firestorePageSize).Pages(ctx,
		func(page *firestore.ListDocumentsResponse) error {
			for _, d := range page.Documents {
				items = append(items, decodeDocument(c, d))
			}
			return nil
		})
	if err = mapError(err); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []catalog.Item{}, nil
		}
		return nil, err
	}
	return items, nil
}

// Get implements Store.
func (f *Firestore) Get(ctx context.Context, c catalog.Collection, id string) (catalog.Item, error) {
	doc, err := f.docs.Get(f.docName(c, id)).Context(ctx).Do()
	if err != nil {
		return catalog.Item{}, mapError(err)
	}
	return decodeDocument(c, doc), nil
}

// Set implements Store. Merges use an update mask limited to the patch
// fields and an exists precondition, so a missing document is ErrNotFound.
func (f *Firestore) Set(ctx context.Context, c catalog.Collection, id string, p catalog.Patch, merge bool) error {
	if !merge {
		it, _ := applySet(nil, c, id, p, false)
		_, err := f.docs.Patch(f.docName(c, id), &firestore.Document{Fields: itemFields(it)}).Context(ctx).Do()
		return mapError(err)
	}
	set := p.Fields()
	names := make([]string, 0, len(set))
	fields := make(map[string]firestore.Value, len(set))
	for k, v := range set {
		names = append(names, k)
		fields[k] = encodeValue(v)
	}
	sort.Strings(names)
	_, err := f.docs.Patch(f.docName(c, id), &firestore.Document{Fields: fields}).
		UpdateMaskFieldPaths(names...).
		CurrentDocumentExists(true).
		Context(ctx).Do()
	return mapError(err)
}

// Create implements Store.
func (f *Firestore) Create(ctx context.Context, c catalog.Collection, it catalog.Item) (string, error) {
	id := it.ID
	if id == "" {
		id = uuid.NewString()
	}
	it = prepareCreate(c, it, id)
	_, err := f.docs.CreateDocument(f.root, string(c), &firestore.Document{Fields: itemFields(it)}).
		DocumentId(id).Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	return id, nil
}

// Delete implements Store.
func (f *Firestore) Delete(ctx context.Context, c catalog.Collection, id string) error {
	_, err := f.docs.Delete(f.docName(c, id)).CurrentDocumentExists(true).Context(ctx).Do()
	return mapError(err)
}
