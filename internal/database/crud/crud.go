// Package crud provides the generic findAll/findById/create/update/delete
// repository that every entity repository embeds.
//
// # Usage
//
//	repo := crud.New[entities.Audio](db, crud.Fields{
//		Filterable: map[string]string{"language": "language"},
//		Updatable:  []string{"name", "description"},
//	})
//	page, err := repo.FindAll(ctx, crud.Query{Limit: 20})
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record already exists")
	ErrInvalidField = errors.New("invalid field")
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Fields declares which JSON attributes of an entity may be filtered, sorted
// and updated through the generic operations.
type Fields struct {
	Filterable   map[string]string // JSON attribute -> column
	Updatable    []string          // JSON attributes accepted by Update
	DefaultOrder string            // e.g. "createdAt desc"
	Preloads     []string
}

// Query is the findAll argument shared by every entity.
type Query struct {
	Where  map[string]any `json:"where,omitempty"`
	Order  string         `json:"order,omitempty" validate:"omitempty,max=100"`
	Limit  int            `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset int            `json:"offset,omitempty" validate:"gte=0"`
}

// Page is one window of a findAll result.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// Repository implements the generic entity operations for T.
type Repository[T any] struct {
	db        *gorm.DB
	fields    Fields
	updatable map[string]bool
	sortable  map[string]string
}

// New builds a repository for T with the given field rules.
func New[T any](db *gorm.DB, fields Fields) *Repository[T] {
	updatable := make(map[string]bool, len(fields.Updatable))
	for _, name := range fields.Updatable {
		updatable[name] = true
	}

	sortable := map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
	for attr, column := range fields.Filterable {
		sortable[attr] = column
	}

	return &Repository[T]{
		db:        db,
		fields:    fields,
		updatable: updatable,
		sortable:  sortable,
	}
}

// DB exposes the underlying handle for domain-specific queries.
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// FindAll returns one page of records matching q.
func (r *Repository[T]) FindAll(ctx context.Context, q Query) (*Page[T], error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filtered, err := r.applyWhere(r.db.WithContext(ctx).Model(new(T)), q.Where)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return nil, Translate(err)
	}

	query, err := r.applyWhere(r.preload(r.db.WithContext(ctx)), q.Where)
	if err != nil {
		return nil, err
	}
	order := q.Order
	if order == "" {
		order = r.fields.DefaultOrder
	}
	if query, err = r.applyOrder(query, order); err != nil {
		return nil, err
	}

	items := make([]T, 0)
	if err := query.Limit(limit).Offset(q.Offset).Find(&items).Error; err != nil {
		return nil, Translate(err)
	}

	return &Page[T]{Items: items, Total: total, Limit: limit, Offset: q.Offset}, nil
}

// FindByID returns ErrNotFound when no record has id.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidField)
	}
	var record T
	if err := r.preload(r.db.WithContext(ctx)).First(&record, "id = ?", id).Error; err != nil {
		return nil, Translate(err)
	}
	return &record, nil
}

// FindOneBy returns the first record whose column equals value.
func (r *Repository[T]) FindOneBy(ctx context.Context, column string, value any) (*T, error) {
	var record T
	err := r.preload(r.db.WithContext(ctx)).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).First(&record).Error
	if err != nil {
		return nil, Translate(err)
	}
	return &record, nil
}

func (r *Repository[T]) Create(ctx context.Context, record *T) error {
	return Translate(r.db.WithContext(ctx).Create(record).Error)
}

// Update applies a JSON patch to the record with the given id. Only
// attributes listed in Fields.Updatable are accepted. Object-valued
// attributes are merged shallowly into the stored value.
func (r *Repository[T]) Update(ctx context.Context, id string, patch map[string]json.RawMessage) (*T, error) {
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrInvalidField)
	}
	for attr := range patch {
		if !r.updatable[attr] {
			return nil, fmt.Errorf("%w: %s cannot be updated", ErrInvalidField, attr)
		}
	}

	record, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}

	columns, err := r.patchedFields(patch)
	if err != nil {
		return nil, err
	}
	// Write only the patched columns so concurrent counter updates survive.
	err = r.db.WithContext(ctx).Model(record).
		Select(columns).
		Omit(clause.Associations).
		Updates(record).Error
	if err != nil {
		return nil, Translate(err)
	}
	return record, nil
}

// patchedFields maps patch attributes to struct field names, plus UpdatedAt.
func (r *Repository[T]) patchedFields(patch map[string]json.RawMessage) ([]string, error) {
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	byAttr := make(map[string]string, len(stmt.Schema.Fields))
	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			byAttr[name] = field.Name
		}
	}

	fields := make([]string, 0, len(patch)+1)
	for attr := range patch {
		name, ok := byAttr[attr]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no column", ErrInvalidField, attr)
		}
		fields = append(fields, name)
	}
	if stmt.Schema.LookUpField("UpdatedAt") != nil {
		fields = append(fields, "UpdatedAt")
	}
	return fields, nil
}

// Delete returns ErrNotFound when no row was removed.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if result.Error != nil {
		return Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository[T]) preload(db *gorm.DB) *gorm.DB {
	for _, assoc := range r.fields.Preloads {
		db = db.Preload(assoc)
	}
	return db
}

func (r *Repository[T]) applyWhere(db *gorm.DB, where map[string]any) (*gorm.DB, error) {
	for attr, value := range where {
		column, ok := r.fields.Filterable[attr]
		if !ok {
			return nil, fmt.Errorf("%w: cannot filter by %s", ErrInvalidField, attr)
		}
		col := clause.Column{Name: column}

		switch {
		case value == nil:
			db = db.Where(clause.Eq{Column: col, Value: nil})
		case reflect.TypeOf(value).Kind() == reflect.Slice:
			db = db.Where(clause.IN{Column: col, Values: toValues(value)})
		default:
			db = db.Where(clause.Eq{Column: col, Value: value})
		}
	}
	return db, nil
}

func (r *Repository[T]) applyOrder(db *gorm.DB, order string) (*gorm.DB, error) {
	if order == "" {
		return db, nil
	}
	for _, part := range strings.Split(order, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		column, ok := r.sortable[fields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: cannot order by %s", ErrInvalidField, fields[0])
		}
		desc := false
		if len(fields) > 1 {
			switch strings.ToLower(fields[1]) {
			case "asc":
			case "desc":
				desc = true
			default:
				return nil, fmt.Errorf("%w: bad order direction %q", ErrInvalidField, fields[1])
			}
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	}
	return db, nil
}

func toValues(slice any) []any {
	v := reflect.ValueOf(slice)
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}

// Translate maps gorm errors onto the package's sentinel errors.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
