// Package confstore owns the agent's local JSON state document: the
// endpoint identity record plus named record collections such as
// monitor_data. Every mutating operation rewrites the document through an
// atomic temp-file replace, so a crash mid-write never leaves a corrupt
// file behind.
package confstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// EndpointCollection is the singleton identity record every fresh
// document starts with.
const EndpointCollection = "endpoint_data"

var endpointFields = []string{
	"endpoint_id",
	"endpoint_name",
	"parent_endpoint_name",
	"parent_endpoint_id",
}

// Logger is the side-channel the store reports through. The store's
// behavior never depends on log output, only callers' does.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Dependencies allow callers to inject a logging sink.
type Dependencies struct {
	Logger Logger
}

// Store manipulates one on-disk document. Access is single-actor: callers
// must serialize externally, the store takes no file lock.
type Store struct {
	path   string
	logger Logger
}

// New builds a store bound to the document at path.
func New(path string, deps Dependencies) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Store{path: path, logger: logger}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Create writes a fresh document holding an empty endpoint record and no
// collections. An existing document is left untouched unless overwrite is
// set.
func (s *Store) Create(ctx context.Context, overwrite bool) error {
	if _, err := os.Stat(s.path); err == nil {
		if !overwrite {
			s.logger.Errorf("create %s: document already exists", s.path)
			return fmt.Errorf("document %q: %w", s.path, ErrAlreadyExists)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return ioFailure(fmt.Sprintf("stat %q", s.path), err)
	}

	endpoint := NewObject()
	for _, field := range endpointFields {
		endpoint.Set(field, String(""))
	}
	doc := NewObject()
	doc.Set(EndpointCollection, endpoint)

	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("created configuration file %s", s.path)
	return nil
}

// Validity is the outcome of a Validate probe.
type Validity int

const (
	ValidityMissing Validity = iota
	ValidityInvalid
	ValidityValid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Validate classifies the document without mutating it.
func (s *Store) Validate(ctx context.Context) Validity {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ValidityMissing
	}
	doc, err := Parse(data)
	if err != nil || doc.Kind() != KindObject {
		return ValidityInvalid
	}
	return ValidityValid
}

// ReadValue resolves a dotted/indexed path against the document. An
// absent path or an explicit null resolves to ErrNotFound, which is a
// normal outcome, not a failure.
func (s *Store) ReadValue(ctx context.Context, fieldPath string) (*Value, error) {
	segs, err := parsePath(fieldPath)
	if err != nil {
		return nil, err
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	val, ok := resolve(doc, segs)
	if !ok || val.IsNull() {
		return nil, fmt.Errorf("path %q: %w", fieldPath, ErrNotFound)
	}
	return val, nil
}

// WriteValue sets the string value at fieldPath, creating the single
// trailing key when absent. Intermediate structure must already resolve.
func (s *Store) WriteValue(ctx context.Context, fieldPath, value string) error {
	segs, err := parsePath(fieldPath)
	if err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}

	parent, last, ok := resolveParent(doc, segs)
	if !ok {
		s.logger.Errorf("write %s: parent path does not resolve", fieldPath)
		return fmt.Errorf("path %q: %w", fieldPath, ErrNotFound)
	}

	if last.isIndex {
		if parent.Kind() != KindArray {
			return fmt.Errorf("path %q: parent is not an array: %w", fieldPath, ErrNotFound)
		}
		if last.index >= parent.Len() {
			return fmt.Errorf("path %q: index out of range: %w", fieldPath, ErrNotFound)
		}
		parent.items[last.index] = String(value)
	} else {
		if parent.Kind() != KindObject {
			return fmt.Errorf("path %q: parent is not an object: %w", fieldPath, ErrNotFound)
		}
		parent.Set(last.field, String(value))
	}

	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("set %s in %s", fieldPath, s.path)
	return nil
}

// DeleteKey removes the key or object at fieldPath. The path is checked
// before any mutation; an unresolvable path fails with ErrNotFound.
func (s *Store) DeleteKey(ctx context.Context, fieldPath string) error {
	segs, err := parsePath(fieldPath)
	if err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := resolve(doc, segs); !ok {
		return fmt.Errorf("path %q: %w", fieldPath, ErrNotFound)
	}

	parent, last, _ := resolveParent(doc, segs)
	if last.isIndex {
		parent.RemoveIndex(last.index)
	} else {
		parent.Delete(last.field)
	}

	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("removed %s from %s", fieldPath, s.path)
	return nil
}

// KeyExists probes for a path. Absence is a boolean result with a logged
// warning, never a failure.
func (s *Store) KeyExists(ctx context.Context, fieldPath string) (bool, error) {
	segs, err := parsePath(fieldPath)
	if err != nil {
		return false, err
	}
	doc, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := resolve(doc, segs); !ok {
		s.logger.Warnf("key %s does not exist in %s", fieldPath, s.path)
		return false, nil
	}
	return true, nil
}

// FindRecord scans the named collection for the first record whose key
// field equals value, comparing the value case-insensitively. The
// uniqueness invariant makes the first match the only one for _id/_name
// keys.
func (s *Store) FindRecord(ctx context.Context, collection, key, value string) (*Value, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	records, err := s.collection(doc, collection)
	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, fmt.Errorf("collection %q: %w", collection, ErrNotFound)
	}
	for _, rec := range records.Items() {
		field, ok := rec.Get(key)
		if ok && equalText(field, value) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("no record with %s=%q in %q: %w", key, value, collection, ErrNotFound)
}

// AddRecord appends a record to the named collection, creating the
// collection on first insert. Every record key ending in _id or _name is
// checked against existing records for an exact key/value collision
// before anything is written.
func (s *Store) AddRecord(ctx context.Context, collection string, rec *Value) error {
	if rec == nil || rec.Kind() != KindObject {
		return fmt.Errorf("record must be an object")
	}
	doc, err := s.load()
	if err != nil {
		return err
	}
	records, err := s.collection(doc, collection)
	if err != nil {
		return err
	}
	if records == nil {
		records = NewArray()
		doc.Set(collection, records)
	}

	for _, f := range rec.Fields() {
		if !isUniqueKey(f.Key) {
			continue
		}
		want := f.Value.Text()
		for _, existing := range records.Items() {
			field, ok := existing.Get(f.Key)
			if ok && field.Text() == want {
				dup := &DuplicateKeyError{Collection: collection, Key: f.Key, Value: want}
				s.logger.Errorf("add record to %s: %v", collection, dup)
				return dup
			}
		}
	}

	records.Append(rec)
	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("added record to %s in %s", collection, s.path)
	return nil
}

// DeleteRecord removes every record in the collection whose key field
// case-insensitively equals value. Zero matches fail with ErrNotFound
// before any mutation.
func (s *Store) DeleteRecord(ctx context.Context, collection, key, value string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	records, err := s.collection(doc, collection)
	if err != nil {
		return err
	}
	if records == nil {
		return fmt.Errorf("collection %q: %w", collection, ErrNotFound)
	}

	removed := 0
	for i := records.Len() - 1; i >= 0; i-- {
		rec, _ := records.Index(i)
		field, ok := rec.Get(key)
		if ok && equalText(field, value) {
			records.RemoveIndex(i)
			removed++
		}
	}
	if removed == 0 {
		return fmt.Errorf("no record with %s=%q in %q: %w", key, value, collection, ErrNotFound)
	}

	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("removed %d record(s) from %s in %s", removed, collection, s.path)
	return nil
}

// UpdateRecordField sets updateKey on every record whose searchKey field
// exactly equals searchValue. Zero matches is a successful no-op that
// leaves the document untouched.
func (s *Store) UpdateRecordField(ctx context.Context, collection, searchKey, searchValue, updateKey, updateValue string) error {
	doc, err := s.load()
	if err != nil {
		return err
	}
	records, err := s.collection(doc, collection)
	if err != nil {
		return err
	}
	if records == nil {
		return nil
	}

	updated := 0
	for _, rec := range records.Items() {
		field, ok := rec.Get(searchKey)
		if ok && field.Text() == searchValue {
			rec.Set(updateKey, String(updateValue))
			updated++
		}
	}
	if updated == 0 {
		return nil
	}

	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Infof("updated %d record(s) in %s in %s", updated, collection, s.path)
	return nil
}

// AddRecordField adds newKey to every record whose searchKey field
// exactly equals searchValue. Behaviorally identical to
// UpdateRecordField; the separate name states intent.
func (s *Store) AddRecordField(ctx context.Context, collection, searchKey, searchValue, newKey, newValue string) error {
	return s.UpdateRecordField(ctx, collection, searchKey, searchValue, newKey, newValue)
}

// CountRecords returns the length of the named collection, 0 when absent.
func (s *Store) CountRecords(ctx context.Context, collection string) (int, error) {
	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	records, err := s.collection(doc, collection)
	if err != nil {
		return 0, err
	}
	if records == nil {
		return 0, nil
	}
	return records.Len(), nil
}

func (s *Store) collection(doc *Value, name string) (*Value, error) {
	val, ok := doc.Get(name)
	if !ok {
		return nil, nil
	}
	if val.Kind() != KindArray {
		s.logger.Errorf("collection %s in %s is not an array", name, s.path)
		return nil, fmt.Errorf("%w: collection %q is not an array", ErrMalformedDocument, name)
	}
	return val, nil
}

func (s *Store) load() (*Value, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("document %q: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return nil, ioFailure(fmt.Sprintf("read %q", s.path), err)
	}
	doc, err := Parse(data)
	if err != nil {
		s.logger.Errorf("parse %s: %v", s.path, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, s.path, err)
	}
	if doc.Kind() != KindObject {
		s.logger.Errorf("parse %s: root is not an object", s.path)
		return nil, fmt.Errorf("%w: %s: root is not an object", ErrMalformedDocument, s.path)
	}
	return doc, nil
}

func (s *Store) save(doc *Value) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc.Encode(), 0o600); err != nil {
		os.Remove(tmp)
		s.logger.Errorf("write %s: %v", tmp, err)
		return ioFailure(fmt.Sprintf("write temp document %q", tmp), err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		s.logger.Errorf("commit %s: %v", s.path, err)
		return ioFailure(fmt.Sprintf("commit document %q", s.path), err)
	}
	return nil
}

func isUniqueKey(key string) bool {
	return strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "_name")
}
