package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op names a collection operation for fault injection and call recording
type Op string

const (
	OpInsert  Op = "insert"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpFind    Op = "find"
	OpFindOne Op = "findOne"
)

// ErrInjected is returned by operations failed through FailOn or FailFrom
var ErrInjected = errors.New("docstore: injected failure")

// Call records one operation issued against a MemoryStore
type Call struct {
	Op         Op
	Collection string
	Failed     bool
}

type fault struct {
	op         Op
	collection string
	nth        int
	persistent bool
	seen       int
	spent      bool
}

// MemoryStore is an in-process Store. Documents are kept in their BSON form
// so values round-trip exactly as they would through MongoDB. It supports
// equality/$in filters, dotted paths, $set with "$[ident]" array filters,
// $push and $pull.
type MemoryStore struct {
	mu          sync.Mutex
	registry    *bsoncodec.Registry
	collections map[string][]bson.M
	faults      []*fault
	calls       []Call
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registry:    NewRegistry(),
		collections: make(map[string][]bson.M),
	}
}

// Collection returns the named collection
func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *MemoryStore) Close(context.Context) error { return nil }

// FailOn makes the nth call (1-based, counted from now) of op on collection
// return ErrInjected. Other calls are unaffected.
func (s *MemoryStore) FailOn(op Op, collection string, nth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{op: op, collection: collection, nth: nth})
}

// FailFrom makes the nth call of op on collection and every later one fail
func (s *MemoryStore) FailFrom(op Op, collection string, nth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, &fault{op: op, collection: collection, nth: nth, persistent: true})
}

// ClearFaults removes every injected fault
func (s *MemoryStore) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = nil
}

// Calls returns the operations issued so far
func (s *MemoryStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Seed inserts documents without fault injection or call recording
func (s *MemoryStore) Seed(collection string, docs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		doc, err := s.toDoc(d)
		if err != nil {
			return err
		}
		s.collections[collection] = append(s.collections[collection], doc)
	}
	return nil
}

// Snapshot returns a deep copy of a collection's documents in insertion order
func (s *MemoryStore) Snapshot(collection string) []bson.M {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	out := make([]bson.M, len(docs))
	for i, d := range docs {
		out[i] = deepCopy(d).(bson.M)
	}
	return out
}

// begin records the call and reports an injected fault, if any.
// Caller holds s.mu.
func (s *MemoryStore) begin(ctx context.Context, op Op, collection string) error {
	if err := ctx.Err(); err != nil {
		s.calls = append(s.calls, Call{Op: op, Collection: collection, Failed: true})
		return err
	}
	var failed bool
	for _, f := range s.faults {
		if f.op != op || f.collection != collection || f.spent {
			continue
		}
		f.seen++
		if f.seen == f.nth || (f.persistent && f.seen > f.nth) {
			failed = true
			if !f.persistent {
				f.spent = true
			}
		}
	}
	s.calls = append(s.calls, Call{Op: op, Collection: collection, Failed: failed})
	if failed {
		return fmt.Errorf("%s %s: %w", collection, op, ErrInjected)
	}
	return nil
}

func (s *MemoryStore) toDoc(v any) (bson.M, error) {
	data, err := bson.MarshalWithRegistry(s.registry, v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err := bson.UnmarshalWithRegistry(s.registry, data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return normalize(m).(bson.M), nil
}

// toValue converts an arbitrary Go value to its stored BSON form
func (s *MemoryStore) toValue(v any) (any, error) {
	doc, err := s.toDoc(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return doc["v"], nil
}

func (s *MemoryStore) decode(doc bson.M, out any) error {
	data, err := bson.MarshalWithRegistry(s.registry, doc)
	if err != nil {
		return err
	}
	return bson.UnmarshalWithRegistry(s.registry, data, out)
}

func (s *MemoryStore) toFilter(f Filter) (Filter, error) {
	out := make(Filter, len(f))
	for k, v := range f {
		switch cond := v.(type) {
		case InValues:
			vals := make(InValues, len(cond))
			for i, c := range cond {
				cv, err := s.toValue(c)
				if err != nil {
					return nil, err
				}
				vals[i] = cv
			}
			out[k] = vals
		case Filter:
			sub, err := s.toFilter(cond)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		default:
			cv, err := s.toValue(v)
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
	}
	return out, nil
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) InsertOne(ctx context.Context, doc any) error {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpInsert, c.name); err != nil {
		return err
	}
	d, err := s.toDoc(doc)
	if err != nil {
		return err
	}
	if id, ok := d["id"]; ok {
		for _, existing := range s.collections[c.name] {
			if valuesEqual(existing["id"], id) {
				return fmt.Errorf("%s insert: duplicate id %v", c.name, id)
			}
		}
	}
	s.collections[c.name] = append(s.collections[c.name], d)
	return nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpUpdate, c.name); err != nil {
		return UpdateResult{}, err
	}
	f, err := s.toFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	docs := s.collections[c.name]
	for i, doc := range docs {
		if !matches(doc, f) {
			continue
		}
		next := deepCopy(doc).(bson.M)
		if err := s.apply(next, update); err != nil {
			return UpdateResult{}, fmt.Errorf("%s update: %w", c.name, err)
		}
		if reflect.DeepEqual(doc, next) {
			return UpdateResult{Matched: 1}, nil
		}
		docs[i] = next
		return UpdateResult{Matched: 1, Modified: 1}, nil
	}
	return UpdateResult{}, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDelete, c.name); err != nil {
		return 0, err
	}
	f, err := s.toFilter(filter)
	if err != nil {
		return 0, err
	}
	docs := s.collections[c.name]
	for i, doc := range docs {
		if matches(doc, f) {
			s.collections[c.name] = append(docs[:i:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter, out any) error {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFind, c.name); err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("%s find: out must be a pointer to a slice, got %T", c.name, out)
	}
	f, err := s.toFilter(filter)
	if err != nil {
		return err
	}
	sliceV := rv.Elem()
	result := reflect.MakeSlice(sliceV.Type(), 0, 0)
	for _, doc := range s.collections[c.name] {
		if !matches(doc, f) {
			continue
		}
		elem := reflect.New(sliceV.Type().Elem())
		if err := s.decode(doc, elem.Interface()); err != nil {
			return fmt.Errorf("%s decode: %w", c.name, err)
		}
		result = reflect.Append(result, elem.Elem())
	}
	sliceV.Set(result)
	return nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFindOne, c.name); err != nil {
		return err
	}
	f, err := s.toFilter(filter)
	if err != nil {
		return err
	}
	for _, doc := range s.collections[c.name] {
		if matches(doc, f) {
			return s.decode(doc, out)
		}
	}
	return ErrNoDocuments
}

// apply runs u against doc in place. Caller passes a private copy.
func (s *MemoryStore) apply(doc bson.M, u Update) error {
	arrayFilters, err := s.groupArrayFilters(u.ArrayFilters)
	if err != nil {
		return err
	}

	for _, path := range sortedKeys(u.Set) {
		val, err := s.toValue(u.Set[path])
		if err != nil {
			return err
		}
		if _, err := setIn(doc, strings.Split(path, "."), val, arrayFilters); err != nil {
			return fmt.Errorf("$set %s: %w", path, err)
		}
	}

	for _, path := range sortedKeys(u.Push) {
		val, err := s.toValue(u.Push[path])
		if err != nil {
			return err
		}
		segs := strings.Split(path, ".")
		current := getIn(doc, segs)
		switch arr := current.(type) {
		case nil:
			current = bson.A{val}
		case bson.A:
			current = append(arr, val)
		default:
			return fmt.Errorf("$push %s: field is not an array", path)
		}
		if _, err := setIn(doc, segs, current, nil); err != nil {
			return fmt.Errorf("$push %s: %w", path, err)
		}
	}

	for _, path := range sortedKeys(u.Pull) {
		cond, err := s.toFilter(u.Pull[path])
		if err != nil {
			return err
		}
		segs := strings.Split(path, ".")
		arr, ok := getIn(doc, segs).(bson.A)
		if !ok {
			continue
		}
		kept := bson.A{}
		for _, e := range arr {
			if elem, isDoc := e.(bson.M); isDoc && matches(elem, cond) {
				continue
			}
			kept = append(kept, e)
		}
		if _, err := setIn(doc, segs, kept, nil); err != nil {
			return fmt.Errorf("$pull %s: %w", path, err)
		}
	}
	return nil
}

// groupArrayFilters turns [{"it.id": x}] into {"it": {"id": x}}
func (s *MemoryStore) groupArrayFilters(afs []Filter) (map[string]Filter, error) {
	out := make(map[string]Filter, len(afs))
	for _, af := range afs {
		norm, err := s.toFilter(af)
		if err != nil {
			return nil, err
		}
		for key, cond := range norm {
			ident, rest, _ := strings.Cut(key, ".")
			if out[ident] == nil {
				out[ident] = Filter{}
			}
			out[ident][rest] = cond
		}
	}
	return out, nil
}

func matches(doc bson.M, f Filter) bool {
	for path, cond := range f {
		if !matchPath(doc, strings.Split(path, "."), cond) {
			return false
		}
	}
	return true
}

func matchPath(node any, segs []string, cond any) bool {
	if len(segs) == 0 {
		if arr, ok := node.(bson.A); ok {
			for _, e := range arr {
				if condMatches(e, cond) {
					return true
				}
			}
		}
		return condMatches(node, cond)
	}
	switch t := node.(type) {
	case bson.M:
		child, ok := t[segs[0]]
		if !ok {
			return cond == nil
		}
		return matchPath(child, segs[1:], cond)
	case bson.A:
		if idx, err := strconv.Atoi(segs[0]); err == nil {
			return idx < len(t) && matchPath(t[idx], segs[1:], cond)
		}
		for _, e := range t {
			if matchPath(e, segs, cond) {
				return true
			}
		}
	}
	return false
}

func condMatches(v, cond any) bool {
	switch c := cond.(type) {
	case InValues:
		for _, want := range c {
			if valuesEqual(v, want) {
				return true
			}
		}
		return false
	case Filter:
		doc, ok := v.(bson.M)
		return ok && matches(doc, c)
	}
	return valuesEqual(v, cond)
}

func elementMatches(elem any, f Filter) bool {
	for key, cond := range f {
		if key == "" {
			if !condMatches(elem, cond) {
				return false
			}
			continue
		}
		doc, ok := elem.(bson.M)
		if !ok || !matchPath(doc, strings.Split(key, "."), cond) {
			return false
		}
	}
	return true
}

func getIn(node any, segs []string) any {
	for _, seg := range segs {
		switch t := node.(type) {
		case bson.M:
			node = t[seg]
		case bson.A:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx >= len(t) {
				return nil
			}
			node = t[idx]
		default:
			return nil
		}
	}
	return node
}

func setIn(node any, segs []string, val any, arrayFilters map[string]Filter) (any, error) {
	if len(segs) == 0 {
		return val, nil
	}
	seg := segs[0]
	ident, positional := positionalIdent(seg)

	switch t := node.(type) {
	case nil:
		if positional {
			return nil, fmt.Errorf("no array to match $[%s]", ident)
		}
		child, err := setIn(nil, segs[1:], val, arrayFilters)
		if err != nil {
			return nil, err
		}
		return bson.M{seg: child}, nil
	case bson.M:
		if positional {
			return nil, fmt.Errorf("$[%s] used on a document", ident)
		}
		child, err := setIn(t[seg], segs[1:], val, arrayFilters)
		if err != nil {
			return nil, err
		}
		t[seg] = child
		return t, nil
	case bson.A:
		if positional {
			f, ok := arrayFilters[ident]
			if !ok {
				return nil, fmt.Errorf("no array filter found for identifier %q", ident)
			}
			for i, e := range t {
				if !elementMatches(e, f) {
					continue
				}
				child, err := setIn(e, segs[1:], val, arrayFilters)
				if err != nil {
					return nil, err
				}
				t[i] = child
			}
			return t, nil
		}
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(t) {
			return nil, fmt.Errorf("cannot address array with %q", seg)
		}
		child, err := setIn(t[idx], segs[1:], val, arrayFilters)
		if err != nil {
			return nil, err
		}
		t[idx] = child
		return t, nil
	}
	return nil, fmt.Errorf("cannot create field %q in a scalar", seg)
}

func positionalIdent(seg string) (string, bool) {
	if strings.HasPrefix(seg, "$[") && strings.HasSuffix(seg, "]") && len(seg) > 3 {
		return seg[2 : len(seg)-1], true
	}
	return "", false
}

func valuesEqual(a, b any) bool {
	if da, ok := toNumber(a); ok {
		if db, ok := toNumber(b); ok {
			return da.Equal(db)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case primitive.Decimal128:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}

// normalize rewrites decoded BSON so that documents are bson.M and arrays
// are bson.A at every depth
func normalize(v any) any {
	switch t := v.(type) {
	case bson.M:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case []any:
		return normalize(bson.A(t))
	}
	return v
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case bson.M:
		m := make(bson.M, len(t))
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case bson.A:
		a := make(bson.A, len(t))
		for i, e := range t {
			a[i] = deepCopy(e)
		}
		return a
	case primitive.Binary:
		return primitive.Binary{Subtype: t.Subtype, Data: append([]byte(nil), t.Data...)}
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
