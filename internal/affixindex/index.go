// Package affixindex implements the per-server two-layer affix index: a
// KeyTrie whose terminals own a ValueTrie, supporting exact, prefix,
// suffix, infix, and wildcard lookups over both keys and values.
package affixindex

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sashank1508/idioms/internal/errs"
)

// Record is a single (key,value,objectID) triple, as accepted by
// AddRecord and produced when replaying a checkpoint.
type Record struct {
	Key      string
	Value    string
	ObjectID int64
}

// Index is the local two-layer affix index for one server. It also
// tracks objectMetadata (objectID -> records) so that deletes and
// checkpoints can operate without re-walking the tries.
type Index struct {
	mu                sync.RWMutex
	keys              *KeyTrie
	useSuffixTreeMode bool
	objectMetadata    map[int64][]kv
	log               *zap.Logger
}

type kv struct {
	Key   string
	Value string
}

// New constructs an empty Index. useSuffixTreeMode, once chosen, applies
// to every key/value inserted through this Index.
func New(useSuffixTreeMode bool) *Index {
	return &Index{
		keys:              NewKeyTrie(useSuffixTreeMode),
		useSuffixTreeMode: useSuffixTreeMode,
		objectMetadata:    make(map[int64][]kv),
		log:               zap.NewNop(),
	}
}

// UseSuffixTreeMode reports whether this index was built in suffix mode.
func (idx *Index) UseSuffixTreeMode() bool {
	return idx.useSuffixTreeMode
}

// SetLogger installs the logger Query warns through when a suffix or
// infix pattern degrades to empty because this index was not built in
// suffix mode. A nil logger is treated as a no-op logger.
func (idx *Index) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.log = logger
}

// AddRecord inserts (key,value,objectID). Inserting the same triple
// twice is idempotent at the id-set level: the trie structure and the
// objectMetadata entry are unchanged on a repeat insert.
func (idx *Index) AddRecord(key, value string, objectID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var values *ValueTrie
	if idx.useSuffixTreeMode {
		values = idx.keys.InsertKeyWithSuffixMode(key)
		values.InsertValueWithSuffixMode(value, objectID)
	} else {
		values = idx.keys.InsertKeyOnly(key, "")
		values.InsertValue(value, objectID, "")
	}

	for _, rec := range idx.objectMetadata[objectID] {
		if rec.Key == key && rec.Value == value {
			return
		}
	}
	idx.objectMetadata[objectID] = append(idx.objectMetadata[objectID], kv{Key: key, Value: value})
}

// RemoveRecord removes the (key,value) pair from objectID's metadata
// list; if the list becomes empty, the objectID entry is dropped
// entirely. The in-memory trie itself is not shrunk — see the design
// notes' known limitation on removeIndexedKey.
//
// RemoveRecord reports whether the record existed (a no-op delete for an
// unknown record is a topology error the caller logs and ignores, per
// the design's error taxonomy).
func (idx *Index) RemoveRecord(key, value string, objectID int64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	recs, ok := idx.objectMetadata[objectID]
	if !ok {
		return false
	}
	found := false
	kept := recs[:0]
	for _, rec := range recs {
		if !found && rec.Key == key && rec.Value == value {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return false
	}
	if len(kept) == 0 {
		delete(idx.objectMetadata, objectID)
	} else {
		idx.objectMetadata[objectID] = kept
	}

	if values := idx.keys.SearchExact(key); values != nil {
		if ids := values.SearchExact(value); ids != nil {
			delete(ids, objectID)
		}
	}
	return true
}

// Query resolves a "keyPattern=valuePattern" query string and returns
// the sorted, deduplicated set of matching object ids.
func (idx *Index) Query(queryStr string) ([]int64, error) {
	keyPattern, valuePattern, err := SplitQuery(queryStr)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	valueTries := idx.resolveKeyPattern(keyPattern)
	resultSet := make(map[int64]struct{})
	valueShape, valueBody := ClassifyPattern(valuePattern)
	if !idx.useSuffixTreeMode && (valueShape == Suffix || valueShape == Infix) {
		idx.log.Warn("value pattern degrades to empty: index is not in suffix mode",
			zap.String("query", queryStr), zap.String("shape", valueShape.String()))
	}
	for _, vt := range valueTries {
		var ids map[int64]struct{}
		switch valueShape {
		case Exact:
			ids = vt.SearchExact(valueBody)
		case Prefix:
			ids = vt.SearchPrefix(valueBody)
		case Suffix:
			ids = vt.SearchSuffix(valueBody)
		case Infix:
			ids = vt.SearchInfix(valueBody)
		case Wildcard:
			ids = vt.SearchWildcard()
		}
		mergeInto(resultSet, ids)
	}

	results := make([]int64, 0, len(resultSet))
	for id := range resultSet {
		results = append(results, id)
	}
	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results, nil
}

func (idx *Index) resolveKeyPattern(keyPattern string) []*ValueTrie {
	shape, body := ClassifyPattern(keyPattern)
	if !idx.useSuffixTreeMode && (shape == Suffix || shape == Infix) {
		idx.log.Warn("key pattern degrades to empty: index is not in suffix mode",
			zap.String("pattern", keyPattern), zap.String("shape", shape.String()))
	}
	switch shape {
	case Exact:
		if vt := idx.keys.SearchExact(body); vt != nil {
			return []*ValueTrie{vt}
		}
		return nil
	case Prefix:
		return idx.keys.SearchPrefix(body)
	case Suffix:
		return idx.keys.SearchSuffix(body)
	case Infix:
		return idx.keys.SearchInfix(body)
	case Wildcard:
		return idx.keys.SearchWildcard()
	}
	return nil
}

// ExecuteQuery is the server-loop entry point: it folds the design's
// canHandleQuery/executeQuery pair into one call that returns an empty
// slice when nothing matches, per the REDESIGN FLAG in the design notes
// — the wire protocol is unaffected because callers only check result
// emptiness.
func (idx *Index) ExecuteQuery(queryStr string) ([]int64, error) {
	return idx.Query(queryStr)
}

// Snapshot returns a copy of objectMetadata suitable for checkpointing.
func (idx *Index) Snapshot() map[int64][]Record {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[int64][]Record, len(idx.objectMetadata))
	for id, recs := range idx.objectMetadata {
		copied := make([]Record, len(recs))
		for i, r := range recs {
			copied[i] = Record{Key: r.Key, Value: r.Value, ObjectID: id}
		}
		out[id] = copied
	}
	return out
}

// Restore rebuilds the trie by replaying AddRecord for every record in
// records, as recoverIndex does from a checkpoint file.
func (idx *Index) Restore(records map[int64][]Record) {
	for _, recs := range records {
		for _, r := range recs {
			idx.AddRecord(r.Key, r.Value, r.ObjectID)
		}
	}
}

// SplitQuery splits a "keyPattern=valuePattern" query string on the
// first '='. A missing '=' means the whole string is the key-portion and
// the value defaults to "*".
func SplitQuery(queryStr string) (keyPattern, valuePattern string, err error) {
	if queryStr == "" {
		return "", "", errs.New(errs.CodeParse, "empty query string")
	}
	for i := 0; i < len(queryStr); i++ {
		if queryStr[i] == '=' {
			return queryStr[:i], queryStr[i+1:], nil
		}
	}
	return queryStr, "*", nil
}
