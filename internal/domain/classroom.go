package domain

import (
	"encoding/json"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GlobalKey is the reserved cache key for the reference set of all active
// students, with no classroom filter.
const GlobalKey = "*ALL*"

// classroomIDFields is the preference order used to pull an identifier out of
// a JSON-shaped classroom id.
var classroomIDFields = []string{"$oid", "_id", "classroomId", "id"}

// maxUnwrapDepth bounds how many JSON wrappers are peeled off a raw id.
const maxUnwrapDepth = 4

// ClassroomKey is the canonical form of a classroom identifier. When the
// identifier is a Mongo ObjectID, Key is its lowercase hex form and ObjectID
// carries the parsed value for store queries.
type ClassroomKey struct {
	Key         string
	ObjectID    primitive.ObjectID
	HasObjectID bool
}

func (k ClassroomKey) String() string {
	return k.Key
}

// IsEmpty reports whether no classroom was specified.
func (k ClassroomKey) IsEmpty() bool {
	return k.Key == ""
}

// IsGlobal reports whether the key is the reserved all-students key.
func (k ClassroomKey) IsGlobal() bool {
	return k.Key == GlobalKey
}

// GlobalClassroomKey returns the reserved key for the unfiltered reference set.
func GlobalClassroomKey() ClassroomKey {
	return ClassroomKey{Key: GlobalKey}
}

// ParseClassroomID unwraps a classroom id that may arrive as a JSON object
// such as {"$oid": "..."} or {"_id": {"$oid": "..."}}. Anything that is not a
// recognisable wrapper is returned trimmed and otherwise unchanged.
func ParseClassroomID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return trimmed
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return trimmed
	}

	if id, ok := lookupClassroomID(obj, 1); ok {
		return strings.TrimSpace(id)
	}
	return trimmed
}

// lookupClassroomID looks for a string id under the preferred field names,
// descending at most depth levels into sub-documents.
func lookupClassroomID(obj map[string]any, depth int) (string, bool) {
	for _, field := range classroomIDFields {
		if s, ok := obj[field].(string); ok {
			return s, true
		}
	}

	if depth == 0 {
		return "", false
	}

	for _, field := range classroomIDFields {
		nested, ok := obj[field].(map[string]any)
		if !ok {
			continue
		}
		if s, ok := lookupClassroomID(nested, depth-1); ok {
			return s, true
		}
	}
	return "", false
}

// NormalizeClassroomKey maps every textual form of a classroom id to a single
// canonical key. It is total and idempotent.
func NormalizeClassroomKey(raw string) ClassroomKey {
	id := raw
	for i := 0; i < maxUnwrapDepth; i++ {
		next := ParseClassroomID(id)
		if next == id {
			break
		}
		id = next
	}

	if id == "" {
		return ClassroomKey{}
	}

	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return ClassroomKey{Key: oid.Hex(), ObjectID: oid, HasObjectID: true}
	}
	return ClassroomKey{Key: id}
}

// ResolveClassroomID picks the classroom id from a request that may carry it
// under several fields: the primary field, an alternate field, then any form
// field whose name contains "classroomid" (case-insensitive, in name order).
// The first candidate that yields a non-empty id wins.
func ResolveClassroomID(primary, alt string, form map[string]string) string {
	candidates := make([]string, 0, 2+len(form))
	seen := make(map[string]struct{})

	add := func(v string) {
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		candidates = append(candidates, v)
	}

	add(primary)
	add(alt)

	names := make([]string, 0, len(form))
	for name := range form {
		if strings.Contains(strings.ToLower(name), "classroomid") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		add(form[name])
	}

	for _, c := range candidates {
		if parsed := ParseClassroomID(c); parsed != "" {
			return parsed
		}
	}
	return ""
}
