package snapshots

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/devalexanderdaza/antigravity-agent/internal/store"
)

var testKeys = KeySet{
	WellKnown:          []string{"k1", "k2", "k3", "k4", "k5"},
	Marker:             "__$__targetStorageMarker",
	AuthStatus:         "k1",
	NotificationPrefix: "ntf.",
}

// newTestStore creates an in-memory state database with ItemTable.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *store.Store, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		if err := db.Set(k, v); err != nil {
			t.Fatalf("Failed to set %s: %v", k, err)
		}
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(filepath.Join(t.TempDir(), "antigravity-accounts"), testKeys)
	m.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func readDoc(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Failed to parse snapshot: %v", err)
	}
	return doc
}

func TestCapture_CreatesDocument(t *testing.T) {
	db := newTestStore(t)
	seed(t, db, map[string]string{
		"k1":        `{"email":"a@example.com"}`,
		"k2":        "plain",
		"ntf.one":   "seen",
		"unrelated": "ignored",
	})
	m := newTestManager(t)

	name, overwritten, err := m.Capture(db, "a@example.com")
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if name != "a@example.com" {
		t.Errorf("Expected name a@example.com, got %s", name)
	}
	if overwritten {
		t.Error("Expected overwritten=false for first capture")
	}

	doc := readDoc(t, filepath.Join(m.Dir(), "a@example.com.json"))
	if doc["k1"] != `{"email":"a@example.com"}` {
		t.Errorf("Expected k1 stored verbatim as a string, got %#v", doc["k1"])
	}
	if doc["k2"] != "plain" {
		t.Errorf("Expected k2=plain, got %#v", doc["k2"])
	}
	if _, ok := doc["unrelated"]; ok {
		t.Error("Unrelated key should not be captured")
	}
	if doc[FieldAccountEmail] != "a@example.com" {
		t.Errorf("Expected account_email a@example.com, got %#v", doc[FieldAccountEmail])
	}
	if doc[FieldBackupTime] != "2025-03-01T12:00:00Z" {
		t.Errorf("Expected RFC3339 backup_time, got %#v", doc[FieldBackupTime])
	}

	// No temporary file left behind.
	if _, err := os.Stat(filepath.Join(m.Dir(), "a@example.com.json.tmp")); !os.IsNotExist(err) {
		t.Errorf("Expected temporary file to be gone, stat error = %v", err)
	}
}

func TestCapture_IdempotentExceptTimestamp(t *testing.T) {
	db := newTestStore(t)
	seed(t, db, map[string]string{
		"k1":                       `{"email":"a@example.com"}`,
		"k3":                       "three",
		"ntf.b":                    "1",
		"ntf.a":                    "2",
		"__$__targetStorageMarker": `{"z":1,"a":[1,2]}`,
	})
	m := newTestManager(t)

	if _, _, err := m.Capture(db, "a@example.com"); err != nil {
		t.Fatalf("first Capture() failed: %v", err)
	}
	path := filepath.Join(m.Dir(), "a@example.com.json")
	first, _ := os.ReadFile(path)

	m.now = func() time.Time { return time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC) }
	_, overwritten, err := m.Capture(db, "a@example.com")
	if err != nil {
		t.Fatalf("second Capture() failed: %v", err)
	}
	if !overwritten {
		t.Error("Expected overwritten=true on second capture")
	}
	second, _ := os.ReadFile(path)

	stripped := func(b []byte) []byte {
		return bytes.Replace(bytes.Replace(b,
			[]byte("2025-03-01T12:00:00Z"), []byte("TS"), 1),
			[]byte("2025-03-02T08:30:00Z"), []byte("TS"), 1)
	}
	if !bytes.Equal(stripped(first), stripped(second)) {
		t.Errorf("Expected identical content apart from timestamp:\n%s\n---\n%s", first, second)
	}
	if bytes.Equal(first, second) {
		t.Error("Expected timestamps to differ")
	}
}

func TestCapture_PartialKeysOmitsMissing(t *testing.T) {
	db := newTestStore(t)
	seed(t, db, map[string]string{"k2": "two", "k4": "four"})
	m := newTestManager(t)

	if _, _, err := m.Capture(db, "b@example.com"); err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}

	doc := readDoc(t, filepath.Join(m.Dir(), "b@example.com.json"))
	dataKeys := 0
	for k := range doc {
		if !isMetadata(k) {
			dataKeys++
		}
	}
	if dataKeys != 2 {
		t.Errorf("Expected exactly 2 data keys, got %d: %v", dataKeys, doc)
	}
	for _, missing := range []string{"k1", "k3", "k5", FieldNotificationKeys, testKeys.Marker} {
		if _, ok := doc[missing]; ok {
			t.Errorf("Expected %s to be omitted", missing)
		}
	}
}

func TestCapture_MarkerStoredStructured(t *testing.T) {
	db := newTestStore(t)
	seed(t, db, map[string]string{testKeys.Marker: `{"a":1}`})
	m := newTestManager(t)

	if _, _, err := m.Capture(db, "c@example.com"); err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}

	doc := readDoc(t, filepath.Join(m.Dir(), "c@example.com.json"))
	marker, ok := doc[testKeys.Marker].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected marker to be a JSON object, got %#v", doc[testKeys.Marker])
	}
	if marker["a"] != float64(1) {
		t.Errorf("Expected marker.a == 1, got %#v", marker["a"])
	}
}

func TestCapture_UnparsableMarkerSkipped(t *testing.T) {
	db := newTestStore(t)
	seed(t, db, map[string]string{testKeys.Marker: `{not json`, "k2": "two"})
	m := newTestManager(t)

	if _, _, err := m.Capture(db, "d@example.com"); err != nil {
		t.Fatalf("Capture() should tolerate a bad marker: %v", err)
	}
	doc := readDoc(t, filepath.Join(m.Dir(), "d@example.com.json"))
	if _, ok := doc[testKeys.Marker]; ok {
		t.Error("Expected unparsable marker to be skipped")
	}
}

func TestCapture_StoreErrorIsFatal(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer db.Close()
	m := newTestManager(t)

	// No schema: every read fails.
	_, _, err = m.Capture(db, "e@example.com")
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if m.Exists("e@example.com") {
		t.Error("No snapshot file should be written when capture fails")
	}
}

func TestCapture_InvalidAccountID(t *testing.T) {
	db := newTestStore(t)
	m := newTestManager(t)

	for _, id := range []string{"", "  ", ".", ".."} {
		if _, _, err := m.Capture(db, id); !errors.Is(err, ErrInvalidAccountID) {
			t.Errorf("Capture(%q) error = %v; want ErrInvalidAccountID", id, err)
		}
	}
}

func TestSnapshotName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user@example.com", "user@example.com"},
		{"a/b\\c", "a_b_c"},
		{`x:y*z?"<>|`, "x_y_z_____"},
		{"tab\tname", "tab_name"},
		{"  padded@example.com  ", "padded@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SnapshotName(tt.in)
			if err != nil {
				t.Fatalf("SnapshotName() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("SnapshotName(%q) = %q, want %q", tt.in, got, tt.want)
			}
			again, _ := SnapshotName(got)
			if again != got {
				t.Errorf("SnapshotName is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
