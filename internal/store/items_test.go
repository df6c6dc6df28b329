package store

import (
	"reflect"
	"testing"
)

func TestGetSet(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok:%v err:%v; want absent, nil", ok, err)
	}

	if err := s.Set("antigravityAuthStatus", `{"email":"a@example.com"}`); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	value, ok, err := s.Get("antigravityAuthStatus")
	if err != nil || !ok {
		t.Fatalf("Get() = ok:%v err:%v", ok, err)
	}
	if value != `{"email":"a@example.com"}` {
		t.Errorf("Expected value to round-trip verbatim, got %q", value)
	}

	// Overwrite keeps a single row.
	if err := s.Set("antigravityAuthStatus", "second"); err != nil {
		t.Fatalf("Set() overwrite failed: %v", err)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 row after overwrite, got %d", n)
	}
}

func TestGet_BlobValue(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.DB().Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", "blob", []byte("raw bytes")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	value, ok, err := s.Get("blob")
	if err != nil || !ok {
		t.Fatalf("Get() = ok:%v err:%v", ok, err)
	}
	if value != "raw bytes" {
		t.Errorf("Expected %q, got %q", "raw bytes", value)
	}
}

func TestFindKeys(t *testing.T) {
	s := newTestStore(t)

	for _, k := range []string{
		"antigravity.notification.b",
		"antigravity.notification.a",
		"antigravity.notificationX",
		"antigravity_notification.c",
		"other.key",
	} {
		if err := s.Set(k, "1"); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{
			name:   "notification prefix is matched literally and sorted",
			prefix: "antigravity.notification.",
			want:   []string{"antigravity.notification.a", "antigravity.notification.b"},
		},
		{
			name:   "underscore is not a wildcard",
			prefix: "antigravity_",
			want:   []string{"antigravity_notification.c"},
		},
		{
			name:   "no match",
			prefix: "nothing.",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindKeys(tt.prefix)
			if err != nil {
				t.Fatalf("FindKeys() failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindKeys(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestDeleteKeys(t *testing.T) {
	s := newTestStore(t)

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(k, k); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	removed, err := s.DeleteKeys([]string{"a", "c", "absent"})
	if err != nil {
		t.Fatalf("DeleteKeys() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	if _, ok, _ := s.Get("b"); !ok {
		t.Error("Expected key b to survive")
	}
	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("Expected empty table, got %d rows", n)
	}

	if removed, err := s.DeleteKeys(nil); err != nil || removed != 0 {
		t.Errorf("DeleteKeys(nil) = %d, %v; want 0, nil", removed, err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a%b_c\d`); got != `a\%b\_c\\d` {
		t.Errorf("escapeLike() = %q", got)
	}
}
