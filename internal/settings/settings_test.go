package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/unidate/unidate-admin/internal/db/dbtest"
)

func TestIntAcceptsLooseEncodings(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		"a": json.RawMessage(`42`),
		"b": json.RawMessage(`"17"`),
		"c": json.RawMessage(`{"value": 9}`),
		"d": json.RawMessage(`3.5`),
		"e": json.RawMessage(`8.0`),
	})
	defer Store(time.Time{}, nil)

	cases := map[string]int{"a": 42, "b": 17, "c": 9, "d": -1, "e": 8, "missing": -1}
	for key, want := range cases {
		if got := Int(key, -1); got != want {
			t.Fatalf("Int(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestValueReturnsCopy(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{SiteNameKey: json.RawMessage(`"UniDate"`)})
	defer Store(time.Time{}, nil)

	raw, ok := Value(SiteNameKey)
	if !ok {
		t.Fatalf("expected value present")
	}
	raw[1] = 'X'
	if got := String(SiteNameKey, DefaultSiteName); got != "UniDate" {
		t.Fatalf("expected stored value untouched, got %q", got)
	}
}

func TestPutUpsertsAndRefreshes(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	defer Store(time.Time{}, nil)

	if errPut := Put(ctx, conn, MetricsRefreshIntervalSecondsKey, json.RawMessage(`60`), "admin-1"); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	if got := Int(MetricsRefreshIntervalSecondsKey, 0); got != 60 {
		t.Fatalf("expected 60 after put, got %d", got)
	}

	if errPut := Put(ctx, conn, MetricsRefreshIntervalSecondsKey, json.RawMessage(`15`), "admin-2"); errPut != nil {
		t.Fatalf("second put: %v", errPut)
	}
	if got := Int(MetricsRefreshIntervalSecondsKey, 0); got != 15 {
		t.Fatalf("expected 15 after overwrite, got %d", got)
	}

	if errPut := Put(ctx, conn, SiteNameKey, json.RawMessage(`not json`), "admin-1"); errPut == nil {
		t.Fatalf("expected invalid json rejected")
	}
}
