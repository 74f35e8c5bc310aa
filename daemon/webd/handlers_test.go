package webd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotblauer/dotd/common"
	"github.com/rotblauer/dotd/testing/testdata"
)

func TestWebDaemon_ping(t *testing.T) {
	d, teardown := newTestWebDaemon("")
	defer teardown()

	router := d.NewRouter()
	req := httptest.NewRequest("GET", "http://dotd.test/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code not ok, got=%d", resp.StatusCode)
	}
	if body := w.Body.String(); body != "pong" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestWebDaemon_populate(t *testing.T) {
	defer common.SlogResetLevel(slog.Level(slog.LevelWarn + 1))()
	d, teardown := newTestWebDaemon("")
	defer teardown()
	router := d.NewRouter()

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	for i := int64(1); i <= 3; i++ {
		if err := enc.Encode(testdata.NewRideRecord(i, 44.98+float64(i), -93.25, 50, 10)); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest("POST", "http://dotd.test/populate", buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code not ok, got=%d body=%s", resp.StatusCode, w.Body.String())
	}
	if body := w.Body.String(); body != "[]" {
		t.Errorf("unexpected body: %q", body)
	}

	if n := d.Coll.Len(); n != 3 {
		t.Errorf("wrong collection size, got=%d, want=3", n)
	}
	count, err := d.Store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("wrong store count, got=%d, want=3", count)
	}

	// A re-push of the same records is a no-op.
	buf.Reset()
	for i := int64(1); i <= 3; i++ {
		if err := enc.Encode(testdata.NewRideRecord(i, 44.98+float64(i), -93.25, 50, 10)); err != nil {
			t.Fatal(err)
		}
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "http://dotd.test/populate", buf))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status code not ok on re-push, got=%d", w.Result().StatusCode)
	}
	if n := d.Coll.Len(); n != 3 {
		t.Errorf("re-push changed collection size, got=%d, want=3", n)
	}
}

func TestWebDaemon_populateEmptyBody(t *testing.T) {
	d, teardown := newTestWebDaemon("")
	defer teardown()
	router := d.NewRouter()

	req := httptest.NewRequest("POST", "http://dotd.test/populate", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got=%d", w.Result().StatusCode)
	}
}

func TestWebDaemon_activities(t *testing.T) {
	d, teardown := newTestWebDaemon("")
	defer teardown()
	router := d.NewRouter()

	for i := int64(1); i <= 2; i++ {
		rec := testdata.NewRideRecord(i, 44.98+float64(i), -93.25, 50, 10)
		if _, err := d.Coll.Add(rec); err != nil {
			t.Fatal(err)
		}
		if err := d.Store.Write(rec); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "http://dotd.test/activities", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status code not ok, got=%d", w.Result().StatusCode)
	}
	var list []struct {
		ID int64 `json:"_id"`
		N  int   `json:"n"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("wrong number of activities, got=%d, want=2", len(list))
	}
	if list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("activities not in id order: %+v", list)
	}
	if list[0].N != 50 {
		t.Errorf("wrong point count, got=%d, want=50", list[0].N)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "http://dotd.test/activities/2", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status code not ok, got=%d", w.Result().StatusCode)
	}
	var one struct {
		ID int64 `json:"_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &one); err != nil {
		t.Fatal(err)
	}
	if one.ID != 2 {
		t.Errorf("wrong activity, got=%d, want=2", one.ID)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "http://dotd.test/activities/99", nil))
	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got=%d", w.Result().StatusCode)
	}
}

func TestWebDaemon_restore(t *testing.T) {
	d, teardown := newTestWebDaemon("")
	defer teardown()

	for i := int64(1); i <= 3; i++ {
		if err := d.Store.Write(testdata.NewRideRecord(i, 44.98+float64(i), -93.25, 50, 10)); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := d.Coll.Len(); n != 3 {
		t.Errorf("wrong collection size after restore, got=%d, want=3", n)
	}
}
