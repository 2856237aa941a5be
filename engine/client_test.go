package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/zond/godip"

	"github.com/zond/dipcoord/errs"
)

func TestStart(t *testing.T) {
	var gotPath string
	var gotBody startRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(Result{
			Phase: Phase{
				Season: "Spring",
				Year:   1901,
				Type:   "Movement",
				Units: []Unit{
					{Type: "Fleet", Nation: "England", Province: "lon"},
				},
				SupplyCenters: []SupplyCenter{
					{Province: "lon", Nation: "England"},
				},
			},
			Options: map[godip.Nation]json.RawMessage{
				"England": json.RawMessage(`{"lon":{"Type":"Province"}}`),
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	result, err := client.Start(context.Background(), "Classical", godip.Nations{"England", "France"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gotPath != "/Variant/Classical/Start" {
		t.Errorf("got path %q, want /Variant/Classical/Start", gotPath)
	}
	if gotBody.VariantID != "Classical" || len(gotBody.Nations) != 2 {
		t.Errorf("got request %+v", gotBody)
	}
	if result.Phase.Year != 1901 || len(result.Phase.Units) != 1 {
		t.Errorf("got result %# v", pretty.Formatter(result))
	}
	if len(result.Options["England"]) == 0 {
		t.Error("expected options for England")
	}
}

func TestResolveSendsOrders(t *testing.T) {
	var gotBody resolveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(Result{
			Phase: Phase{
				Season: "Fall",
				Year:   1901,
				Type:   "Movement",
				Resolutions: []Resolution{
					{Province: "lon", Result: "OK"},
					{Province: "par", Result: "ErrBounce", By: "bur"},
					{Province: "mun", Result: "ErrSomethingNew"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	orders := Orders{
		"England": {"lon": []string{"Move", "eng"}},
	}
	result, err := client.Resolve(context.Background(), "Classical", Phase{Season: "Spring", Year: 1901, Type: "Movement"}, orders)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := pretty.Diff(gotBody.Orders, orders); len(diff) > 0 {
		t.Errorf("orders did not round trip: %v", diff)
	}
	if result.Phase.Resolutions[1].Result != StatusBounce || result.Phase.Resolutions[1].By != "bur" {
		t.Errorf("got resolution %+v", result.Phase.Resolutions[1])
	}
	// Codes outside the closed enum collapse to Unknown.
	if result.Phase.Resolutions[2].Result != StatusUnknown {
		t.Errorf("got %q, want %q", result.Phase.Resolutions[2].Result, StatusUnknown)
	}
}

func TestFailuresAreAdjudicationErrors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		},
		"missing phase": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{}"))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			client := NewClient(srv.URL)
			_, err := client.Start(context.Background(), "Classical", godip.Nations{"England"})
			if !errs.IsAdjudication(err) {
				t.Errorf("got %v, want adjudication failure", err)
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := client.Start(context.Background(), "Classical", godip.Nations{"England"})
	if !errs.IsAdjudication(err) {
		t.Errorf("got %v, want adjudication failure", err)
	}
}

func TestParseStatus(t *testing.T) {
	if got := ParseStatus("ErrBounce"); got != StatusBounce {
		t.Errorf("got %q, want %q", got, StatusBounce)
	}
	if got := ParseStatus("ErrConvoyedToNarnia"); got != StatusUnknown {
		t.Errorf("got %q, want %q", got, StatusUnknown)
	}
}
