package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ant0ine/go-json-rest/rest"
)

type fakeLister struct {
	dps []Datapath
}

func (f *fakeLister) Each() []Datapath { return f.dps }

func newTestHandler(t *testing.T, c *Core) http.Handler {
	t.Helper()
	api := rest.NewApi()
	router, err := rest.MakeRouter(
		rest.Get("/datapaths", c.listDatapaths),
		rest.Get("/datapaths/:dp_idx/ports", c.listPorts),
	)
	if err != nil {
		t.Fatalf("MakeRouter: %v", err)
	}
	api.SetApp(router)
	return api.MakeHandler()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestListDatapathsReturnsEveryEntry(t *testing.T) {
	c := &Core{Server{Datapaths: &fakeLister{dps: []Datapath{
		{Idx: 0, ID: 1, Description: "dp0"},
		{Idx: 1, ID: 2, Description: "dp1"},
	}}}}
	handler := newTestHandler(t, c)

	req, _ := http.NewRequest("GET", "/datapaths", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Status != StatusOkay {
		t.Fatalf("status = %v, want StatusOkay", resp.Status)
	}
	data, ok := resp.Data.([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("data = %#v, want a 2-element list", resp.Data)
	}
}

func TestListPortsKnownIndex(t *testing.T) {
	c := &Core{Server{Datapaths: &fakeLister{dps: []Datapath{
		{Idx: 5, Ports: []Port{{Number: 1, Name: "eth0", Up: true}}},
	}}}}
	handler := newTestHandler(t, c)

	req, _ := http.NewRequest("GET", "/datapaths/5/ports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Status != StatusOkay {
		t.Fatalf("status = %v, want StatusOkay", resp.Status)
	}
	ports, ok := resp.Data.([]interface{})
	if !ok || len(ports) != 1 {
		t.Fatalf("data = %#v, want a 1-element port list", resp.Data)
	}
}

func TestListPortsUnknownIndex(t *testing.T) {
	c := &Core{Server{Datapaths: &fakeLister{dps: []Datapath{{Idx: 0}}}}}
	handler := newTestHandler(t, c)

	req, _ := http.NewRequest("GET", "/datapaths/99/ports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Status != StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", resp.Status)
	}
}

func TestListPortsInvalidIndex(t *testing.T) {
	c := &Core{Server{Datapaths: &fakeLister{}}}
	handler := newTestHandler(t, c)

	req, _ := http.NewRequest("GET", "/datapaths/not-a-number/ports", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	if resp.Status != StatusInvalidParameter {
		t.Fatalf("status = %v, want StatusInvalidParameter", resp.Status)
	}
}
