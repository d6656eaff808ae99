package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ant0ine/go-json-rest/rest"
)

// Server hosts the read-only status surface (spec §4.7's note that the
// control channel is administrative, not diagnostic): datapath and port
// inventories for operators and monitoring, served over plain HTTP/TLS
// the same way the teacher's controller API does.
type Server struct {
	Port uint16
	TLS  struct {
		Cert string
		Key  string
	}
	Datapaths DatapathLister
}

// DatapathLister is the read-only view this package needs of the
// process-wide datapath registry; internal/dpreg.Registry satisfies it.
type DatapathLister interface {
	Each() []Datapath
}

// Datapath is the status-API projection of a registered datapath; it
// deliberately carries only what an operator needs to see, not the
// live collaborator references internal/dp.Datapath holds.
type Datapath struct {
	Idx         int    `json:"dp_idx"`
	ID          uint64 `json:"datapath_id"`
	Description string `json:"description"`
	Ports       []Port `json:"ports"`
}

type Port struct {
	Number uint16 `json:"port_no"`
	Name   string `json:"name"`
	Up     bool   `json:"up"`
}

func (r *Server) validate() error {
	if r.Datapaths == nil {
		return errors.New("nil datapath lister")
	}
	return nil
}

func (r *Server) Serve(routes ...*rest.Route) error {
	if err := r.validate(); err != nil {
		return err
	}

	api := rest.NewApi()
	// Middleware to set the CORS header, so a browser-hosted dashboard
	// on a different origin can poll this surface directly.
	api.Use(rest.MiddlewareSimple(func(handler rest.HandlerFunc) rest.HandlerFunc {
		return func(writer rest.ResponseWriter, request *rest.Request) {
			writer.Header().Set("Access-Control-Allow-Origin", "*")
			handler(writer, request)
		}
	}))
	router, err := rest.MakeRouter(routes...)
	if err != nil {
		return err
	}
	api.SetApp(router)

	addr := fmt.Sprintf(":%v", r.Port)
	if r.TLS.Cert != "" && r.TLS.Key != "" {
		err = http.ListenAndServeTLS(addr, r.TLS.Cert, r.TLS.Key, api.MakeHandler())
	} else {
		err = http.ListenAndServe(addr, api.MakeHandler())
	}

	return err
}
