package api

import (
	"strconv"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/davecgh/go-spew/spew"
	"github.com/op/go-logging"
)

var logger = logging.MustGetLogger("api")

// Core is the status API's single route group: a read-only view of the
// registered datapaths and their attached ports.
type Core struct {
	Server
}

func (r *Core) Serve() error {
	return r.Server.Serve(
		rest.Get("/datapaths", r.listDatapaths),
		rest.Get("/datapaths/:dp_idx/ports", r.listPorts),
	)
}

func (r *Core) listDatapaths(w rest.ResponseWriter, req *rest.Request) {
	logger.Debugf("datapath list request from %v", req.RemoteAddr)
	data := r.Datapaths.Each()
	logger.Debugf("datapath list reply: %v", spew.Sdump(data))
	w.WriteJson(Response{Status: StatusOkay, Data: data})
}

func (r *Core) listPorts(w rest.ResponseWriter, req *rest.Request) {
	idx, err := strconv.Atoi(req.PathParam("dp_idx"))
	if err != nil {
		w.WriteJson(Response{Status: StatusInvalidParameter, Message: err.Error()})
		return
	}
	logger.Debugf("port list request from %v: dp_idx=%v", req.RemoteAddr, idx)

	for _, d := range r.Datapaths.Each() {
		if d.Idx == idx {
			w.WriteJson(Response{Status: StatusOkay, Data: d.Ports})
			return
		}
	}
	w.WriteJson(Response{Status: StatusNotFound, Message: "unknown dp_idx"})
}
