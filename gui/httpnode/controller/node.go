package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"go.dedis.ch/kadem/peer"
	"go.dedis.ch/kadem/types"
)

// how long a handler waits for an asynchronous operation outcome
const resultTimeout = time.Second * 30

type nodeController struct {
	peer peer.Peer
	log  *zerolog.Logger
}

// NewNodeController returns a controller exposing the node's operations over
// HTTP.
func NewNodeController(peer peer.Peer, log *zerolog.Logger) nodeController {
	return nodeController{
		peer: peer,
		log:  log,
	}
}

func (c *nodeController) SeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			c.seed(w, r)
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		default:
			http.Error(w, "forbidden method", http.StatusMethodNotAllowed)
		}
	}
}

func (c *nodeController) seed(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, "failed to read form: "+err.Error(), http.StatusBadRequest)
		return
	}

	resource := types.Resource{
		Name:  r.FormValue("name"),
		Value: r.FormValue("value"),
	}

	key, err := c.peer.Seed(resource)
	if err != nil {
		http.Error(w, "failed to seed: "+err.Error(), http.StatusBadRequest)
		return
	}

	c.writeJSON(w, map[string]string{"key": key.String()})
}

func (c *nodeController) LookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			c.lookup(w, r)
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		default:
			http.Error(w, "forbidden method", http.StatusMethodNotAllowed)
		}
	}
}

func (c *nodeController) lookup(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", http.StatusBadRequest)
		return
	}

	waiter := newValueWaiter()
	_, err := c.peer.LookupValue(types.NewKey(name), waiter)
	if err != nil {
		http.Error(w, "failed to start lookup: "+err.Error(), http.StatusInternalServerError)
		return
	}

	select {
	case res := <-waiter.ch:
		if res.resource == nil {
			http.Error(w, "resource not found: "+name, http.StatusNotFound)
			return
		}
		c.writeJSON(w, map[string]string{
			"name":  res.resource.Name,
			"value": res.resource.Value,
			"peer":  res.peer.Addr,
		})
	case <-time.After(resultTimeout):
		http.Error(w, "lookup did not resolve in time", http.StatusGatewayTimeout)
	}
}

func (c *nodeController) PingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			c.probe(w, r, func(addr string, waiter *boolWaiter) (string, error) {
				return c.peer.Ping(addr, waiter)
			})
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		default:
			http.Error(w, "forbidden method", http.StatusMethodNotAllowed)
		}
	}
}

func (c *nodeController) InviteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			c.probe(w, r, func(addr string, waiter *boolWaiter) (string, error) {
				return c.peer.Invite(addr, waiter)
			})
		case http.MethodOptions:
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
		default:
			http.Error(w, "forbidden method", http.StatusMethodNotAllowed)
		}
	}
}

// probe runs a boolean single-peer operation and reports its outcome.
func (c *nodeController) probe(w http.ResponseWriter, r *http.Request,
	start func(string, *boolWaiter) (string, error)) {

	addr := r.URL.Query().Get("addr")
	if addr == "" {
		http.Error(w, "missing addr parameter", http.StatusBadRequest)
		return
	}

	waiter := newBoolWaiter()
	_, err := start(addr, waiter)
	if err != nil {
		http.Error(w, "failed to start operation: "+err.Error(), http.StatusInternalServerError)
		return
	}

	select {
	case outcome := <-waiter.ch:
		c.writeJSON(w, map[string]bool{"ok": outcome})
	case <-time.After(resultTimeout):
		http.Error(w, "operation did not resolve in time", http.StatusGatewayTimeout)
	}
}

func (c *nodeController) writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		c.log.Error().Msgf("failed to write response: %s", err.Error())
	}
}

/* ========== waiters ========== */

type valueResult struct {
	peer     *types.Contact
	resource *types.Resource
}

// - implements peer.FindValueListener
type valueWaiter struct {
	ch chan valueResult
}

func newValueWaiter() *valueWaiter {
	return &valueWaiter{ch: make(chan valueResult, 1)}
}

func (w *valueWaiter) OnFindValueResult(operationID string,
	peer *types.Contact, resource *types.Resource) {

	w.ch <- valueResult{peer: peer, resource: resource}
}

// - implements peer.PingListener
// - implements peer.InviteListener
type boolWaiter struct {
	ch chan bool
}

func newBoolWaiter() *boolWaiter {
	return &boolWaiter{ch: make(chan bool, 1)}
}

func (w *boolWaiter) OnPingResult(operationID string,
	peer types.Contact, alive bool) {

	w.ch <- alive
}

func (w *boolWaiter) OnInviteResult(operationID string,
	invited types.Contact, accepted bool) {

	w.ch <- accepted
}
