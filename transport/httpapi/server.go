package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/mux"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/metrics"
	"github.com/georgevidalakis/noobcash-blockchain/node"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// Server binds the named events of spec §4.7 onto a node.Node over HTTP.
// Every handler returns 200 on normal completion, including silent
// rejection (spec §6): the core's error values never become non-2xx
// status codes, matching the "no exceptions propagate to the endpoint
// layer" rule of spec §7.
type Server struct {
	n      *node.Node
	router *mux.Router

	onWallets    func()
	onRegistered func()
}

// NewServer builds a Server bound to n, registering every route of
// spec §6.
func NewServer(n *node.Node) *Server {
	s := &Server{n: n, router: mux.NewRouter()}
	s.routes()
	return s
}

// OnWalletsReceived registers a hook run, in its own goroutine, after every
// successful POST /wallets (spec §4.6: once a joiner rebuilds its rings
// from the fanned-out membership, it "re-runs valid_chain ... retrying
// first_contact if necessary, then calls process_unprocessed" — work that
// needs the bootstrap address and HTTP client cmd/noobcashd owns, not
// anything the core node itself holds).
func (s *Server) OnWalletsReceived(fn func()) {
	s.onWallets = fn
}

// OnNodeRegistered registers a hook run, in its own goroutine, after every
// successful POST /node — bootstrap uses this to notice the ring just
// reached its full N members and fan wallets out (spec §4.6).
func (s *Server) OnNodeRegistered(fn func()) {
	s.onRegistered = fn
}

// Router exposes the mux.Router so the caller can hand it to
// http.ListenAndServe.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/node", s.handleRegisterNode).Methods(http.MethodPost)
	s.router.HandleFunc("/wallets", s.handleReceiveWallets).Methods(http.MethodPost)
	s.router.HandleFunc("/transaction", s.handleReceiveTransaction).Methods(http.MethodPost)
	s.router.HandleFunc("/block", s.handleReceiveBlock).Methods(http.MethodPost)
	s.router.HandleFunc("/mined_block", s.handleSelfMinedBlock).Methods(http.MethodPost)
	s.router.HandleFunc("/purchase", s.handlePurchase).Methods(http.MethodPost)
	s.router.HandleFunc("/black_hat_purchase", s.handleBlackHatPurchase).Methods(http.MethodPost)
	s.router.HandleFunc("/ring", s.handleRing).Methods(http.MethodGet)
	s.router.HandleFunc("/id", s.handleID).Methods(http.MethodGet)
	s.router.HandleFunc("/length", s.handleLength).Methods(http.MethodGet)
	s.router.HandleFunc("/blockchain", s.handleBlockchain).Methods(http.MethodGet)
	s.router.HandleFunc("/balance", s.handleBalance).Methods(http.MethodGet)
	s.router.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	s.router.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	s.router.HandleFunc("/view_blockchain", s.handleViewBlockchain).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// handleRegisterNode implements POST /node (spec §4.7 "register_node").
func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	id, bc, err := s.n.RegisterNode(req.PublicKey, req.Address)
	if err != nil {
		log.Debugf("httpapi: register_node rejected: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, registerResponse{ID: id, Blockchain: bc})
	if s.onRegistered != nil {
		go s.onRegistered()
	}
}

// handleReceiveWallets implements POST /wallets (spec §4.7
// "receive_wallets").
func (s *Server) handleReceiveWallets(w http.ResponseWriter, r *http.Request) {
	var req walletsRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	infos := make(map[int]wallet.Info, len(req.Wallets))
	for k, v := range req.Wallets {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		infos[id] = v
	}
	s.n.ApplyWallets(infos)
	if s.onWallets != nil {
		go s.onWallets()
	}
	w.WriteHeader(http.StatusOK)
}

// handleReceiveTransaction implements POST /transaction (spec §4.7
// "receive_transaction").
func (s *Server) handleReceiveTransaction(w http.ResponseWriter, r *http.Request) {
	var tw txn.Wire
	if err := decodeJSON(r, &tw); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	t, err := txn.FromWire(tw)
	if err != nil {
		log.Debugf("httpapi: receive_transaction: malformed: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	s.n.ReceiveTransaction(t)
	w.WriteHeader(http.StatusOK)
}

// handleReceiveBlock implements POST /block (spec §4.7 "receive_block").
func (s *Server) handleReceiveBlock(w http.ResponseWriter, r *http.Request) {
	var bw block.Wire
	if err := decodeJSON(r, &bw); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	outcome := s.n.ReceiveBlock(r.Context(), bw)
	accepted := outcome == node.BlockAccepted || outcome == node.BlockForkSwitched
	if accepted {
		metrics.BlocksAccepted.Inc()
	}
	writeJSON(w, blockResponse{Accepted: accepted})
}

// handleSelfMinedBlock implements POST /mined_block (spec §4.7
// "self_mined_block"): delivers a locally mined block and reports whether
// it was stored; the poster broadcasts the block itself if so. node.Node's
// own miner worker does not use this route — it delivers in-process and
// broadcasts through its PeerTransport.
func (s *Server) handleSelfMinedBlock(w http.ResponseWriter, r *http.Request) {
	var bw block.Wire
	if err := decodeJSON(r, &bw); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	b, err := block.FromWire(bw, s.n.Config().Capacity)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	stored := s.n.SelfMinedBlock(b)
	writeJSON(w, blockResponse{Accepted: stored})
}

// handlePurchase implements POST /purchase (spec §4.7 "create_transaction").
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	receiver, ok := s.n.PublicKeyForID(req.ReceiverID)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	t, err := s.n.CreateTransaction(receiver, req.Amount)
	if err != nil {
		metrics.TransactionsRejected.Inc()
		log.Debugf("httpapi: purchase failed: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, t.ToWire())
}

// handleBlackHatPurchase implements POST /black_hat_purchase (spec §4.7
// "bogus_transaction", restored from original_source/noobcash/node.py's
// create_bogus_transaction).
func (s *Server) handleBlackHatPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	receiver, ok := s.n.PublicKeyForID(req.ReceiverID)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	t, err := s.n.CreateBogusTransaction(receiver, req.Amount)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, t.ToWire())
}

func (s *Server) handleRing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.n.TakeSnapshot())
}

func (s *Server) handleID(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, idResponse{ID: s.n.ID()})
}

func (s *Server) handleLength(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, lengthResponse{Length: s.n.Blockchain().Len()})
}

func (s *Server) handleBlockchain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.n.Blockchain().ToWire())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, _ := s.n.Balance(s.n.ID())
	writeJSON(w, balanceResponse{Balance: bal})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances := s.n.Balances()
	out := make(map[string]int64, len(balances))
	for id, bal := range balances {
		out[strconv.Itoa(id)] = bal
	}
	writeJSON(w, balancesResponse{Balances: out})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	spew.Fdump(w, s.n.TakeSnapshot())
}

func (s *Server) handleViewBlockchain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	spew.Fdump(w, s.n.Blockchain().ToWire())
}
