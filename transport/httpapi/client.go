package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/georgevidalakis/noobcash-blockchain/block"
	"github.com/georgevidalakis/noobcash-blockchain/chain"
	ncrypto "github.com/georgevidalakis/noobcash-blockchain/crypto"
	"github.com/georgevidalakis/noobcash-blockchain/txn"
	"github.com/georgevidalakis/noobcash-blockchain/wallet"
)

// broadcastWorkers bounds the fan-out concurrency used for broadcasting
// and wallet distribution, spec §5: "Broadcast fan-out is parallel with a
// small fixed worker count (~3)".
const broadcastWorkers = 3

// requestTimeout bounds a single peer round-trip; an unreachable peer must
// not stall the whole fan-out (spec §7 TransportFailure: "no retry").
const requestTimeout = 5 * time.Second

// Client implements node.PeerTransport over plain JSON/HTTP, the transport
// spec §1 declares as an external collaborator. It never runs while the
// node holds BlockLock or TxLock — callers only invoke it from paths spec
// §5 documents as lock-free.
type Client struct {
	httpClient *http.Client

	mu    sync.RWMutex
	addrs map[int]string // node id -> "host:port", excluding self
}

// NewClient builds a Client that knows about every peer address in addrs.
func NewClient(addrs map[int]string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		addrs:      addrs,
	}
}

// SetAddresses replaces the set of known peer addresses wholesale — called
// by bootstrap after each registration, and by a joiner first with
// bootstrap's address alone and again once the complete ring arrives over
// /wallets (spec §4.6).
func (c *Client) SetAddresses(addrs map[int]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addrs = addrs
}

// Addresses implements node.PeerTransport.
func (c *Client) Addresses() map[int]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int]string, len(c.addrs))
	for id, addr := range c.addrs {
		out[id] = addr
	}
	return out
}

func url(addr, path string) string {
	return "http://" + addr + path
}

func (c *Client) post(ctx context.Context, addr, path string, body interface{}) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url(addr, path), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) get(ctx context.Context, addr, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url(addr, path), nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// Length implements node.PeerTransport: an unreachable peer is treated as
// length 0 (spec §7 TransportFailure).
func (c *Client) Length(ctx context.Context, peerAddr string) int {
	resp, err := c.get(ctx, peerAddr, "/length")
	if err != nil {
		log.Debugf("httpapi: length poll of %s failed: %v", peerAddr, err)
		return 0
	}
	defer resp.Body.Close()
	var out lengthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0
	}
	return out.Length
}

// FetchBlockchain implements node.PeerTransport.
func (c *Client) FetchBlockchain(ctx context.Context, peerAddr string) (chain.Wire, bool) {
	resp, err := c.get(ctx, peerAddr, "/blockchain")
	if err != nil {
		log.Debugf("httpapi: fetch blockchain from %s failed: %v", peerAddr, err)
		return chain.Wire{}, false
	}
	defer resp.Body.Close()
	var out chain.Wire
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chain.Wire{}, false
	}
	return out, true
}

// broadcast fans out to every known peer with bounded concurrency,
// best-effort: a failed delivery is logged and otherwise ignored (spec §7
// TransportFailure: broadcast returns "not-all-delivered" implicitly, no
// retry).
func (c *Client) broadcast(ctx context.Context, path string, body interface{}) {
	addrs := c.Addresses()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastWorkers)
	for id, addr := range addrs {
		id, addr := id, addr
		g.Go(func() error {
			resp, err := c.post(gctx, addr, path, body)
			if err != nil {
				log.Debugf("httpapi: broadcast %s to peer %d (%s) failed: %v", path, id, addr, err)
				return nil
			}
			resp.Body.Close()
			return nil
		})
	}
	_ = g.Wait()
}

// BroadcastTransaction implements node.PeerTransport.
func (c *Client) BroadcastTransaction(ctx context.Context, w txn.Wire) {
	c.broadcast(ctx, "/transaction", w)
}

// BroadcastBlock implements node.PeerTransport.
func (c *Client) BroadcastBlock(ctx context.Context, w block.Wire) {
	c.broadcast(ctx, "/block", w)
}

// BroadcastWallets implements node.PeerTransport, fanning out the full
// ring membership to every peer's /wallets once bootstrap observes the
// ring reach N (spec §4.6).
func (c *Client) BroadcastWallets(ctx context.Context, wallets map[int]wallet.Info) {
	byStr := make(map[string]wallet.Info, len(wallets))
	for id, info := range wallets {
		byStr[strconv.Itoa(id)] = info
	}
	c.broadcast(ctx, "/wallets", walletsRequest{Wallets: byStr})
}

// RegisterAt POSTs this peer's own wallet identity to bootstrap's /node
// endpoint, the join-time call of spec §4.6 that node.PeerTransport itself
// has no slot for since it only runs once, before the peer has any peers
// to broadcast to.
func RegisterAt(ctx context.Context, bootstrapAddr string, pub ncrypto.PublicKey, address string) (int, chain.Wire, error) {
	c := &Client{httpClient: &http.Client{Timeout: requestTimeout}}
	resp, err := c.post(ctx, bootstrapAddr, "/node", registerRequest{PublicKey: pub, Address: address})
	if err != nil {
		return 0, chain.Wire{}, err
	}
	defer resp.Body.Close()
	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, chain.Wire{}, err
	}
	return out.ID, out.Blockchain, nil
}

// FetchBlockchainAt retrieves peerAddr's full chain through a one-off
// Client that knows no peer addresses of its own.
func FetchBlockchainAt(ctx context.Context, peerAddr string) (chain.Wire, bool) {
	c := &Client{httpClient: &http.Client{Timeout: requestTimeout}}
	return c.FetchBlockchain(ctx, peerAddr)
}
