package market

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

const (
	defaultPollInterval = 15 * time.Second
	writeTimeout        = 10 * time.Second
	maxSubscriptions    = 50
)

// subscribeMessage is what a connected client sends to change its
// watch list. Keys look like "stock:AAPL" or "cryptoCurrency:bitcoin".
type subscribeMessage struct {
	Subscribe   []string `json:"subscribe"`
	Unsubscribe []string `json:"unsubscribe"`
}

// quoteUpdate is pushed to clients whenever a watched quote refreshes.
type quoteUpdate struct {
	Key   string       `json:"key"`
	Quote domain.Quote `json:"quote"`
}

type streamClient struct {
	conn *websocket.Conn
	keys map[string]bool
	mu   sync.Mutex
}

// StreamHub polls quote providers for every symbol any connected client
// watches and pushes updates over websocket.
type StreamHub struct {
	service      *Service
	pollInterval time.Duration
	log          zerolog.Logger

	mu      sync.RWMutex
	clients map[*streamClient]bool

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewStreamHub creates a new quote streaming hub
func NewStreamHub(service *Service, log zerolog.Logger) *StreamHub {
	return &StreamHub{
		service:      service,
		pollInterval: defaultPollInterval,
		log:          log.With().Str("component", "quote_stream").Logger(),
		clients:      make(map[*streamClient]bool),
		stopChan:     make(chan struct{}),
	}
}

// Start launches the poll loop. Call Stop to end it.
func (h *StreamHub) Start() {
	go h.pollLoop()
}

// Stop terminates the poll loop and closes every client connection.
func (h *StreamHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.clients = make(map[*streamClient]bool)
}

// HandleWS upgrades the request and serves the subscription protocol
// until the client disconnects.
func (h *StreamHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // cross-origin is handled by the cors middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}

	client := &streamClient{conn: conn, keys: make(map[string]bool)}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.log.Debug().Msg("Quote stream client connected")
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
		h.log.Debug().Msg("Quote stream client disconnected")
	}()

	for {
		var msg subscribeMessage
		if err := wsjson.Read(r.Context(), conn, &msg); err != nil {
			return
		}
		client.mu.Lock()
		for _, key := range msg.Subscribe {
			if len(client.keys) >= maxSubscriptions {
				break
			}
			if _, _, ok := parseKey(key); ok {
				client.keys[key] = true
			}
		}
		for _, key := range msg.Unsubscribe {
			delete(client.keys, key)
		}
		client.mu.Unlock()
	}
}

func (h *StreamHub) pollLoop() {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case <-ticker.C:
			h.pollOnce()
		}
	}
}

func (h *StreamHub) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), h.pollInterval)
	defer cancel()

	for _, key := range h.watchedKeys() {
		assetType, symbol, ok := parseKey(key)
		if !ok {
			continue
		}

		var quote *domain.Quote
		var err error
		switch assetType {
		case domain.AssetTypeStock:
			quote, err = h.service.StockQuote(ctx, symbol)
		case domain.AssetTypeCrypto:
			quote, err = h.service.CryptoQuote(ctx, symbol)
		}
		if err != nil {
			h.log.Debug().Err(err).Str("key", key).Msg("Quote refresh failed")
			continue
		}
		h.broadcast(ctx, key, *quote)
	}
}

// watchedKeys collects the union of all client watch lists.
func (h *StreamHub) watchedKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	var keys []string
	for c := range h.clients {
		c.mu.Lock()
		for key := range c.keys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		c.mu.Unlock()
	}
	return keys
}

func (h *StreamHub) broadcast(ctx context.Context, key string, quote domain.Quote) {
	h.mu.RLock()
	clients := make([]*streamClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	update := quoteUpdate{Key: key, Quote: quote}
	for _, c := range clients {
		c.mu.Lock()
		interested := c.keys[key]
		c.mu.Unlock()
		if !interested {
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		if err := wsjson.Write(writeCtx, c.conn, update); err != nil {
			h.log.Debug().Err(err).Str("key", key).Msg("Failed to push quote update")
		}
		cancel()
	}
}

// parseKey splits "assetType:symbol" watch keys.
func parseKey(key string) (domain.AssetType, string, bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	assetType, err := domain.ParseAssetType(parts[0], false)
	if err != nil {
		return "", "", false
	}
	if assetType != domain.AssetTypeStock && assetType != domain.AssetTypeCrypto {
		return "", "", false
	}
	return assetType, parts[1], true
}
