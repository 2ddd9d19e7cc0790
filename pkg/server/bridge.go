package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/duskhollow/comlink/pkg/events"
)

// BridgeMsg is the wire format exchanged with the community hub.
type BridgeMsg struct {
	Server string `json:"server"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// bridgeClaims are the JWT claims presented during the hub handshake.
type bridgeClaims struct {
	Server string `json:"server"`
	jwt.RegisteredClaims
}

// Bridge maintains a WebSocket connection to the community hub. Outbound
// lines from the mirrored channel are relayed up; inbound lines from
// other servers are announced to every online player. The connection
// reconnects with backoff and drops messages while down rather than
// blocking chat.
type Bridge struct {
	conf    *Conf
	bus     *events.Bus
	conns   *Conns
	metrics *Metrics

	out chan BridgeMsg

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewBridge creates a bridge client. Run starts it.
func NewBridge(conf *Conf, bus *events.Bus, conns *Conns) *Bridge {
	return &Bridge{
		conf:  conf,
		bus:   bus,
		conns: conns,
		out:   make(chan BridgeMsg, 64),
		done:  make(chan struct{}),
	}
}

// SendOutbound queues one line for the hub. Full queue drops the oldest
// pending line first.
func (b *Bridge) SendOutbound(sender, line string) {
	if b.metrics != nil {
		b.metrics.BridgeMessage("out")
	}
	msg := BridgeMsg{Server: b.conf.ServerName, Sender: sender, Text: line}
	for {
		select {
		case b.out <- msg:
			return
		default:
			select {
			case <-b.out:
			default:
			}
		}
	}
}

// Close stops the bridge.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Run dials the hub and services the connection until Close, redialing
// with capped exponential backoff.
func (b *Bridge) Run() {
	backoff := time.Second
	for !b.isClosed() {
		conn, err := b.dial()
		if err != nil {
			log.Printf("bridge: dial %s: %v (retry in %s)", b.conf.BridgeURL, err, backoff)
			select {
			case <-time.After(backoff):
			case <-b.done:
				return
			}
			if backoff < time.Minute {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		log.Printf("bridge: connected to %s", b.conf.BridgeURL)
		b.service(conn)
		conn.Close()
	}
}

// dial opens the WebSocket with a signed handshake token.
func (b *Bridge) dial() (*websocket.Conn, error) {
	token, err := b.handshakeToken()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(b.conf.BridgeURL, header)
	return conn, err
}

// handshakeToken signs a short-lived HS256 token identifying this server.
func (b *Bridge) handshakeToken() (string, error) {
	expiry := 5 * time.Minute
	if b.conf.JWTExpiry > 0 {
		expiry = time.Duration(b.conf.JWTExpiry) * time.Second
	}
	now := time.Now()
	claims := bridgeClaims{
		Server: b.conf.ServerName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   b.conf.ServerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			Issuer:    "comlink",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(b.conf.BridgeSecret))
}

// service pumps one live connection in both directions until it fails.
func (b *Bridge) service(conn *websocket.Conn) {
	readDone := make(chan struct{})

	go func() {
		defer close(readDone)
		for {
			var msg BridgeMsg
			if err := conn.ReadJSON(&msg); err != nil {
				if !b.isClosed() {
					log.Printf("bridge: read: %v", err)
				}
				return
			}
			b.deliverInbound(msg)
		}
	}()

	for {
		select {
		case msg := <-b.out:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("bridge: write: %v", err)
				return
			}
		case <-readDone:
			return
		case <-b.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// deliverInbound announces a hub line to every online player. Lines this
// server sent come back from the hub and are dropped here.
func (b *Bridge) deliverInbound(msg BridgeMsg) {
	if msg.Server == b.conf.ServerName {
		return
	}
	if b.metrics != nil {
		b.metrics.BridgeMessage("in")
	}
	text := "[" + b.conf.BridgeChannel + "] " + msg.Sender + "@" + msg.Server + ": " + msg.Text
	for _, p := range b.conns.Online() {
		b.bus.Emit(events.Event{
			Type:    events.EvChannel,
			Player:  p,
			Channel: b.conf.BridgeChannel,
			Text:    text,
		})
	}
}
