package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/duskhollow/comlink/pkg/chat"
	"github.com/duskhollow/comlink/pkg/events"
	"github.com/duskhollow/comlink/pkg/prefstore"
)

// WelcomeText is shown to every new connection.
const WelcomeText = `Welcome to comlink.

  connect <name> <password>   log in to an existing account
  create <name> <password>    make a new account
  quit                        disconnect
`

// Server is the comlink chat server: the TCP listener, the session
// registries, and the chat core wired to its collaborators.
type Server struct {
	Conf   *Conf
	Core   *chat.Core
	Router *chat.Router

	Store *prefstore.Store
	Conns *Conns
	World *World
	Bus   *events.Bus
	Perms *Perms
	Mail  *Mail

	History *History
	Bridge  *Bridge
	Metrics *Metrics

	listener    net.Listener
	stopWatch   func()
	stopCleanup chan struct{}
}

// NewServer wires a server from its configuration. The channel file is
// loaded before the listener starts; the caller owns Close.
func NewServer(conf *Conf) (*Server, error) {
	if err := os.MkdirAll(conf.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("server: data dir: %w", err)
	}

	store, err := prefstore.Open(conf.PrefsPath())
	if err != nil {
		return nil, err
	}

	s := &Server{
		Conf:        conf,
		Store:       store,
		Conns:       NewConns(),
		World:       NewWorld(),
		Bus:         events.NewBus(),
		stopCleanup: make(chan struct{}),
	}
	s.Perms = NewPerms(store)
	var perms chat.PermissionSource = s.Perms
	if !conf.PermsEnabled {
		perms = chat.NopPerms{}
	}

	dir := &directory{conns: s.Conns, world: s.World}
	s.Core = chat.NewCore(perms, dir)

	s.Router = chat.NewRouter(s.Core, dir, &busSink{bus: s.Bus}, &sessionNames{conns: s.Conns}, conf.DefaultChannel)
	s.Router.Ignores = &sessionIgnores{conns: s.Conns}
	s.Router.OnAutoKick = func(p chat.PlayerID, channel string) {
		log.Printf("chat: auto-kicked %s from %s (permission lapsed)", p, channel)
		if s.Metrics != nil {
			s.Metrics.AutoKicked()
		}
	}
	s.Router.OnDeliver = func(obscured bool) {
		if s.Metrics != nil {
			s.Metrics.Delivered(obscured)
		}
	}

	s.Mail = NewMail(store, conf.MailExpiration)

	if err := ReloadChannels(s.Core, conf.ChannelsPath()); err != nil {
		store.Close()
		return nil, fmt.Errorf("server: channels: %w", err)
	}
	stop, err := WatchChannels(s.Core, conf.ChannelsPath())
	if err != nil {
		log.Printf("server: channel hot reload disabled: %v", err)
	} else {
		s.stopWatch = stop
	}

	if conf.HistoryEnabled {
		h, err := OpenHistory(conf.HistoryPath(), time.Duration(conf.HistoryRetention)*time.Second)
		if err != nil {
			log.Printf("server: history disabled: %v", err)
		} else {
			s.History = h
		}
	}

	if conf.MetricsEnabled {
		s.Metrics = NewMetrics(s, time.Now())
	}

	if conf.BridgeEnabled {
		s.Bridge = NewBridge(conf, s.Bus, s.Conns)
		s.Bridge.metrics = s.Metrics
	}

	s.Router.Relay = s.relay
	s.Router.OnDirect = func(sender, target chat.PlayerID) {
		if s.Metrics != nil {
			s.Metrics.MessageRouted("direct")
		}
	}

	return s, nil
}

// relay observes every channel message once: history, bridge, metrics.
func (s *Server) relay(channel, sender, line string) {
	if s.History != nil {
		s.History.Record(channel, sender, line)
	}
	if s.Bridge != nil && strings.EqualFold(channel, s.Conf.BridgeChannel) {
		s.Bridge.SendOutbound(sender, line)
	}
	if s.Metrics != nil {
		s.Metrics.MessageRouted("channel")
	}
}

// Start begins listening for connections and blocks until the listener
// closes.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Conf.BindAddr, s.Conf.Port)
	ln, err := s.listen(addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = ln
	log.Printf("server: %s listening on %s", s.Conf.ServerName, addr)

	if s.Bridge != nil {
		go s.Bridge.Run()
	}
	if s.Metrics != nil {
		go s.Metrics.Serve(s.Conf.MetricsPort)
	}
	go s.cleanupLoop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("server: accept: %v", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// listen opens the player-facing listener, TLS-wrapped when a cert and
// key are configured.
func (s *Server) listen(addr string) (net.Listener, error) {
	if s.Conf.TLSCert == "" || s.Conf.TLSKey == "" {
		return net.Listen("tcp", addr)
	}
	cert, err := tls.LoadX509KeyPair(s.Conf.TLSCert, s.Conf.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	return tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
}

// Close shuts the server down.
func (s *Server) Close() error {
	close(s.stopCleanup)
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.listener != nil {
		s.listener.Close()
	}
	if s.Bridge != nil {
		s.Bridge.Close()
	}
	if s.History != nil {
		s.History.Close()
	}
	return s.Store.Close()
}

// cleanupLoop periodically drops closed subscribers and idle connections.
func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Bus.Cleanup()
			s.bootIdle()
		case <-s.stopCleanup:
			return
		}
	}
}

// bootIdle disconnects players idle past the configured timeout.
func (s *Server) bootIdle() {
	if s.Conf.IdleTimeout <= 0 {
		return
	}
	limit := time.Duration(s.Conf.IdleTimeout) * time.Second
	for _, p := range s.Conns.Online() {
		if d, ok := s.Conns.Get(p); ok && d.Idle() > limit {
			d.Send("*** Idle timeout. ***")
			d.Close()
		}
	}
}

// handleConn runs one connection from greeting to disconnect.
func (s *Server) handleConn(conn net.Conn) {
	d := NewDescriptor(s.Conns.NextID(), conn)
	s.Conns.AddPending(d)
	defer s.disconnect(d)

	d.Send(WelcomeText)

	for {
		line, err := d.Reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				log.Printf("server: read %s: %v", d.Addr, err)
			}
			return
		}
		d.Touch(len(line))
		line = strings.TrimRight(line, "\r\n")

		switch d.State {
		case ConnLogin:
			if !s.handleLogin(d, line) {
				return
			}
		case ConnConnected:
			if !s.handleLine(d, line) {
				return
			}
		}
	}
}

// disconnect tears down a descriptor's session state.
func (s *Server) disconnect(d *Descriptor) {
	d.Close()
	if d.Player != chat.Nobody {
		if cur, ok := s.Conns.Get(d.Player); ok && cur == d {
			s.Core.Logout(d.Player)
			s.World.Remove(d.Player)
			s.Bus.Unsubscribe(d.Player, d)
			s.Store.TouchLastSeen(string(d.Player), time.Now())
			log.Printf("server: %s disconnected from %s", d.Player, d.Addr)
			s.Bus.Emit(events.Event{Type: events.EvDisconnect, Source: d.Player})
		}
	}
	s.Conns.Drop(d)
	if s.Metrics != nil {
		s.Metrics.Disconnected()
	}
}

// handleLine routes one post-login input line: slash commands to the
// command table, everything else straight into the chat router.
func (s *Server) handleLine(d *Descriptor, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if strings.HasPrefix(line, "/") {
		return s.dispatchCommand(d, line[1:])
	}
	s.Router.HandleChat(d.Player, line)
	return true
}
