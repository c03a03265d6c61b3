package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/northlane/tactoechat/pkg/adminapi"
	"github.com/northlane/tactoechat/pkg/board"
	"github.com/northlane/tactoechat/pkg/chat"
	"github.com/northlane/tactoechat/pkg/config"
	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/dispatch"
	"github.com/northlane/tactoechat/pkg/frontdoor"
	"github.com/northlane/tactoechat/pkg/game"
	"github.com/northlane/tactoechat/pkg/host"
	"github.com/northlane/tactoechat/pkg/matchstore"
	"github.com/northlane/tactoechat/pkg/metrics"
	"github.com/northlane/tactoechat/pkg/protocol"
	"github.com/northlane/tactoechat/pkg/session"
)

// shutdownTimeout bounds how long graceful shutdown waits for the admin
// HTTP server to drain in-flight requests, matching the teacher's
// Server.Stop 5-second budget for its webServer.
const shutdownTimeout = 5 * time.Second

const version = "tactoechat 1.0"

func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("TTT_CONF", ""), "Path to YAML config file (env: TTT_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: TTT_PORT)")
	sqlitePath := flag.String("sqlite", envDefault("TTT_SQLITE", ""), "Path to the credential/score SQLite file (env: TTT_SQLITE)")
	boltPath := flag.String("bolt", envDefault("TTT_BOLT", ""), "Path to the match-state bbolt file (env: TTT_BOLT)")
	flag.Parse()

	log.Printf("Welcome to %s", version)

	cfg, err := config.Load(*confFile)
	if err != nil {
		log.Printf("warning: loading config: %v; using defaults", err)
	}
	cfg.ApplyEnv()
	if *port != 0 {
		cfg.Port = *port
	}
	if *sqlitePath != "" {
		cfg.SQLitePath = *sqlitePath
	}
	if *boltPath != "" {
		cfg.BoltPath = *boltPath
	}

	creds, err := credstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("opening credential store: %v", err)
	}
	defer creds.Close()

	matches, err := matchstore.Open(cfg.BoltPath)
	if err != nil {
		log.Fatalf("opening match store: %v", err)
	}
	defer matches.Close()

	conns := session.NewManager()
	b := board.New()

	snap, err := matches.Load()
	if err != nil {
		log.Printf("warning: could not load persisted match state: %v", err)
	} else if snap.Player1 != "" || snap.Player2 != "" {
		log.Printf("note: persisted match slots found (%s / %s) but no sessions are connected yet; clearing", snap.Player1, snap.Player2)
		matches.Clear()
	}

	m := metrics.New(time.Now())

	coord := game.New(b, matches, creds, conns)
	coord.OnGameFinished = m.IncGamesFinished
	chatRouter := chat.New(conns, creds, m)
	hostConsole := host.New(conns, creds)

	adminAuth := adminapi.NewAuthService(cfg.AdminPass, cfg.JWTSecret, cfg.JWTExpiry)
	admin := adminapi.NewServer(adminAuth, conns, creds, coord)
	coord.OnBoardChange = func(boardStr, turn string) {
		admin.Feed().Publish(adminapi.BoardEvent{Board: boardStr, Turn: turn})
	}

	for _, name := range cfg.Moderators {
		log.Printf("note: %s is a configured moderator; flag applies once they connect", name)
	}

	router := buildRouter(conns, chatRouter, coord, creds, m, cfg.Moderators)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		log.Printf("[metrics] listening on %s", addr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler(conns))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.AdminPort)
		log.Printf("[adminapi] listening on %s", addr)
		if err := admin.ListenAndServe(addr); err != nil {
			log.Printf("[adminapi] server stopped: %v", err)
		}
	}()

	go hostConsole.Run(os.Stdin)

	front := frontdoor.New(cfg.Port, cfg.IdleBufSize, conns, func(s *session.Session) {
		handleSession(s, router, coord, m)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("shutdown signal received, draining connections")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		admin.Shutdown(ctx)
		front.Shutdown()
	}()

	if err := front.ListenAndServe(); err != nil {
		log.Fatalf("front door: %v", err)
	}
}

// buildRouter wires every verb into its state-guarded table per the
// dispatcher contract: Login accepts only !login/!register; Chatting
// accepts the full lobby verb set and otherwise broadcasts; Playing
// accepts only !whisper/!exit/!startgame/!move and otherwise broadcasts
// non-"!" lines while refusing other "!" verbs.
func buildRouter(conns *session.Manager, chatRouter *chat.Router, coord *game.Coordinator, creds *credstore.Store, m *metrics.Metrics, moderators []string) *dispatch.Router {
	r := dispatch.NewRouter()

	isModeratorName := func(name string) bool {
		for _, mod := range moderators {
			if strings.EqualFold(mod, name) {
				return true
			}
		}
		return false
	}

	r.Login.Register("!login", func(s *session.Session, args string) {
		m.IncCommands()
		fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			s.Send("[Server]: Usage: !login <username> <password>")
			return
		}
		display, err := creds.TryLogin(fields[0], fields[1])
		if err != nil {
			s.Send(fmt.Sprintf("[Server]: %s", loginErrorText(err)))
			return
		}
		if !conns.BindUsername(s, display) {
			s.Send("[Server]: That user is already logged in.")
			return
		}
		if isModeratorName(display) {
			s.SetModerator(true)
		}
		s.SetState(session.Chatting)
		s.Send(fmt.Sprintf("Login successful! Welcome back %s", display))
	})
	r.Login.Register("!register", func(s *session.Session, args string) {
		m.IncCommands()
		fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			s.Send("[Server]: Usage: !register <username> <password>")
			return
		}
		if err := creds.TryRegister(fields[0], fields[1]); err != nil {
			s.Send(fmt.Sprintf("[Server]: %s", loginErrorText(err)))
			return
		}
		if !conns.BindUsername(s, fields[0]) {
			s.Send("[Server]: That user is already logged in.")
			return
		}
		if isModeratorName(fields[0]) {
			s.SetModerator(true)
		}
		s.SetState(session.Chatting)
		s.Send(fmt.Sprintf("Registration successful! Welcome %s", fields[0]))
	})
	r.Login.Fallback = func(s *session.Session, line string) {
		s.Send("Please login or register first using !login <user> <pass> or !register <user> <pass>.")
	}

	r.Chatting.Register("!user", func(s *session.Session, args string) { m.IncCommands(); chatRouter.Rename(s, args) })
	r.Chatting.Register("!who", func(s *session.Session, args string) { m.IncCommands(); chatRouter.Who(s) })
	r.Chatting.Register("!commands", func(s *session.Session, args string) {
		m.IncCommands()
		s.Send("[Server]: Commands: !user !who !commands !about !whisper !roll !kick !join !scores !exit")
	})
	r.Chatting.Register("!about", func(s *session.Session, args string) {
		m.IncCommands()
		s.Send(fmt.Sprintf("[Server]: %s", version))
	})
	r.Chatting.Register("!whisper", func(s *session.Session, args string) { m.IncCommands(); m.IncWhispers(); chatRouter.Whisper(s, args) })
	r.Chatting.Register("!roll", func(s *session.Session, args string) { m.IncCommands(); chatRouter.Roll(s, args) })
	r.Chatting.Register("!kick", func(s *session.Session, args string) { m.IncCommands(); chatRouter.Kick(s, args) })
	r.Chatting.Register("!join", func(s *session.Session, args string) {
		m.IncCommands()
		coord.Join(s)
	})
	r.Chatting.Register("!scores", func(s *session.Session, args string) { m.IncCommands(); chatRouter.Scores(s) })
	r.Chatting.Register("!exit", func(s *session.Session, args string) {
		m.IncCommands()
		s.Close()
	})
	r.Chatting.Fallback = func(s *session.Session, line string) {
		m.IncCommands()
		m.IncChatMessages()
		chatRouter.Broadcast(s, line)
	}

	r.Playing.Register("!whisper", func(s *session.Session, args string) { m.IncCommands(); m.IncWhispers(); chatRouter.Whisper(s, args) })
	r.Playing.Register("!exit", func(s *session.Session, args string) {
		m.IncCommands()
		s.Close()
	})
	r.Playing.Register("!startgame", func(s *session.Session, args string) {
		m.IncCommands()
		m.IncGamesStarted()
		coord.StartGame(s)
	})
	r.Playing.Register("!move", func(s *session.Session, args string) {
		m.IncCommands()
		coord.Move(s, args)
	})
	r.Playing.Fallback = func(s *session.Session, line string) {
		m.IncCommands()
		if strings.HasPrefix(line, "!") {
			s.Send("[Server]: That command is not available while playing.")
			return
		}
		m.IncChatMessages()
		chatRouter.Broadcast(s, line)
	}

	return r
}

func loginErrorText(err error) string {
	switch {
	case err == credstore.ErrUsernameTaken:
		return "Username already exists."
	case err == credstore.ErrUserNotFound:
		return "Unknown user."
	case err == credstore.ErrWrongPassword:
		return "Incorrect password."
	case err == credstore.ErrInvalidUsername:
		return "Invalid username."
	default:
		return "The credential store is temporarily unavailable."
	}
}

// handleSession runs one connection's straight-line receive loop: read a
// frame, drop empty ones with a single informational reply, surface
// oversize-line ProtocolViolations without desyncing the stream, and
// dispatch everything else. On any transport failure or clean close it
// idempotently tears the session down, running dropout recovery if the
// peer was mid-game.
func handleSession(s *session.Session, router *dispatch.Router, coord *game.Coordinator, m *metrics.Metrics) {
	m.IncConnections()
	defer teardown(s, coord)

	for {
		line, err := s.Framer.ReadLine()
		if err != nil {
			if err == protocol.ErrProtocolViolation {
				m.IncProtocolViolations()
				s.Send("[Server]: Line too long; command ignored.")
				continue
			}
			if err != io.EOF {
				log.Printf("[session %d] read error: %v", s.ID, err)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			s.Send("Empty command ignored.")
			continue
		}
		router.HandleLine(s, line)
	}
}

// teardown runs exactly once per session (MarkDisconnected enforces this
// even if called concurrently by a moderator kick and a peer close).
func teardown(s *session.Session, coord *game.Coordinator) {
	if !s.MarkDisconnected() {
		return
	}
	if s.State() == session.Playing {
		coord.HandleDropout(s)
	}
	s.Close()
}
