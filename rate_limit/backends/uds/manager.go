package uds

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brightsphere/ai-gateway/rate_limit"
	"github.com/brightsphere/ai-gateway/utils/logger"
)

const (
	// DefaultSocketPath is where the manager listens unless configured otherwise.
	DefaultSocketPath = "/tmp/ai-gateway-rate-limiter.sock"

	defaultIdleTimeout = 5 * time.Second
	sweepInterval      = time.Minute
)

type trackedWindow struct {
	rate_limit.Window
	length time.Duration
}

// Manager is the server that owns rate limit windows for every gateway process
// on the host and serves them over a Unix Domain Socket.
type Manager struct {
	socketPath  string
	idleTimeout time.Duration
	logger      logger.Logger

	state     map[string]trackedWindow
	mu        sync.Mutex
	listener  net.Listener
	clients   map[net.Conn]bool
	clientsMu sync.Mutex
	quit      chan struct{}
	stopOnce  sync.Once
}

// ManagerConfig configures a Manager. A zero IdleTimeout disables idle shutdown.
type ManagerConfig struct {
	SocketPath  string
	IdleTimeout time.Duration
	Logger      logger.Logger
}

// NewManager creates a new rate limit manager
func NewManager(config ManagerConfig) *Manager {
	if config.SocketPath == "" {
		config.SocketPath = DefaultSocketPath
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}

	return &Manager{
		socketPath:  config.SocketPath,
		idleTimeout: config.IdleTimeout,
		logger:      config.Logger,
		state:       make(map[string]trackedWindow),
		clients:     make(map[net.Conn]bool),
		quit:        make(chan struct{}),
	}
}

// Start starts the rate limit manager server
func (m *Manager) Start() error {
	// Remove a stale socket left by a previous manager
	os.Remove(m.socketPath)

	listener, err := net.Listen("unix", m.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	m.listener = listener

	// Readable/writable by all for cross-process access
	if err := os.Chmod(m.socketPath, 0666); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	m.logger.Printf("Rate limit manager started on %s", m.socketPath)

	go m.sweepLoop()
	go m.acceptConnections()

	if m.idleTimeout > 0 {
		go m.monitorIdleState()
	}

	return nil
}

// Stop stops the rate limit manager. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.quit)
		if m.listener != nil {
			m.listener.Close()
		}

		m.clientsMu.Lock()
		for conn := range m.clients {
			conn.Close()
		}
		m.clientsMu.Unlock()

		os.Remove(m.socketPath)
	})
}

// Done is closed once the manager has stopped.
func (m *Manager) Done() <-chan struct{} {
	return m.quit
}

func (m *Manager) acceptConnections() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			select {
			case <-m.quit:
				return
			default:
				m.logger.Errorf("Accept error: %v", err)
				continue
			}
		}

		m.clientsMu.Lock()
		m.clients[conn] = true
		m.clientsMu.Unlock()

		go m.handleClient(conn)
	}
}

func (m *Manager) handleClient(conn net.Conn) {
	defer func() {
		conn.Close()
		m.clientsMu.Lock()
		delete(m.clients, conn)
		m.clientsMu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		response := m.handleCommand(scanner.Text())
		if _, err := conn.Write([]byte(response + "\n")); err != nil {
			return
		}
	}
}

// handleCommand processes a single command from a client
//
//	TAKE <key> <unixMillis> <windowMillis> <limit>  ->  ALLOW|DENY <count> <windowStartMillis>
//	PING                                            ->  PONG
func (m *Manager) handleCommand(cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "ERROR empty command"
	}

	switch parts[0] {
	case "TAKE":
		if len(parts) != 5 {
			return "ERROR invalid TAKE command"
		}
		nowMs, err1 := strconv.ParseInt(parts[2], 10, 64)
		windowMs, err2 := strconv.ParseInt(parts[3], 10, 64)
		limit, err3 := strconv.Atoi(parts[4])
		if err1 != nil || err2 != nil || err3 != nil || windowMs <= 0 || limit <= 0 {
			return "ERROR invalid numbers"
		}

		w, allowed := m.take(parts[1], time.UnixMilli(nowMs), time.Duration(windowMs)*time.Millisecond, limit)
		verdict := "DENY"
		if allowed {
			verdict = "ALLOW"
		}
		return fmt.Sprintf("%s %d %d", verdict, w.Count, w.WindowStart.UnixMilli())

	case "PING":
		return "PONG"

	default:
		return "ERROR unknown command"
	}
}

func (m *Manager) take(key string, now time.Time, window time.Duration, limit int) (rate_limit.Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.state[key]
	next, allowed := rate_limit.Advance(current.Window, exists, key, now, window, limit)
	m.state[key] = trackedWindow{Window: next, length: window}
	return next, allowed
}

func (m *Manager) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.state {
		if now.After(w.WindowStart.Add(w.length)) {
			delete(m.state, key)
			removed++
		}
	}
	return removed
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

// monitorIdleState shuts down the manager once no client has been connected for idleTimeout
func (m *Manager) monitorIdleState() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	idleSince := time.Time{}

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.clientsMu.Lock()
			clientCount := len(m.clients)
			m.clientsMu.Unlock()

			if clientCount == 0 {
				if idleSince.IsZero() {
					idleSince = time.Now()
				} else if time.Since(idleSince) > m.idleTimeout {
					m.logger.Printf("No clients connected for %s, shutting down manager", m.idleTimeout)
					m.Stop()
					return
				}
			} else {
				idleSince = time.Time{}
			}
		}
	}
}

// RunServer is the entry point for running the manager as a subprocess. It
// blocks until the manager goes idle or is stopped.
func RunServer(socketPath string, lg logger.Logger) error {
	manager := NewManager(ManagerConfig{
		SocketPath:  socketPath,
		IdleTimeout: defaultIdleTimeout,
		Logger:      lg,
	})
	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start rate limit manager: %w", err)
	}

	<-manager.Done()
	return nil
}
