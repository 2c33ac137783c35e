package uds

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brightsphere/ai-gateway/rate_limit"
	"github.com/brightsphere/ai-gateway/utils/logger"
)

const dialTimeout = time.Second

// Client is a rate_limit.Backend that delegates every window to the Manager
// over a Unix Domain Socket.
type Client struct {
	socketPath string
	spawn      bool
	logger     logger.Logger

	conn   net.Conn
	mu     sync.Mutex
	reader *bufio.Reader
}

var _ rate_limit.Backend = (*Client)(nil)

// ClientConfig configures a Client. With Spawn set the client starts
// "<self> rate-limiter" when no manager is listening.
type ClientConfig struct {
	SocketPath string
	Spawn      bool
	Logger     logger.Logger
}

// NewClient creates a new UDS rate limiter client. A failed first connection is
// logged, not returned; Take retries the connection on every call.
func NewClient(config ClientConfig) *Client {
	if config.SocketPath == "" {
		config.SocketPath = DefaultSocketPath
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}

	client := &Client{
		socketPath: config.SocketPath,
		spawn:      config.Spawn,
		logger:     config.Logger,
	}

	client.mu.Lock()
	if err := client.ensureConnection(); err != nil {
		client.logger.Warnf("Failed to connect to rate limit manager: %v", err)
	}
	client.mu.Unlock()

	return client
}

// Note: caller must hold the lock
func (c *Client) ensureConnection() error {
	conn, err := c.dialManager()
	if err == nil {
		c.setConn(conn)
		return nil
	}

	if !c.spawn {
		return fmt.Errorf("manager not reachable: %w", err)
	}

	if err := c.startManager(); err != nil {
		return fmt.Errorf("failed to start manager: %w", err)
	}

	// Give the manager a moment to bind the socket
	for attempt := 0; attempt < 10; attempt++ {
		time.Sleep(50 * time.Millisecond)
		if conn, err = c.dialManager(); err == nil {
			c.setConn(conn)
			return nil
		}
	}

	return fmt.Errorf("failed to connect after starting manager: %w", err)
}

func (c *Client) setConn(conn net.Conn) {
	c.conn = conn
	c.reader = bufio.NewReader(conn)
}

func (c *Client) dropConn() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.reader = nil
}

func (c *Client) dialManager() (net.Conn, error) {
	return net.DialTimeout("unix", c.socketPath, dialTimeout)
}

// startManager starts the rate limit manager as a detached background process
func (c *Client) startManager() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := managerCommand(execPath, c.socketPath)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start manager process: %w", err)
	}

	go cmd.Wait()

	return nil
}

// sendCommand sends a command and returns the response line. A connection
// that fails before the command is written is re-established once. Once the
// command has been written it is never resent, so a TAKE counts at most once.
func (c *Client) sendCommand(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	response, sent, err := c.roundTrip(command)
	if err == nil {
		return response, nil
	}

	c.dropConn()
	if sent {
		return "", err
	}

	if err := c.ensureConnection(); err != nil {
		return "", fmt.Errorf("failed to reconnect: %w", err)
	}

	response, _, err = c.roundTrip(command)
	if err != nil {
		c.dropConn()
		return "", fmt.Errorf("command failed after reconnect: %w", err)
	}
	return response, nil
}

// roundTrip reports whether the command reached the socket alongside any error.
// Note: caller must hold the lock
func (c *Client) roundTrip(command string) (string, bool, error) {
	if c.conn == nil {
		return "", false, fmt.Errorf("not connected to manager")
	}

	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		return "", false, fmt.Errorf("failed to send command: %w", err)
	}

	response, err := c.reader.ReadString('\n')
	if err != nil {
		return "", true, fmt.Errorf("failed to read response: %w", err)
	}

	return strings.TrimSpace(response), true, nil
}

// Take asks the manager to apply the fixed-window check for key.
func (c *Client) Take(key string, now time.Time, window time.Duration, limit int) (rate_limit.Window, bool, error) {
	command := fmt.Sprintf("TAKE %s %d %d %d", url.QueryEscape(key), now.UnixMilli(), window.Milliseconds(), limit)

	response, err := c.sendCommand(command)
	if err != nil {
		return rate_limit.Window{}, false, err
	}

	return parseTakeResponse(key, response)
}

// Ping checks that the manager answers.
func (c *Client) Ping() error {
	response, err := c.sendCommand("PING")
	if err != nil {
		return err
	}
	if response != "PONG" {
		return fmt.Errorf("unexpected ping response %q", response)
	}
	return nil
}

// Close closes the connection to the manager
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		c.reader = nil
		return err
	}
	return nil
}

func parseTakeResponse(key string, response string) (rate_limit.Window, bool, error) {
	parts := strings.Fields(response)
	if len(parts) != 3 || (parts[0] != "ALLOW" && parts[0] != "DENY") {
		return rate_limit.Window{}, false, fmt.Errorf("unexpected manager response %q", response)
	}

	count, err1 := strconv.Atoi(parts[1])
	startMs, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		return rate_limit.Window{}, false, fmt.Errorf("unexpected manager response %q", response)
	}

	return rate_limit.Window{
		Key:         key,
		WindowStart: time.UnixMilli(startMs),
		Count:       count,
	}, parts[0] == "ALLOW", nil
}
