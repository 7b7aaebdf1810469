// Package registry keeps the open connections to storage hosts and the
// mounted devices found on each of them.
package registry

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"pinas/explorer"
	"pinas/metrics"
	"pinas/service/fs"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrUnknownDevice     = errors.New("unknown storage device")
)

type ConnectRequest struct {
	IP       string `json:"ip" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Port     int    `json:"port"`
}

// Connection is the public view of a registered connection.
type Connection struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	IP             string          `json:"ip"`
	Username       string          `json:"username"`
	Connected      bool            `json:"connected"`
	Local          bool            `json:"local,omitempty"`
	StorageDevices []StorageDevice `json:"storage_devices"`
}

type Options struct {
	SSHPort     int
	DialTimeout time.Duration
	ShowHidden  bool
}

type Registry struct {
	opts Options
	log  zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*connection
}

type connection struct {
	info   Connection
	fs     fs.FileSystem
	client *ssh.Client
}

func New(opts Options, log zerolog.Logger) *Registry {
	return &Registry{
		opts:  opts,
		log:   log,
		conns: make(map[string]*connection),
	}
}

// Connect opens an SSH connection with password authentication, probes the
// mounted storage devices and starts an SFTP session for file operations.
func (r *Registry) Connect(ctx context.Context, req ConnectRequest) (*Connection, error) {
	conn, err := r.connect(ctx, req)
	metrics.RecordConnect(err)
	if err != nil {
		r.log.Warn().Err(err).Str("ip", req.IP).Msg("connect failed")
		return nil, err
	}

	r.add(conn)
	r.log.Info().Str("connection", conn.info.ID).Str("ip", req.IP).
		Int("devices", len(conn.info.StorageDevices)).Msg("connected")
	info := conn.info
	return &info, nil
}

func (r *Registry) connect(ctx context.Context, req ConnectRequest) (*connection, error) {
	port := req.Port
	if port == 0 {
		port = r.opts.SSHPort
	}
	addr := net.JoinHostPort(req.IP, strconv.Itoa(port))

	config := &ssh.ClientConfig{
		User:            req.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(req.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // Note: In production, use proper host key verification
		Timeout:         r.opts.DialTimeout,
	}

	dialer := net.Dialer{Timeout: r.opts.DialTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}

	if r.opts.DialTimeout > 0 {
		_ = tcpConn.SetDeadline(time.Now().Add(r.opts.DialTimeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, config)
	if err != nil {
		tcpConn.Close()
		return nil, errors.Wrap(err, "handshake/auth")
	}
	_ = tcpConn.SetDeadline(time.Time{})
	client := ssh.NewClient(c, chans, reqs)

	devices, err := r.probeDevices(client)
	if err != nil {
		client.Close()
		return nil, err
	}

	fsys, err := fs.NewSFTPFileSystem(client, r.log.With().Str("connection", req.IP).Logger())
	if err != nil {
		client.Close()
		return nil, err
	}

	return &connection{
		info: Connection{
			ID:             uuid.NewString(),
			Name:           fmt.Sprintf("RbPi (%s)", req.IP),
			IP:             req.IP,
			Username:       req.Username,
			Connected:      true,
			StorageDevices: devices,
		},
		fs:     fsys,
		client: client,
	}, nil
}

// AddLocal registers the local filesystem below root as a connection with a
// single device.
func (r *Registry) AddLocal(root string) (*Connection, error) {
	if !filepath.IsAbs(root) {
		return nil, errors.Errorf("local root %q must be absolute", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "local root")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("local root %q is not a directory", root)
	}

	total, free, err := fs.DiskUsage(root)
	if err != nil {
		r.log.Warn().Err(err).Str("root", root).Msg("disk usage unavailable")
	}
	host, _ := os.Hostname()

	conn := &connection{
		info: Connection{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("Local (%s)", host),
			IP:        "localhost",
			Username:  os.Getenv("USER"),
			Connected: true,
			Local:     true,
			StorageDevices: []StorageDevice{{
				ID:         uuid.NewString(),
				Name:       root,
				MountPoint: filepath.ToSlash(root),
				SizeTotal:  total,
				SizeFree:   free,
			}},
		},
		fs: fs.NewLocalFileSystem(r.log.With().Str("connection", "local").Logger()),
	}
	r.add(conn)

	result := conn.info
	return &result, nil
}

func (r *Registry) add(conn *connection) {
	r.mu.Lock()
	r.conns[conn.info.ID] = conn
	n := len(r.conns)
	r.mu.Unlock()
	metrics.SetActiveConnections(n)
}

// List returns the registered connections ordered by name.
func (r *Registry) List() []Connection {
	r.mu.RLock()
	result := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		result = append(result, c.info)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (r *Registry) Get(id string) (*Connection, error) {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrUnknownConnection, id)
	}
	info := c.info
	return &info, nil
}

// Device returns a storage device of a connection.
func (r *Registry) Device(connID, deviceID string) (*StorageDevice, error) {
	conn, err := r.Get(connID)
	if err != nil {
		return nil, err
	}
	for _, d := range conn.StorageDevices {
		if d.ID == deviceID {
			return &d, nil
		}
	}
	return nil, errors.Wrap(ErrUnknownDevice, deviceID)
}

// Disconnect closes and forgets a connection.
func (r *Registry) Disconnect(id string) error {
	r.mu.Lock()
	c, ok := r.conns[id]
	delete(r.conns, id)
	n := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return errors.Wrap(ErrUnknownConnection, id)
	}
	metrics.SetActiveConnections(n)
	r.log.Info().Str("connection", id).Msg("disconnected")
	return c.close()
}

// Close disconnects everything.
func (r *Registry) Close() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*connection)
	r.mu.Unlock()
	metrics.SetActiveConnections(0)

	var firstErr error
	for _, c := range conns {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) fileSystem(id string) (fs.FileSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, errors.Wrap(ErrUnknownConnection, id)
	}
	return c.fs, nil
}

func (c *connection) close() error {
	err := c.fs.Close()
	if c.client != nil {
		if cerr := c.client.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Quota converts a device's sizes for the explorer.
func (d StorageDevice) Quota() explorer.Quota {
	return explorer.Quota{SizeTotalBytes: d.SizeTotal, SizeFreeBytes: d.SizeFree}
}
