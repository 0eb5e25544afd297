// ABOUTME: mDNS service discovery for pcmstream servers
// ABOUTME: Browses the local network for servers advertising _pcmstream._tcp
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"go.uber.org/zap"
)

// DefaultService is the service type pcmstream servers advertise
const DefaultService = "_pcmstream._tcp"

// ErrNoServer is returned when browsing ends without finding a server
var ErrNoServer = errors.New("no server found")

// Config holds discovery configuration
type Config struct {
	Service string        // default _pcmstream._tcp
	Domain  string        // default local
	Timeout time.Duration // per query, default 3s
	Logger  *zap.SugaredLogger
}

// Manager handles mDNS browsing
type Manager struct {
	config  Config
	log     *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	query   func(*mdns.QueryParam) error

	once sync.Once
	done chan struct{}
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string // from the "path=" TXT record
}

// URL returns the WebSocket address of the server
func (s *ServerInfo) URL() string {
	path := s.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(s.Host, fmt.Sprint(s.Port)), path)
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Service == "" {
		config.Service = DefaultService
	}
	if config.Domain == "" {
		config.Domain = "local"
	}
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     config.Logger,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		query:   mdns.Query,
		done:    make(chan struct{}),
	}
}

// Browse starts searching for servers in the background
func (m *Manager) Browse() {
	m.once.Do(func() {
		go m.browseLoop()
	})
}

// browseLoop continuously browses for servers
func (m *Manager) browseLoop() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		forwarded := make(chan struct{})

		go func() {
			defer close(forwarded)
			for entry := range entries {
				server := serverFromEntry(entry)
				if server == nil {
					continue
				}

				m.log.Infow("discovered server", "name", server.Name, "addr", server.URL())

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := &mdns.QueryParam{
			Service: m.config.Service,
			Domain:  m.config.Domain,
			Timeout: m.config.Timeout,
			Entries: entries,
		}

		if err := m.query(params); err != nil {
			m.log.Warnw("mdns query failed", "error", err)
			select {
			case <-m.ctx.Done():
			case <-time.After(time.Second):
			}
		}
		close(entries)
		<-forwarded
	}
}

func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	host := entry.Host
	if entry.AddrV4 != nil {
		host = entry.AddrV4.String()
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return nil
	}

	server := &ServerInfo{
		Name: entry.Name,
		Host: host,
		Port: entry.Port,
	}
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "path="); ok {
			server.Path = v
		}
	}
	return server
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager and waits for the browse loop
func (m *Manager) Stop() {
	m.cancel()
	// never started
	m.once.Do(func() { close(m.done) })
	<-m.done
}

// Discover browses until the first server answers or the context ends
func Discover(ctx context.Context, config Config) (*ServerInfo, error) {
	m := NewManager(config)
	return m.first(ctx)
}

func (m *Manager) first(ctx context.Context) (*ServerInfo, error) {
	m.Browse()
	defer m.Stop()

	select {
	case server := <-m.servers:
		return server, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNoServer, ctx.Err())
	}
}
