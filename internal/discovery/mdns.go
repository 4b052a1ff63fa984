// ABOUTME: mDNS advertisement of the audio stream endpoint
// ABOUTME: Announces _netcast._tcp with the stream path and codec in TXT
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/hashicorp/mdns"
)

const serviceType = "_netcast._tcp"

// Config holds the advertised stream attributes.
type Config struct {
	Name  string
	Port  int
	Codec string
}

// Manager advertises the stream endpoint on the local network. It only
// announces; the server never browses for peers.
type Manager struct {
	logger *slog.Logger
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager(config Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		logger: logger,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Advertise publishes the service record until Stop is called.
func (m *Manager) Advertise() error {
	ips, err := localIPs()
	if err != nil {
		return fmt.Errorf("get local addresses: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.Name,
		serviceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/stream", "codec=" + m.config.Codec},
	)
	if err != nil {
		return fmt.Errorf("create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("create mdns server: %w", err)
	}

	m.logger.Info("advertising stream",
		"name", m.config.Name, "type", serviceType, "port", m.config.Port,
		"codec", m.config.Codec)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Stop withdraws the advertisement.
func (m *Manager) Stop() {
	m.cancel()
}

// localIPs returns the non-loopback IPv4 addresses of up interfaces.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
