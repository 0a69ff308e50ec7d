package application

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// An UpdateTimer consists of a `time.Timer` and the update period.
type UpdateTimer struct {
	*time.Timer
	period time.Duration
}

// NewUpdateTimer initializes a timer for running regular
// update procedures every period.
func NewUpdateTimer(period time.Duration) *UpdateTimer {
	return &UpdateTimer{
		Timer:  time.NewTimer(period),
		period: period,
	}
}

// A ServerAddress describes a server's connection.
// It supports two types of connections: a TCP connection ("tcp")
// and a Unix socket connection ("unix").
//
// Additionally, TCP connections must use TLS for added security,
// and each is required to specify a TLS certificate and corresponding
// private key.
type ServerAddress struct {
	// Address is formatted as a url: scheme://address.
	Address string `toml:"address"`
	// TLSCertPath is a path to the server's TLS Certificate,
	// which has to be set if the connection is TCP.
	TLSCertPath string `toml:"cert,omitempty"`
	// TLSKeyPath is a path to the server's TLS private key,
	// which has to be set if the connection is TCP.
	TLSKeyPath string `toml:"key,omitempty"`
}

// ErrUnknownNetwork is returned for an address that is neither
// tcp:// nor unix://.
var ErrUnknownNetwork = errors.New("[application] Unknown network type")

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// A ServerBase represents the base features needed to implement
// a MailerId server. It serves an http.Handler on every configured
// address, runs background update procedures, and shuts everything
// down together.
type ServerBase struct {
	Verb string

	logger *Logger
	sync.RWMutex

	stop     chan struct{}
	waitStop sync.WaitGroup

	srvMu   sync.Mutex
	servers []*http.Server

	configFilePath string
	configEncoding string
	reloadChan     chan os.Signal
}

// NewServerBase creates a new generic MailerId-ready server base.
func NewServerBase(conf *CommonConfig, listenVerb string, logger *Logger) *ServerBase {
	sb := new(ServerBase)
	sb.Verb = listenVerb
	sb.logger = logger
	sb.stop = make(chan struct{})
	sb.configFilePath = conf.Path
	sb.configEncoding = conf.Encoding
	sb.reloadChan = make(chan os.Signal, 1)
	signal.Notify(sb.reloadChan, syscall.SIGUSR2)
	return sb
}

// ListenAndHandle listens at the given server address and serves
// handler on it in the background until Shutdown.
func (sb *ServerBase) ListenAndHandle(addr *ServerAddress, handler http.Handler) error {
	ln, tlsConfig, err := addr.resolveAndListen()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	sb.srvMu.Lock()
	sb.servers = append(sb.servers, srv)
	sb.srvMu.Unlock()

	sb.RunInBackground(func() {
		sb.logger.Info(sb.Verb, "address", addr.Address)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			sb.logger.Error(err.Error(), "address", addr.Address)
		}
	})
	return nil
}

func (addr *ServerAddress) resolveAndListen() (ln net.Listener,
	tlsConfig *tls.Config, err error) {
	u, err := url.Parse(addr.Address)
	if err != nil {
		return nil, nil, err
	}
	switch u.Scheme {
	case "tcp":
		// force to use TLS
		cer, err := tls.LoadX509KeyPair(addr.TLSCertPath, addr.TLSKeyPath)
		if err != nil {
			return nil, nil, err
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cer}}
		tcpaddr, err := net.ResolveTCPAddr(u.Scheme, u.Host)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenTCP(u.Scheme, tcpaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, tlsConfig, nil
	case "unix":
		unixaddr, err := net.ResolveUnixAddr(u.Scheme, u.Path)
		if err != nil {
			return nil, nil, err
		}
		ln, err = net.ListenUnix(u.Scheme, unixaddr)
		if err != nil {
			return nil, nil, err
		}
		return ln, nil, nil
	default:
		return nil, nil, fmt.Errorf("%s: %w", addr.Address, ErrUnknownNetwork)
	}
}

// RunInBackground creates a new goroutine that calls function `f`.
// It automatically increments the counter `sync.WaitGroup` of the
// `ServerBase` and calls `Done` when the function execution is finished.
func (sb *ServerBase) RunInBackground(f func()) {
	sb.waitStop.Add(1)
	go func() {
		f()
		sb.waitStop.Done()
	}()
}

// PeriodicUpdate runs function `f` every period of the given timer
// until Shutdown. `f` runs under the write lock and returns the delay
// until its next run; zero keeps the timer's period.
func (sb *ServerBase) PeriodicUpdate(timer *UpdateTimer, f func() time.Duration) {
	for {
		select {
		case <-sb.stop:
			timer.Stop()
			return
		case <-timer.C:
			sb.Lock()
			next := f()
			sb.Unlock()
			if next <= 0 {
				next = timer.period
			}
			timer.Reset(next)
		}
	}
}

// HotReload implements hot-reloading by listening for SIGUSR2 signal.
func (sb *ServerBase) HotReload(f func()) {
	for {
		select {
		case <-sb.stop:
			return
		case <-sb.reloadChan:
			sb.Lock()
			f()
			sb.Unlock()
		}
	}
}

// Stopped returns a channel that is closed on Shutdown.
func (sb *ServerBase) Stopped() <-chan struct{} {
	return sb.stop
}

// Logger returns the server base's logger instance.
func (sb *ServerBase) Logger() *Logger {
	return sb.logger
}

// ConfigInfo returns the server base's config file path and encoding.
func (sb *ServerBase) ConfigInfo() (string, string) {
	return sb.configFilePath, sb.configEncoding
}

// Shutdown stops the listeners, lets in-flight requests finish and
// waits for the background procedures to return.
func (sb *ServerBase) Shutdown() error {
	close(sb.stop)
	signal.Stop(sb.reloadChan)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var firstErr error
	sb.srvMu.Lock()
	for _, srv := range sb.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	sb.srvMu.Unlock()
	sb.waitStop.Wait()
	return firstErr
}
