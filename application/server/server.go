package server

import (
	"net/http"
	"time"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/protocol"
	"github.com/3nsoft/mailerid-go/protocol/pkl"
	"github.com/3nsoft/mailerid-go/protocol/session"
	"github.com/3nsoft/mailerid-go/storage/kv"
	"github.com/3nsoft/mailerid-go/storage/kv/leveldbkv"
	"github.com/3nsoft/mailerid-go/storage/users"
)

// A MidServer represents a MailerId provider.
// It wraps an IdProvider and the login protocol with a network layer
// which serves the service root, the login steps and certification.
// A MidServer also updates its provider key automatically at regular
// time intervals.
type MidServer struct {
	*application.ServerBase
	conf     *Config
	provider *IdProvider
	sessions *session.MemoryStore[*pkl.Params]
	login    *pkl.Server
	db       kv.DB
	users    *users.Store
	handler  http.Handler
}

// NewMidServer creates a MailerId provider from conf. It opens the
// users database and loads, or creates, the root key.
func NewMidServer(conf *Config, logger *application.Logger) (*MidServer, error) {
	return newMidServer(conf, logger, nil)
}

func newMidServer(conf *Config, logger *application.Logger,
	clock protocol.Clock) (*MidServer, error) {
	provider, err := NewIdProvider(conf.Domain, conf.RootCertsPath,
		conf.Policies, clock, logger)
	if err != nil {
		return nil, err
	}
	db, err := leveldbkv.OpenDB(conf.UsersDBPath)
	if err != nil {
		provider.Destroy()
		return nil, err
	}
	sessions := session.NewMemoryStore[*pkl.Params](conf.sessionTimeout(), clock)
	server := &MidServer{
		ServerBase: application.NewServerBase(conf.CommonConfig, "Listen", logger),
		conf:       conf,
		provider:   provider,
		sessions:   sessions,
		db:         db,
		users:      users.New(db),
	}
	server.login = pkl.NewServer(sessions, server.lookupUserKey)
	server.handler = server.routes()
	return server, nil
}

// Handler returns the server's HTTP handler.
func (server *MidServer) Handler() http.Handler {
	return server.handler
}

// Provider returns the server's identity provider.
func (server *MidServer) Provider() *IdProvider {
	return server.provider
}

// Users returns the server's user store.
func (server *MidServer) Users() *users.Store {
	return server.users
}

// Run implements the main functionality of the provider.
// It listens on all declared addresses and starts the provider update
// cycle, the session sweep and config hot-reloading.
func (server *MidServer) Run() error {
	for _, addr := range server.conf.Addresses {
		if err := server.ListenAndHandle(addr, server.handler); err != nil {
			return err
		}
	}
	server.sessions.Run(func(evicted int) {
		activeSessions.Set(float64(server.sessions.Len()))
		if evicted > 0 {
			server.Logger().Debug("Evicted idle sessions", "count", evicted)
		}
	})
	timer := application.NewUpdateTimer(server.provider.UpdatePeriod())
	server.RunInBackground(func() {
		server.PeriodicUpdate(timer, func() time.Duration {
			server.provider.Update()
			return 0
		})
	})
	server.RunInBackground(func() {
		server.HotReload(server.reloadRouting)
	})
	return nil
}

// reloadRouting re-reads the served domains and redirects from the
// config file. HotReload calls it with the server lock held.
func (server *MidServer) reloadRouting() {
	file, encoding := server.ConfigInfo()
	conf := new(Config)
	if err := conf.Load(file, encoding); err != nil {
		server.Logger().Error("Cannot reload config", "error", err.Error())
		return
	}
	if conf.Domain != server.conf.Domain {
		server.Logger().Error("Domain change needs a restart",
			"configured", conf.Domain, "running", server.conf.Domain)
		return
	}
	server.conf.Domains = conf.Domains
	server.conf.Redirects = conf.Redirects
	server.Logger().Info("Reloaded domains and redirects", "domains", conf.Domains)
}

// Shutdown stops the server, closes all sessions and wipes its keys.
func (server *MidServer) Shutdown() error {
	err := server.ServerBase.Shutdown()
	server.sessions.Stop()
	server.provider.Destroy()
	if dbErr := server.db.Close(); err == nil {
		err = dbErr
	}
	return err
}
