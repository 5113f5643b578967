package plancache

import (
	"context"
	"errors"
	"io"
	stdlog "log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/memberlist"
	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

// olricCache is the team backend. In embedded mode devrig hosts an Olric
// node itself; in client mode it joins an existing cluster. Either way the
// cache holds the team's shared substituter lookup results.
type olricCache struct {
	db     *olric.Olric // embedded node, nil in client mode
	client olric.Client
	dmap   olric.DMap
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.RWMutex
}

var (
	_ Cache  = (*olricCache)(nil)
	_ Pinger = (*olricCache)(nil)
)

const defaultDMapName = "devrig"

func newOlricCache(ctx context.Context, cfg *OlricConfig) (*olricCache, error) {
	log := logger().With().Str("backend", "olric").Logger()

	dmapName := cfg.DMapName
	if dmapName == "" {
		dmapName = defaultDMapName
	}

	if cfg.Embedded {
		return newEmbeddedOlric(ctx, cfg, dmapName, log)
	}
	return newClientOlric(ctx, cfg, dmapName, log)
}

func newEmbeddedOlric(ctx context.Context, cfg *OlricConfig, dmapName string, log zerolog.Logger) (*olricCache, error) {
	c := olricconfig.New("local")

	host, port := splitBindAddr(cfg.BindAddr)
	c.BindAddr = host
	if port > 0 {
		c.BindPort = port
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
		// Cross-host clusters need LAN gossip timing instead of the
		// loopback profile olric's "local" preset ships with.
		ml := memberlist.DefaultLANConfig()
		ml.BindAddr = host
		if port > 0 {
			ml.BindPort = port + 1
		}
		c.MemberlistConfig = ml
	}
	if cfg.ReplicaCount > 0 {
		c.ReplicaCount = cfg.ReplicaCount
	}

	// Olric's own logging is noisy; devrig logs through zerolog instead.
	c.LogOutput = io.Discard
	c.Logger = stdlog.New(io.Discard, "", 0)

	ready := make(chan struct{})
	c.Started = func() { close(ready) }

	db, err := olric.New(c)
	if err != nil {
		return nil, err
	}

	startErr := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			startErr <- err
		}
	}()

	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	select {
	case <-ready:
	case err := <-startErr:
		return nil, err
	case <-startupCtx.Done():
		return nil, startupCtx.Err()
	}

	client := db.NewEmbeddedClient()
	dm, err := client.NewDMap(dmapName)
	if err != nil {
		if shutdownErr := db.Shutdown(context.Background()); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("olric shutdown after dmap failure")
		}
		return nil, err
	}

	log.Info().
		Str("bind_addr", cfg.BindAddr).
		Str("dmap", dmapName).
		Int("peers", len(cfg.Peers)).
		Msg("embedded team cache ready")

	return &olricCache{db: db, client: client, dmap: dm, log: log}, nil
}

func newClientOlric(ctx context.Context, cfg *OlricConfig, dmapName string, log zerolog.Logger) (*olricCache, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("plancache: olric addresses required for client mode")
	}

	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		return nil, err
	}

	dm, err := client.NewDMap(dmapName)
	if err != nil {
		if closeErr := client.Close(ctx); closeErr != nil {
			log.Error().Err(closeErr).Msg("olric client close after dmap failure")
		}
		return nil, err
	}

	log.Info().
		Strs("addresses", cfg.Addresses).
		Str("dmap", dmapName).
		Msg("joined team cache cluster")

	return &olricCache{client: client, dmap: dm, log: log}, nil
}

func (o *olricCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := o.guard(ctx); err != nil {
		return nil, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed.Load() {
		return nil, ErrClosed
	}

	resp, err := o.dmap.Get(ctx, key)
	if err != nil {
		if errors.Is(err, olric.ErrKeyNotFound) {
			o.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
			return nil, ErrNotFound
		}
		return nil, err
	}

	value, err := resp.Byte()
	if err != nil {
		return nil, err
	}

	o.log.Debug().Str("key", key).Bool("hit", true).Int("size", len(value)).Msg("cache get")
	return value, nil
}

func (o *olricCache) Set(ctx context.Context, key string, value []byte) error {
	return o.put(ctx, key, value, 0)
}

func (o *olricCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return o.put(ctx, key, value, ttl)
}

func (o *olricCache) put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := o.guard(ctx); err != nil {
		return err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed.Load() {
		return ErrClosed
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	var err error
	if ttl > 0 {
		err = o.dmap.Put(ctx, key, stored, olric.EX(ttl))
	} else {
		err = o.dmap.Put(ctx, key, stored)
	}
	if err != nil {
		return err
	}

	o.log.Debug().Str("key", key).Int("size", len(stored)).Dur("ttl", ttl).Msg("cache set")
	return nil
}

func (o *olricCache) Delete(ctx context.Context, key string) error {
	if err := o.guard(ctx); err != nil {
		return err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed.Load() {
		return ErrClosed
	}

	_, err := o.dmap.Delete(ctx, key)
	if err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (o *olricCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := o.guard(ctx); err != nil {
		return false, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed.Load() {
		return false, ErrClosed
	}

	_, err := o.dmap.Get(ctx, key)
	if errors.Is(err, olric.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (o *olricCache) Ping(ctx context.Context) error {
	if err := o.guard(ctx); err != nil {
		return err
	}
	_, err := o.dmap.Get(ctx, "ping-probe")
	if errors.Is(err, olric.ErrKeyNotFound) {
		return nil
	}
	return err
}

// guard rejects operations with a dead context or a closed cache before the
// lock is taken.
func (o *olricCache) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (o *olricCache) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.client.Close(ctx); err != nil {
		o.log.Error().Err(err).Msg("olric client close")
	}
	if o.db != nil {
		return o.db.Shutdown(ctx)
	}
	return nil
}

// splitBindAddr accepts "host:port" or bare "host".
func splitBindAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
