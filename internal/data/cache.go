package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ContractCache memoizes per (symbol, date) contract listings on disk so
// repeated runs skip the vendor API. Layout:
//
//	<dir>/<SYMBOL>/<YYYY-MM-DD>.json
//
// Concurrency: load-or-fetch-then-store is mutually exclusive per key, so two
// workers asking for the same (symbol, date) trigger one upstream fetch.
// Reads of already-settled keys take only the map lock. Writes go through a
// temp file and rename, so a cancelled run never leaves a torn JSON behind.
type ContractCache struct {
	dir      string
	upstream ContractProvider

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	mem   map[string][]OptionContract
}

func NewContractCache(dir string, upstream ContractProvider) *ContractCache {
	return &ContractCache{
		dir:      dir,
		upstream: upstream,
		locks:    make(map[string]*sync.Mutex),
		mem:      make(map[string][]OptionContract),
	}
}

// cachedContract is the persisted JSON shape. Dates are kept as strings so
// the files stay diffable and vendor-shaped.
type cachedContract struct {
	Ticker         string  `json:"ticker"`
	ExpirationDate string  `json:"expiration_date"`
	StrikePrice    float64 `json:"strike_price"`
	ContractType   string  `json:"contract_type"`
}

// ListContracts returns the cached listing for (underlying, asOf), fetching
// from upstream and persisting on first use.
func (c *ContractCache) ListContracts(ctx context.Context, underlying string, asOf, expiryFrom, expiryTo time.Time) ([]OptionContract, error) {
	key := cacheKey(underlying, asOf)

	c.mu.Lock()
	if hit, ok := c.mem[key]; ok {
		c.mu.Unlock()
		return hit, nil
	}
	keyLock, ok := c.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		c.locks[key] = keyLock
	}
	c.mu.Unlock()

	keyLock.Lock()
	defer keyLock.Unlock()

	// another worker may have settled the key while we waited
	c.mu.Lock()
	if hit, ok := c.mem[key]; ok {
		c.mu.Unlock()
		return hit, nil
	}
	c.mu.Unlock()

	if contracts, ok := c.loadFile(key); ok {
		c.settle(key, contracts)
		return contracts, nil
	}

	contracts, err := c.upstream.ListContracts(ctx, underlying, asOf, expiryFrom, expiryTo)
	if err != nil {
		return nil, err
	}
	c.settle(key, contracts)
	return contracts, nil
}

// Flush rewrites every in-memory entry to disk through the usual temp file
// and rename. Called on normal completion and on cancellation.
func (c *ContractCache) Flush() {
	c.mu.Lock()
	entries := make(map[string][]OptionContract, len(c.mem))
	for k, v := range c.mem {
		entries[k] = v
	}
	c.mu.Unlock()

	for key, contracts := range entries {
		if err := c.writeFile(key, contracts); err != nil {
			log.WithField("key", key).WithError(err).Warn("cache flush failed")
		}
	}
}

func (c *ContractCache) settle(key string, contracts []OptionContract) {
	c.mu.Lock()
	c.mem[key] = contracts
	c.mu.Unlock()
	if err := c.writeFile(key, contracts); err != nil {
		log.WithField("key", key).WithError(err).Warn("cache write failed")
	}
}

func (c *ContractCache) loadFile(key string) ([]OptionContract, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var rows []cachedContract
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.WithField("key", key).WithError(err).Warn("discarding corrupt cache file")
		return nil, false
	}

	out := make([]OptionContract, 0, len(rows))
	for _, row := range rows {
		typ, ok := ParseOptionType(row.ContractType)
		if !ok {
			continue
		}
		expiry, err := time.Parse("2006-01-02", row.ExpirationDate)
		if err != nil {
			continue
		}
		out = append(out, OptionContract{
			Symbol: row.Ticker,
			Expiry: expiry,
			Strike: row.StrikePrice,
			Type:   typ,
		})
	}
	return out, true
}

func (c *ContractCache) writeFile(key string, contracts []OptionContract) error {
	rows := make([]cachedContract, 0, len(contracts))
	for _, ct := range contracts {
		rows = append(rows, cachedContract{
			Ticker:         ct.Symbol,
			ExpirationDate: ct.Expiry.Format("2006-01-02"),
			StrikePrice:    ct.Strike,
			ContractType:   string(ct.Type),
		})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *ContractCache) path(key string) string {
	parts := strings.SplitN(key, "/", 2)
	return filepath.Join(c.dir, parts[0], parts[1]+".json")
}

func cacheKey(underlying string, asOf time.Time) string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(underlying), asOf.Format("2006-01-02"))
}
