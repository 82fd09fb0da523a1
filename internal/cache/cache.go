package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"

	"github.com/keagan/beatcut/internal/clips"
	"github.com/keagan/beatcut/internal/energy"
)

const keyPrefix = 't'

// TriggerCache memoises clip analysis by file content for the life of the process
type TriggerCache struct {
	logger     zerolog.Logger
	db         *badger.DB
	sampleRate int
}

// Open creates an in-memory cache for analyses decoded at sampleRate
func Open(logger zerolog.Logger, sampleRate int) (*TriggerCache, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open trigger cache: %w", err)
	}
	return &TriggerCache{
		logger:     logger.With().Str("component", "cache").Logger(),
		db:         db,
		sampleRate: sampleRate,
	}, nil
}

// Close releases the store
func (c *TriggerCache) Close() error {
	return c.db.Close()
}

// Digest returns the xxhash64 of the file at path
func Digest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func (c *TriggerCache) key(digest uint64) []byte {
	key := make([]byte, 13)
	key[0] = keyPrefix
	binary.BigEndian.PutUint64(key[1:], digest)
	binary.BigEndian.PutUint32(key[9:], uint32(c.sampleRate))
	return key
}

// Get looks up a previous analysis by content digest
func (c *TriggerCache) Get(digest uint64) (clips.Analysis, bool, error) {
	var res clips.Analysis
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(digest))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			res, err = decodeAnalysis(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return clips.Analysis{}, false, nil
	}
	if err != nil {
		return clips.Analysis{}, false, err
	}
	return res, true, nil
}

// Put stores an analysis under its content digest
func (c *TriggerCache) Put(digest uint64, a clips.Analysis) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key(digest), encodeAnalysis(a))
	})
}

// Wrap returns an AnalyzeFunc that consults the cache before calling fn.
// Failed analyses are not cached.
func (c *TriggerCache) Wrap(fn clips.AnalyzeFunc) clips.AnalyzeFunc {
	return func(ctx context.Context, path string) (clips.Analysis, error) {
		digest, err := Digest(path)
		if err != nil {
			return clips.Analysis{}, fmt.Errorf("digest %s: %w", path, err)
		}

		if res, ok, err := c.Get(digest); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("cache lookup failed")
		} else if ok {
			c.logger.Debug().Str("path", path).Uint64("digest", digest).Msg("trigger cache hit")
			return res, nil
		}

		res, err := fn(ctx, path)
		if err != nil {
			return res, err
		}
		if err := c.Put(digest, res); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("cache store failed")
		}
		return res, nil
	}
}

// encodeAnalysis lays out duration, count, then (time, intensity) pairs
func encodeAnalysis(a clips.Analysis) []byte {
	buf := make([]byte, 12+16*len(a.TriggerPoints))
	binary.BigEndian.PutUint64(buf[0:], uint64(a.Duration))
	binary.BigEndian.PutUint32(buf[8:], uint32(len(a.TriggerPoints)))
	off := 12
	for _, tp := range a.TriggerPoints {
		binary.BigEndian.PutUint64(buf[off:], uint64(tp.Time))
		binary.BigEndian.PutUint64(buf[off+8:], math.Float64bits(tp.Intensity))
		off += 16
	}
	return buf
}

func decodeAnalysis(val []byte) (clips.Analysis, error) {
	if len(val) < 12 {
		return clips.Analysis{}, fmt.Errorf("cache entry too short (%d bytes)", len(val))
	}
	n := int(binary.BigEndian.Uint32(val[8:]))
	if len(val) != 12+16*n {
		return clips.Analysis{}, fmt.Errorf("cache entry size %d does not hold %d points", len(val), n)
	}

	a := clips.Analysis{
		Duration:      time.Duration(binary.BigEndian.Uint64(val[0:])),
		TriggerPoints: make([]energy.TriggerPoint, n),
	}
	off := 12
	for i := range a.TriggerPoints {
		a.TriggerPoints[i] = energy.TriggerPoint{
			Time:      time.Duration(binary.BigEndian.Uint64(val[off:])),
			Intensity: math.Float64frombits(binary.BigEndian.Uint64(val[off+8:])),
		}
		off += 16
	}
	return a, nil
}
