package img2xlsx

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bodgit/img2xlsx/palette"
	"github.com/bodgit/img2xlsx/quantize"
	_ "github.com/mattn/go-sqlite3"
)

// MaxCacheColors is the largest palette whose quantized frames can be cached.
const MaxCacheColors = math.MaxUint16 + 1

var errCacheColors = fmt.Errorf("img2xlsx: frame cache only holds palettes of up to %d colors", MaxCacheColors)

// FrameCache stores quantized frames on disk so an unchanged frame does not
// need quantizing again on the next run.
type FrameCache struct {
	db *sql.DB
}

// NewFrameCache opens, or creates, the cache database in file.
func NewFrameCache(file string) (*FrameCache, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS frame (id INTEGER PRIMARY KEY NOT NULL, key TEXT NOT NULL UNIQUE, width INTEGER NOT NULL, height INTEGER NOT NULL, pix BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &FrameCache{
		db: db,
	}, nil
}

// CacheKey identifies a quantized frame by the SHA-1 of the frame file and
// everything else that affects quantization.
func CacheKey(digest string, p *palette.Palette, metric palette.Metric, dither bool) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%s\x00%t", digest, p.Fingerprint(), p.Len(), metric, dither)
	return fmt.Sprintf("%X", h.Sum(nil))
}

// Lookup returns the quantized frame stored under key, or nil if there isn't
// one.
func (fc *FrameCache) Lookup(key string) (*quantize.Indexed, error) {
	var width, height int
	var pix []byte
	switch err := fc.db.QueryRow("SELECT width, height, pix FROM frame WHERE key = ?", key).Scan(&width, &height, &pix); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		if width <= 0 || height <= 0 || len(pix) != width*height*2 {
			return nil, fmt.Errorf("img2xlsx: corrupt cache entry %s", key)
		}

		indices := make([]uint16, width*height)
		if err := binary.Read(bytes.NewReader(pix), binary.LittleEndian, indices); err != nil {
			return nil, err
		}

		q := quantize.NewIndexed(width, height)
		for i, v := range indices {
			q.Pix[i] = int(v)
		}

		return q, nil
	default:
		return nil, err
	}
}

// Store saves q under key, replacing anything already there.
func (fc *FrameCache) Store(key string, q *quantize.Indexed) error {
	indices := make([]uint16, len(q.Pix))
	for i, v := range q.Pix {
		if v < 0 || v >= MaxCacheColors {
			return errCacheColors
		}
		indices[i] = uint16(v)
	}

	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, indices); err != nil {
		return err
	}

	if _, err := fc.db.Exec("INSERT OR REPLACE INTO frame (key, width, height, pix) VALUES (?, ?, ?, ?)", key, q.Width, q.Height, b.Bytes()); err != nil {
		return err
	}
	return nil
}

// Len returns the number of cached frames.
func (fc *FrameCache) Len() (int, error) {
	var n int
	if err := fc.db.QueryRow("SELECT COUNT(*) FROM frame").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Purge removes every cached frame.
func (fc *FrameCache) Purge() error {
	_, err := fc.db.Exec("DELETE FROM frame")
	return err
}

// Close closes the underlying database.
func (fc *FrameCache) Close() error {
	return fc.db.Close()
}

// cachedFrame returns the cached quantization for key if it is usable for a
// width x height frame and a palette of size colors.
func (c *Converter) cachedFrame(key string, width, height, size int) (*quantize.Indexed, error) {
	q, err := c.cache.Lookup(key)
	if err != nil || q == nil {
		return nil, err
	}
	if q.Width != width || q.Height != height {
		return nil, errors.New("cached frame has different dimensions")
	}
	if err := q.Validate(size); err != nil {
		return nil, err
	}
	return q, nil
}
