package storage

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pierrec/lz4"

	"github.com/ashtrail/devtools/internal/mapview"
)

const (
	snapshotMagic   = "ATXS"
	snapshotVersion = uint16(1)
	snapshotDir     = "textures"

	maxSide = 1 << 15

	// staleRunAge is how long snapshots of earlier runs are kept on disk.
	staleRunAge = 24 * time.Hour
)

var ErrBadSnapshot = errors.New("storage: malformed texture snapshot")

// SnapshotCache keeps decoded texture sets on disk as lz4-compressed
// binary snapshots, one file per batch key. Refresh tokens restart at zero
// with every process, so each cache only ever sees the snapshots of its
// own run: Dir is a run directory under <data>/textures.
type SnapshotCache struct {
	Dir string
}

// NewSnapshotCache returns a cache for this run rooted at <dir>/textures
// and drops run directories older than a day. An empty dir means the data
// directory.
func NewSnapshotCache(dir string) *SnapshotCache {
	if dir == "" {
		dir = DataDir()
	}
	root := filepath.Join(dir, snapshotDir)
	pruneRuns(root, staleRunAge)
	return &SnapshotCache{Dir: filepath.Join(root, newRunID())}
}

func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}

func pruneRuns(root string, maxAge time.Duration) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !e.IsDir() || time.Since(info.ModTime()) < maxAge {
			continue
		}
		_ = os.RemoveAll(filepath.Join(root, e.Name()))
	}
}

// Clear removes every snapshot of this run.
func (c *SnapshotCache) Clear() error {
	return os.RemoveAll(c.Dir)
}

func (c *SnapshotCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:16])+".lz4")
}

// Get returns the cached set for key. A missing file is a miss, not an
// error.
func (c *SnapshotCache) Get(key string) (*mapview.TextureSet, bool, error) {
	f, err := os.Open(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	set, err := ReadSnapshot(f)
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return set, true, nil
}

// Put writes set under key, replacing any previous snapshot.
func (c *SnapshotCache) Put(key string, set *mapview.TextureSet) error {
	if !set.Loaded() {
		return fmt.Errorf("storage: refusing to cache an incomplete texture set")
	}
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, set); err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	return WriteFile(c.Dir, filepath.Base(c.path(key)), buf.Bytes())
}

// WriteSnapshot encodes set to w.
func WriteSnapshot(w io.Writer, set *mapview.TextureSet) error {
	zw := lz4.NewWriter(w)
	bw := bufio.NewWriter(zw)

	width, height := set.Size()
	hdr := make([]byte, 0, 14)
	hdr = append(hdr, snapshotMagic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, snapshotVersion)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(width))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(height))
	if _, err := bw.Write(hdr); err != nil {
		return err
	}

	base := set.Base
	for y := 0; y < height; y++ {
		off := y * base.Stride
		if _, err := bw.Write(base.Pix[off : off+width*4]); err != nil {
			return err
		}
	}
	for _, m := range []*mapview.IDMap{set.Province, set.Duchy, set.Kingdom} {
		if err := writeIDMap(bw, m); err != nil {
			return err
		}
	}
	for _, m := range []*mapview.ScalarMap{set.Height, set.Biome, set.Landmask} {
		if err := writeScalarMap(bw, m); err != nil {
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		return err
	}
	return zw.Close()
}

func writeIDMap(w io.Writer, m *mapview.IDMap) error {
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:], uint32(m.Width))
	binary.LittleEndian.PutUint32(dims[4:], uint32(m.Height))
	if _, err := w.Write(dims[:]); err != nil {
		return err
	}
	_, err := w.Write(m.Pix)
	return err
}

func writeScalarMap(w io.Writer, m *mapview.ScalarMap) error {
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:], uint32(m.Width))
	binary.LittleEndian.PutUint32(dims[4:], uint32(m.Height))
	if _, err := w.Write(dims[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, m.Values)
}

// ReadSnapshot decodes a set written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*mapview.TextureSet, error) {
	br := bufio.NewReader(lz4.NewReader(r))

	hdr := make([]byte, 14)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, err
	}
	if string(hdr[:4]) != snapshotMagic {
		return nil, ErrBadSnapshot
	}
	if v := binary.LittleEndian.Uint16(hdr[4:]); v != snapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadSnapshot, v)
	}
	width := int(binary.LittleEndian.Uint32(hdr[6:]))
	height := int(binary.LittleEndian.Uint32(hdr[10:]))
	if width > maxSide || height > maxSide {
		return nil, ErrBadSnapshot
	}

	set := &mapview.TextureSet{Base: image.NewRGBA(image.Rect(0, 0, width, height))}
	if _, err := io.ReadFull(br, set.Base.Pix); err != nil {
		return nil, err
	}

	ids := make([]*mapview.IDMap, 3)
	for i := range ids {
		m, err := readIDMap(br)
		if err != nil {
			return nil, err
		}
		ids[i] = m
	}
	scalars := make([]*mapview.ScalarMap, 3)
	for i := range scalars {
		m, err := readScalarMap(br)
		if err != nil {
			return nil, err
		}
		scalars[i] = m
	}
	set.Province, set.Duchy, set.Kingdom = ids[0], ids[1], ids[2]
	set.Height, set.Biome, set.Landmask = scalars[0], scalars[1], scalars[2]
	return set, nil
}

func readDims(r io.Reader) (int, int, error) {
	var dims [8]byte
	if _, err := io.ReadFull(r, dims[:]); err != nil {
		return 0, 0, err
	}
	w := int(binary.LittleEndian.Uint32(dims[0:]))
	h := int(binary.LittleEndian.Uint32(dims[4:]))
	if w > maxSide || h > maxSide {
		return 0, 0, ErrBadSnapshot
	}
	return w, h, nil
}

func readIDMap(r io.Reader) (*mapview.IDMap, error) {
	w, h, err := readDims(r)
	if err != nil {
		return nil, err
	}
	m := mapview.NewIDMap(w, h)
	if _, err := io.ReadFull(r, m.Pix); err != nil {
		return nil, err
	}
	return m, nil
}

func readScalarMap(r io.Reader) (*mapview.ScalarMap, error) {
	w, h, err := readDims(r)
	if err != nil {
		return nil, err
	}
	m := mapview.NewScalarMap(w, h)
	if err := binary.Read(r, binary.LittleEndian, m.Values); err != nil {
		return nil, err
	}
	return m, nil
}
