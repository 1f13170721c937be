// Package texload fetches and decodes the texture set of one planet.
package texload

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/ashtrail/devtools/internal/mapview"
)

// Source names one texture batch. A batch is fully determined by the
// (PlanetID, BaseTextureURL, Token) triple.
type Source struct {
	PlanetID       string `json:"planetId"`
	BaseTextureURL string `json:"baseTextureUrl"`
	Token          int64  `json:"refreshToken"`
}

// Key is a stable cache key for the source.
func (s Source) Key() string {
	return s.PlanetID + "|" + s.BaseTextureURL + "|" + strconv.FormatInt(s.Token, 10)
}

// Cache stores decoded texture sets between runs.
type Cache interface {
	Get(key string) (*mapview.TextureSet, bool, error)
	Put(key string, set *mapview.TextureSet) error
}

// Loader fetches the seven maps of a texture batch.
type Loader struct {
	APIBase string
	Client  *http.Client
	Cache   Cache
	Logf    func(format string, args ...any)
}

func New(apiBase string) *Loader {
	return &Loader{
		APIBase: strings.TrimRight(apiBase, "/"),
		Client:  http.DefaultClient,
	}
}

type mapKey string

const (
	keyBase     mapKey = "base"
	keyProvince mapKey = "province_id"
	keyDuchy    mapKey = "duchy_id"
	keyKingdom  mapKey = "kingdom_id"
	keyHeight   mapKey = "height16"
	keyBiome    mapKey = "biome"
	keyLandmask mapKey = "landmask"
)

var worldgenKeys = []mapKey{keyProvince, keyDuchy, keyKingdom, keyHeight, keyBiome, keyLandmask}

// URLs returns the seven texture URLs for a source, cache-busted with the
// token, base first.
func (l *Loader) URLs(src Source) map[mapKey]string {
	bust := "v=" + strconv.FormatInt(src.Token, 10)
	sep := "?"
	if strings.Contains(src.BaseTextureURL, "?") {
		sep = "&"
	}
	urls := map[mapKey]string{keyBase: src.BaseTextureURL + sep + bust}
	root := fmt.Sprintf("%s/api/planets/%s/worldgen", l.APIBase, url.PathEscape(src.PlanetID))
	for _, k := range worldgenKeys {
		urls[k] = fmt.Sprintf("%s/%s.png?%s", root, k, bust)
	}
	return urls
}

// Load fetches every map of the batch concurrently. The first failure
// cancels the rest and fails the whole batch; nothing partial is returned.
func (l *Loader) Load(ctx context.Context, src Source) (*mapview.TextureSet, error) {
	if src.PlanetID == "" || src.BaseTextureURL == "" {
		return nil, fmt.Errorf("texload: planet id and base texture url are required")
	}

	if l.Cache != nil {
		set, ok, err := l.Cache.Get(src.Key())
		if err != nil {
			l.logf("texture cache read failed: %v", err)
		} else if ok {
			return set, nil
		}
	}

	urls := l.URLs(src)
	decoded := make(map[mapKey]image.Image, len(urls))
	results := make(chan struct {
		key mapKey
		img image.Image
	}, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for key, url := range urls {
		g.Go(func() error {
			img, err := l.fetch(gctx, url)
			if err != nil {
				return fmt.Errorf("failed to load %s: %s: %w", key, url, err)
			}
			results <- struct {
				key mapKey
				img image.Image
			}{key, img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(results)
	for r := range results {
		decoded[r.key] = r.img
	}

	set := &mapview.TextureSet{
		Base:     toRGBA(decoded[keyBase]),
		Province: mapview.IDMapFromRGBA(toRGBA(decoded[keyProvince])),
		Duchy:    mapview.IDMapFromRGBA(toRGBA(decoded[keyDuchy])),
		Kingdom:  mapview.IDMapFromRGBA(toRGBA(decoded[keyKingdom])),
		Height:   mapview.ScalarMapFromImage(decoded[keyHeight]),
		Biome:    mapview.ScalarMapFromImage(decoded[keyBiome]),
		Landmask: mapview.ScalarMapFromImage(decoded[keyLandmask]),
	}

	if l.Cache != nil {
		if err := l.Cache.Put(src.Key(), set); err != nil {
			l.logf("texture cache write failed: %v", err)
		}
	}
	return set, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// toRGBA draws img into an offscreen RGBA raster so its raw bytes can be
// read directly.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

func (l *Loader) logf(format string, args ...any) {
	if l.Logf != nil {
		l.Logf(format, args...)
	}
}
