package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kilianp07/wastefleet/core/model"
	corestore "github.com/kilianp07/wastefleet/core/store"
)

// GoldStore reads the fill feed and the position registry from the gold
// bucket and writes single-index feed resets back, matching the layout the
// upstream pipeline produces: newline-separated integers for the feed and a
// {"positions": [[lat,lon], ...]} document for the registry.
type GoldStore struct {
	cli     *minio.Client
	bucket  string
	fillKey string
	posKey  string
}

var _ corestore.FeedStore = (*GoldStore)(nil)

// NewGoldStore connects to the object store.
func NewGoldStore(cfg Config) (*GoldStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.Endpoint, err)
	}
	return &GoldStore{
		cli:     cli,
		bucket:  cfg.Bucket,
		fillKey: cfg.FillKey,
		posKey:  cfg.PositionsKey,
	}, nil
}

func (s *GoldStore) getObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.cli.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: get %s/%s: %w", s.bucket, key, err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("store: read %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func parseFill(data []byte) ([]int, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	fill := make([]int, 0, len(lines))
	for i, line := range lines {
		v, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("store: bad fill value at line %d: %w", i, err)
		}
		fill = append(fill, v)
	}
	return fill, nil
}

// ReadFill returns the current fill level per location index.
func (s *GoldStore) ReadFill(ctx context.Context) ([]int, error) {
	data, err := s.getObject(ctx, s.fillKey)
	if err != nil {
		return nil, err
	}
	return parseFill(data)
}

// ResetFill rewrites the feed with the given location zeroed. The assignment
// engine is the sole writer, so read-modify-write is race free.
func (s *GoldStore) ResetFill(ctx context.Context, location int) error {
	data, err := s.getObject(ctx, s.fillKey)
	if err != nil {
		return err
	}
	fill, err := parseFill(data)
	if err != nil {
		return err
	}
	if location < 0 || location >= len(fill) {
		return fmt.Errorf("store: location %d out of range [0,%d)", location, len(fill))
	}
	fill[location] = 0

	lines := make([]string, len(fill))
	for i, v := range fill {
		lines[i] = strconv.Itoa(v)
	}
	body := []byte(strings.Join(lines, "\n"))
	_, err = s.cli.PutObject(ctx, s.bucket, s.fillKey, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return fmt.Errorf("store: put %s/%s: %w", s.bucket, s.fillKey, err)
	}
	return nil
}

// ReadPositions returns the location coordinate registry.
func (s *GoldStore) ReadPositions(ctx context.Context) ([]model.Coord, error) {
	data, err := s.getObject(ctx, s.posKey)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Positions [][2]float64 `json:"positions"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.posKey, err)
	}
	coords := make([]model.Coord, len(doc.Positions))
	for i, p := range doc.Positions {
		coords[i] = model.Coord{Lat: p[0], Lon: p[1]}
	}
	return coords, nil
}
