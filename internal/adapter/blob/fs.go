package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rl1809/visio/internal/port"
)

var _ port.BlobStore = (*Filesystem)(nil)

// Filesystem stores blobs as files under a root directory. Each blob has a
// `.meta` JSON sidecar carrying its content type and digest.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./exports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) Driver() port.BlobDriver { return port.BlobDriverFS }

type metaFile struct {
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// sanitizeKey rejects keys that would escape the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.Contains(key, "..") {
		return "", errors.New("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.New("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (f *Filesystem) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(f.root, filepath.FromSlash(k))
	return dataPath, dataPath + ".meta", nil
}

func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, contentType string) (port.BlobInfo, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return port.BlobInfo{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return port.BlobInfo{}, fmt.Errorf("blob %s already exists", key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return port.BlobInfo{}, err
	}

	// stream to a temp file so a failed write never leaves a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return port.BlobInfo{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return port.BlobInfo{}, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return port.BlobInfo{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return port.BlobInfo{}, err
	}

	mf := metaFile{ContentType: contentType, ETag: hex.EncodeToString(h.Sum(nil)), Size: size, CreatedAt: time.Now().UTC()}
	if err := writeMeta(metaPath, mf); err != nil {
		return port.BlobInfo{}, err
	}
	return f.info(key, mf), nil
}

func (f *Filesystem) Get(ctx context.Context, key string) (port.BlobInfo, io.ReadCloser, error) {
	dataPath, metaPath, err := f.pathFor(key)
	if err != nil {
		return port.BlobInfo{}, nil, err
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return port.BlobInfo{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return port.BlobInfo{}, nil, err
	}
	return f.info(key, mf), file, nil
}

// List returns the blobs whose key starts with prefix, sorted by key.
func (f *Filesystem) List(ctx context.Context, prefix string) ([]port.BlobInfo, error) {
	var infos []port.BlobInfo
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".meta") {
			return nil
		}
		rel, err := filepath.Rel(f.root, strings.TrimSuffix(path, ".meta"))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		infos = append(infos, f.info(key, mf))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (f *Filesystem) info(key string, mf metaFile) port.BlobInfo {
	return port.BlobInfo{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		LastModified: mf.CreatedAt,
		URL:          "file://" + filepath.ToSlash(filepath.Join(f.root, filepath.FromSlash(key))),
	}
}

func writeMeta(path string, mf metaFile) error {
	data, err := json.Marshal(mf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readMeta(path string) (metaFile, error) {
	var mf metaFile
	data, err := os.ReadFile(path)
	if err != nil {
		return mf, err
	}
	if err := json.Unmarshal(data, &mf); err != nil {
		return mf, fmt.Errorf("decode blob metadata: %w", err)
	}
	return mf, nil
}
