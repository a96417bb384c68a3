package blob

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"moodchat/internal/chaterr"
)

const objectsBucket = "objects"

// DiskStorage keeps object bytes on disk and their metadata in BoltDB.
// Object files are opened with O_EXCL so an existing key can never be
// overwritten.
type DiskStorage struct {
	db      *bbolt.DB
	dir     string
	baseURL string
}

// OpenDiskStorage prepares the blob directory and metadata DB. baseURL is
// the externally visible prefix under which objects are served, e.g.
// "http://127.0.0.1:8080/attachments".
func OpenDiskStorage(dbPath, dir, baseURL string) (*DiskStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "prepare blob db dir", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "prepare blob dir", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, chaterr.Wrap(chaterr.CodeStorage, "open blob db", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(objectsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, chaterr.Wrap(chaterr.CodeStorage, "init blob bucket", err)
	}
	return &DiskStorage{db: db, dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *DiskStorage) Put(ctx context.Context, key, name, contentType string, r io.Reader) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, chaterr.Wrap(chaterr.CodeStorage, "put object", err)
	}
	if key == "" || strings.ContainsAny(key, "/\\") {
		return ObjectInfo{}, chaterr.InvalidArg("object key must be a bare file name")
	}
	path := filepath.Join(s.dir, key)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ObjectInfo{}, chaterr.Wrap(chaterr.CodeStorage, "create object", err)
	}
	size, err := io.Copy(dst, r)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return ObjectInfo{}, chaterr.Wrap(chaterr.CodeStorage, "write object", err)
	}
	info := ObjectInfo{
		Key:         key,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		_ = os.Remove(path)
		return ObjectInfo{}, chaterr.Wrap(chaterr.CodeStorage, "encode object info", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(objectsBucket)).Put([]byte(key), data)
	})
	if err != nil {
		_ = os.Remove(path)
		return ObjectInfo{}, chaterr.Wrap(chaterr.CodeStorage, "record object info", err)
	}
	return info, nil
}

func (s *DiskStorage) Open(key string) (ObjectInfo, io.ReadCloser, error) {
	var info ObjectInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(objectsBucket)).Get([]byte(key))
		if data == nil {
			return chaterr.NotFound("object not found")
		}
		return json.Unmarshal(data, &info)
	})
	if err != nil {
		return ObjectInfo{}, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if err != nil {
		return ObjectInfo{}, nil, chaterr.Wrap(chaterr.CodeStorage, "open object", err)
	}
	return info, f, nil
}

func (s *DiskStorage) PublicURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}
