// Package spool persists deferred writes across process boundaries.
//
// The in-memory backlog only survives as long as its process. A one-shot
// CLI invocation that cannot reach the secure store before exiting would
// lose the write, so it parks the payload as a spool file under
// ~/.keysafe/spool instead. The long-running flush agent drains the spool
// back through the keychain Manager once the store recovers.
package spool

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// entry is the on-disk format of one deferred write.
type entry struct {
	Key     string    `json:"key"`
	Payload string    `json:"payload"` // base64
	Queued  time.Time `json:"queued"`
}

// Dir is a spool directory of deferred writes, one file per write. A newer
// write for the same key replaces the older spool file.
type Dir struct {
	path string
}

// DefaultPath returns the default spool directory: ~/.keysafe/spool.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".keysafe", "spool")
}

// Open prepares a spool directory, creating it if needed.
func Open(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("creating spool dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the spool directory path.
func (d *Dir) Path() string {
	return d.path
}

// Put records a deferred write for key. Spool files are written atomically
// and keyed by a hash of the key, so re-spooling the same key overwrites
// the previous pending payload rather than queueing two.
func (d *Dir) Put(key string, payload []byte) error {
	e := entry{
		Key:     key,
		Payload: base64.StdEncoding.EncodeToString(payload),
		Queued:  time.Now().UTC(),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding spool entry: %w", err)
	}

	path := d.filename(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing spool entry: %w", err)
	}
	return os.Rename(tmp, path)
}

// Remove drops the spool file for key, if any.
func (d *Dir) Remove(key string) error {
	err := os.Remove(d.filename(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Len returns the number of spooled writes.
func (d *Dir) Len() int {
	files, err := d.files()
	if err != nil {
		return 0
	}
	return len(files)
}

// Storer receives drained spool entries; satisfied by *keychain.Manager.
type Storer interface {
	Store(key string, data []byte) error
	IsPending(key string) bool
}

// Drain replays every spooled write through the storer. A spool file is
// removed once its write is accepted durably or absorbed into the storer's
// own backlog; unreadable files are skipped and kept for inspection.
// Returns how many entries were handed off.
func (d *Dir) Drain(s Storer) (int, error) {
	files, err := d.files()
	if err != nil {
		return 0, err
	}

	drained := 0
	var firstErr error
	for _, path := range files {
		e, err := readEntry(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		payload, err := base64.StdEncoding.DecodeString(e.Payload)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decoding spool entry %s: %w", path, err)
			}
			continue
		}
		if err := s.Store(e.Key, payload); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if s.IsPending(e.Key) {
			// Accepted but only into the storer's in-memory backlog. Keep
			// the file so an agent restart cannot lose the write; a later
			// drain after a successful flush will remove it.
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		drained++
	}
	return drained, firstErr
}

func (d *Dir) filename(key string) string {
	h := fnv.New64a()
	h.Write([]byte(key))
	return filepath.Join(d.path, fmt.Sprintf("%016x.json", h.Sum64()))
}

func (d *Dir) files() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(d.path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func readEntry(path string) (entry, error) {
	var e entry
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("corrupt spool entry %s: %w", path, err)
	}
	return e, nil
}
