package spillhash

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DiskStore implements Store by serializing each bucket to its own
// file under a configurable temp directory (spec §5: "filenames are
// unique and created under a configurable temp directory"), resolving
// Open Question 3 with real-to-disk serialization rather than the
// in-memory simulation the question raised. RedisStore remains a
// selectable alternative for callers that want spill state shared
// across processes.
type DiskStore struct {
	mu      sync.Mutex
	dir     string
	cleanup bool
}

// NewDiskStore creates a store rooted at a fresh, uniquely-named
// subdirectory of dir. If cleanup is true, Close removes that
// subdirectory and everything spilled under it.
func NewDiskStore(dir string, cleanup bool) (*DiskStore, error) {
	root := filepath.Join(dir, "aro-spill-"+uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: root, cleanup: cleanup}, nil
}

func (s *DiskStore) bucketPath(bucket string) string {
	return filepath.Join(s.dir, uuid.NewSHA1(uuid.NameSpaceOID, []byte(bucket)).String()+".json")
}

// readBucketLocked loads a bucket's field map from disk, or an empty
// map if the bucket has never been written.
func (s *DiskStore) readBucketLocked(path string) (map[string][]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	fields := map[string][]byte{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (s *DiskStore) SetField(ctx context.Context, bucket, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.bucketPath(bucket)
	fields, err := s.readBucketLocked(path)
	if err != nil {
		return err
	}
	fields[field] = value

	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

func (s *DiskStore) AllFields(ctx context.Context, bucket string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readBucketLocked(s.bucketPath(bucket))
}

func (s *DiskStore) DeleteField(ctx context.Context, bucket, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.bucketPath(bucket)
	fields, err := s.readBucketLocked(path)
	if err != nil {
		return err
	}
	if _, ok := fields[field]; !ok {
		return nil
	}
	delete(fields, field)

	encoded, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

func (s *DiskStore) DeleteBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.bucketPath(bucket))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close removes the store's working directory when cleanup was
// requested at construction time.
func (s *DiskStore) Close() error {
	if !s.cleanup {
		return nil
	}
	return os.RemoveAll(s.dir)
}
