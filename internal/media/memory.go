package media

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryStore in process Store, used when bucket storage is disabled
type MemoryStore struct {
	mu        sync.Mutex
	objects   map[string]*memoryObject
	cdnDomain string
}

var _ Store = &MemoryStore{}

func NewMemoryStore(cdnDomain string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]*memoryObject), cdnDomain: cdnDomain}
}

func (ms *MemoryStore) Put(ctx context.Context, bucket Bucket, name, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.objects[string(bucket)+"/"+name] = &memoryObject{contentType: contentType, data: buf.Bytes()}
	return nil
}

func (ms *MemoryStore) Delete(ctx context.Context, bucket Bucket, name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	key := string(bucket) + "/" + name
	if _, ok := ms.objects[key]; !ok {
		return ErrObjectMissing
	}
	delete(ms.objects, key)
	return nil
}

func (ms *MemoryStore) PublicURL(bucket Bucket, name string) string {
	return publicURL(ms.cdnDomain, bucket, name)
}

// Object stored bytes and content type
func (ms *MemoryStore) Object(bucket Bucket, name string) ([]byte, string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	o, ok := ms.objects[string(bucket)+"/"+name]
	if !ok {
		return nil, "", false
	}
	return o.data, o.contentType, true
}
