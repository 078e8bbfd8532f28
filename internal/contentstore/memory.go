package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
)

// multihash header for a 32-byte sha2-256 digest.
var sha256Multihash = []byte{0x12, 0x20}

type memoryObject struct {
	name      string
	keyvalues map[string]string
	body      []byte
	seq       int
}

// MemoryStore is an in-process Store. CIDs are real CIDv0 values of the
// encoded payload.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	seq     int
	gateway string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject), gateway: "memory://ipfs"}
}

// CIDv0 returns the version 0 CID of content.
func CIDv0(content []byte) string {
	digest := sha256.Sum256(content)
	return base58.Encode(append(append([]byte{}, sha256Multihash...), digest[:]...))
}

func (s *MemoryStore) Put(_ context.Context, v any, opts PutOptions) (Object, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Object{}, fmt.Errorf("%w: encode payload: %v", ErrUpload, err)
	}
	cid := CIDv0(body)
	name := labelFor(v, opts)

	kv := make(map[string]string, len(opts.Keyvalues))
	for k, val := range opts.Keyvalues {
		kv[k] = val
	}

	s.mu.Lock()
	s.seq++
	s.objects[cid] = memoryObject{name: name, keyvalues: kv, body: body, seq: s.seq}
	s.mu.Unlock()

	return Object{CID: cid, URL: s.gateway + "/" + cid, Name: name}, nil
}

func (s *MemoryStore) Get(_ context.Context, cid string, dst any) error {
	if !IsCID(cid) {
		return fmt.Errorf("%w: %q", ErrInvalidReference, cid)
	}
	s.mu.RLock()
	obj, ok := s.objects[cid]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s not pinned", ErrFetch, cid)
	}
	if err := json.Unmarshal(obj.body, dst); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrFetch, err)
	}
	return nil
}

func (s *MemoryStore) Unpin(_ context.Context, cid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[cid]; !ok {
		return false
	}
	delete(s.objects, cid)
	return true
}

// FindByIdentity scans every object; the newest match wins.
func (s *MemoryStore) FindByIdentity(_ context.Context, identity, role string) (Object, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		found   Object
		bestSeq int
	)
	for cid, obj := range s.objects {
		if obj.keyvalues[KeyWalletAddress] != identity {
			continue
		}
		if role != "" && obj.keyvalues[KeyRole] != role {
			continue
		}
		if obj.seq > bestSeq {
			bestSeq = obj.seq
			found = Object{CID: cid, URL: s.gateway + "/" + cid, Name: obj.name}
		}
	}
	return found, bestSeq > 0, nil
}

// Pinned reports whether cid is currently stored.
func (s *MemoryStore) Pinned(cid string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[cid]
	return ok
}
