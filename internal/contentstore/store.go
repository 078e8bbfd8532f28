// Package contentstore stores JSON payloads on a content-addressed store and
// resolves them by CID.
package contentstore

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrUpload covers any failure to store a payload.
	ErrUpload = errors.New("content upload failed")
	// ErrFetch covers transport failures, bad statuses and undecodable bodies.
	ErrFetch = errors.New("content fetch failed")
	// ErrInvalidReference is returned for empty or malformed CIDs.
	ErrInvalidReference = errors.New("invalid content reference")
)

// Metadata keys attached to every stored object.
const (
	KeyWalletAddress = "walletAddress"
	KeyRole          = "role"
)

// Object locates a stored payload.
type Object struct {
	CID  string `json:"cid"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// PutOptions names the object and tags it for lookup.
type PutOptions struct {
	Label     string
	Keyvalues map[string]string
}

// Labeler lets a payload name itself when no explicit label is given.
type Labeler interface {
	ContentLabel() string
}

// Store is a content-addressed JSON store.
type Store interface {
	// Put uploads v as JSON. It never retries.
	Put(ctx context.Context, v any, opts PutOptions) (Object, error)
	// Get decodes the payload stored under cid into dst.
	Get(ctx context.Context, cid string, dst any) error
	// Unpin releases the payload. It reports success and never fails loudly.
	Unpin(ctx context.Context, cid string) bool
	// FindByIdentity returns the newest object tagged with identity and,
	// when role is not empty, role. A miss is (Object{}, false, nil).
	FindByIdentity(ctx context.Context, identity, role string) (Object, bool, error)
}

var (
	cidV0Pattern = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1Pattern = regexp.MustCompile(`^bafy[a-zA-Z0-9]{50,}$`)
)

// IsCID reports whether s looks like a CIDv0 (Qm + 44 base58 characters) or
// a base32 CIDv1 (bafy + at least 50 characters).
func IsCID(s string) bool {
	return cidV0Pattern.MatchString(s) || cidV1Pattern.MatchString(s)
}

func labelFor(v any, opts PutOptions) string {
	if label := strings.TrimSpace(opts.Label); label != "" {
		return label
	}
	if l, ok := v.(Labeler); ok {
		if label := strings.TrimSpace(l.ContentLabel()); label != "" {
			return label
		}
	}
	return uuid.NewString() + ".json"
}
