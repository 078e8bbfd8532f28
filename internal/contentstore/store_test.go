package contentstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type labelled struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (l labelled) ContentLabel() string { return l.Email }

func TestIsCID(t *testing.T) {
	valid := []string{
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		"bafy" + strings.Repeat("a", 50),
	}
	for _, cid := range valid {
		assert.True(t, IsCID(cid), cid)
	}

	invalid := []string{
		"",
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd",
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPb0G",
		"bafy" + strings.Repeat("a", 49),
		"QmExampleIPFSHash",
	}
	for _, cid := range invalid {
		assert.False(t, IsCID(cid), cid)
	}
}

func TestCIDv0IsWellFormed(t *testing.T) {
	cid := CIDv0([]byte(`{"hello":"world"}`))
	require.True(t, IsCID(cid), cid)
	require.True(t, strings.HasPrefix(cid, "Qm"))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	in := labelled{Email: "ada@example.com", Name: "Ada"}
	obj, err := store.Put(ctx, in, PutOptions{Keyvalues: map[string]string{KeyWalletAddress: "0xabc", KeyRole: "employee"}})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", obj.Name)
	assert.True(t, IsCID(obj.CID))

	var out labelled
	require.NoError(t, store.Get(ctx, obj.CID, &out))
	assert.Equal(t, in, out)
}

func TestMemoryStoreGetErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var out labelled

	err := store.Get(ctx, "", &out)
	assert.True(t, errors.Is(err, ErrInvalidReference))

	err = store.Get(ctx, CIDv0([]byte("missing")), &out)
	assert.True(t, errors.Is(err, ErrFetch))
}

func TestMemoryStoreFindByIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.FindByIdentity(ctx, "0xabc", "")
	require.NoError(t, err)
	assert.False(t, found)

	first, err := store.Put(ctx, labelled{Email: "a@example.com"}, PutOptions{Keyvalues: map[string]string{KeyWalletAddress: "0xabc", KeyRole: "admin"}})
	require.NoError(t, err)
	second, err := store.Put(ctx, labelled{Email: "b@example.com"}, PutOptions{Keyvalues: map[string]string{KeyWalletAddress: "0xabc", KeyRole: "admin"}})
	require.NoError(t, err)

	obj, found, err := store.FindByIdentity(ctx, "0xabc", "admin")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.CID, obj.CID)

	_, found, err = store.FindByIdentity(ctx, "0xabc", "employee")
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, store.Unpin(ctx, first.CID))
	assert.False(t, store.Unpin(ctx, first.CID))
	assert.False(t, store.Pinned(first.CID))
}
