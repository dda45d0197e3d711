package proof

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore/core"
)

func TestInMemoryStore_CRUD(t *testing.T) {
	s := NewInMemoryStore()
	data := []byte("receipt")
	require.NoError(t, s.Save("c1", "p1", data))
	data[0] = 'X'

	got, err := s.Get("c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "receipt", string(got))

	ids, err := s.List("c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	empty, err := s.List("nope")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, s.Delete("c1", "p1"))
	assert.ErrorIs(t, s.Delete("c1", "p1"), ErrNotFound)
	_, err = s.Get("c1", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssueAndVerify(t *testing.T) {
	s := NewInMemoryStore()
	handle, err := Issue(s, Receipt{
		Scope:   "c1",
		Action:  core.ActionDescriptor{Type: core.ActionTrade, Target: "FOO", Params: map[string]any{"quantity": 10.0}},
		Summary: "bought 10 FOO",
	})
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	r, err := Verify(s, "c1", handle)
	require.NoError(t, err)
	assert.Equal(t, "FOO", r.Action.Target)
	assert.Len(t, r.Digest, 64)

	raw, _ := s.Get("c1", handle)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	m["summary"] = "bought 1000 FOO"
	tampered, _ := json.Marshal(m)
	require.NoError(t, s.Save("c1", handle, tampered))

	_, err = Verify(s, "c1", handle)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestIssue_DefaultScope(t *testing.T) {
	s := NewInMemoryStore()
	handle, err := Issue(s, Receipt{Summary: "x"})
	require.NoError(t, err)
	_, err = Verify(s, "", handle)
	assert.NoError(t, err)
}
