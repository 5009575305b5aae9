package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backends = []string{BackendBolt, BackendBadger, BackendFile}

func TestBackendsReadWrite(t *testing.T) {
	for _, backend := range backends {
		backend := backend
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()

			s, err := Open(backend, dir)
			require.NoError(t, err)

			_, ok, err := s.Read("events")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Write("events", []byte("one")))
			require.NoError(t, s.Write("events", []byte("two")))
			require.NoError(t, s.Write("qln/channels", []byte("[]")))
			require.NoError(t, s.Write("empty", nil))

			v, ok, err := s.Read("events")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("two"), v)

			v, ok, err = s.Read("empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, v)

			require.NoError(t, s.Close())

			// everything must survive a reopen
			s, err = Open(backend, dir)
			require.NoError(t, err)
			defer s.Close()

			v, ok, err = s.Read("events")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("two"), v)

			v, ok, err = s.Read("qln/channels")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("[]"), v)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("sled", t.TempDir())
	assert.Error(t, err)
}
