package store

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behaviour every backend shares.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing name", func(t *testing.T) {
		_, err := s.Get(ctx, "Papercraft-v1.2.0-win32.zip")
		assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)

		ok, err := s.Exists(ctx, "Papercraft-v1.2.0-win32.zip")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Papercraft-v1.2.0-win64.exe", strings.NewReader("MZ-win64")))

		ok, err := s.Exists(ctx, "Papercraft-v1.2.0-win64.exe")
		require.NoError(t, err)
		assert.True(t, ok)

		rc, err := s.Get(ctx, "Papercraft-v1.2.0-win64.exe")
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "MZ-win64", string(b))
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Papercraft-v1.2.0-MacOS.dmg", strings.NewReader("first")))
		require.NoError(t, s.Put(ctx, "Papercraft-v1.2.0-MacOS.dmg", strings.NewReader("second")))

		rc, err := s.Get(ctx, "Papercraft-v1.2.0-MacOS.dmg")
		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "second", string(b))
	})

	t.Run("list by glob", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "Papercraft-v9.9.9-x86_64.AppImage", strings.NewReader("other tag")))

		names, err := s.List(ctx, "Papercraft-v1.2.0-*")
		require.NoError(t, err)
		assert.Equal(t, []string{"Papercraft-v1.2.0-MacOS.dmg", "Papercraft-v1.2.0-win64.exe"}, names)
	})

	t.Run("concurrent distinct names", func(t *testing.T) {
		names := []string{"a-x86_64.AppImage", "a-win32.zip", "a-win64.exe", "a-MacOS.dmg"}
		var wg sync.WaitGroup
		for _, name := range names {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, name, strings.NewReader(name)))
			}(name)
		}
		wg.Wait()
		for _, name := range names {
			ok, err := s.Exists(ctx, name)
			require.NoError(t, err)
			assert.True(t, ok, name)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "..", "../escape", `a\b`} {
			assert.Error(t, s.Put(ctx, name, strings.NewReader("x")), "name %q", name)
		}
	})
}
