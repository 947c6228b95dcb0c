package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValueScan(t *testing.T) {
	t.Run("Round-trips through the driver value", func(t *testing.T) {
		original := Metadata{
			"permalink":  "https://example.com/p/abc",
			"media_type": "reel",
			"views":      float64(1200),
		}

		value, err := original.Value()
		require.NoError(t, err)

		scanned := Metadata{}
		err = scanned.Scan(value)
		require.NoError(t, err)
		assert.Equal(t, original, scanned)
	})

	t.Run("Scanning nil yields an empty map", func(t *testing.T) {
		scanned := Metadata{"stale": true}
		err := scanned.Scan(nil)
		require.NoError(t, err)
		assert.Equal(t, Metadata{}, scanned)
	})

	t.Run("Scanning a metadata value copies it", func(t *testing.T) {
		scanned := Metadata{}
		err := scanned.Scan(Metadata{"brand": "acme"})
		require.NoError(t, err)
		assert.Equal(t, Metadata{"brand": "acme"}, scanned)
	})

	t.Run("Scanning an unsupported type fails", func(t *testing.T) {
		scanned := Metadata{}
		err := scanned.Scan(42)
		assert.Error(t, err)
	})

	t.Run("Scanning invalid json fails", func(t *testing.T) {
		scanned := Metadata{}
		err := scanned.Scan([]byte("{not json"))
		assert.Error(t, err)
	})
}
