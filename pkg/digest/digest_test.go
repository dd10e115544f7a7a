package digest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sdejongh/treesync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkInput = "123456789"

func TestCRCCheckValues(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{CRC32, "cbf43926"},
		{CRC32Reverse, "fc891918"},
		{CRC16, "906e"},
		{CRC16Reverse, "29b1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			d, err := Reader(strings.NewReader(checkInput), tt.alg, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestCRC32MatchesIEEE(t *testing.T) {
	data := bytes.Repeat([]byte("treesync compares trees\n"), 10000)

	d, err := Reader(bytes.NewReader(data), CRC32, 4096)
	require.NoError(t, err)

	want := crc32.ChecksumIEEE(data)
	got := uint32(d[0])<<24 | uint32(d[1])<<16 | uint32(d[2])<<8 | uint32(d[3])
	assert.Equal(t, want, got)
}

func TestCRCDigestWidth(t *testing.T) {
	for _, alg := range []Algorithm{CRC16, CRC16Reverse} {
		h, err := alg.New()
		require.NoError(t, err)
		assert.Equal(t, 2, h.Size())
		assert.Len(t, h.Sum(nil), 2)
	}
	for _, alg := range []Algorithm{CRC32, CRC32Reverse} {
		h, err := alg.New()
		require.NoError(t, err)
		assert.Equal(t, 4, h.Size())
	}
}

func TestCRCReset(t *testing.T) {
	h, err := CRC32.New()
	require.NoError(t, err)

	h.Write([]byte("garbage"))
	h.Reset()
	h.Write([]byte(checkInput))

	assert.Equal(t, "cbf43926", Digest(h.Sum(nil)).String())
}

func TestCRCTablesBuiltOnce(t *testing.T) {
	var wg sync.WaitGroup
	tables := make([]*[256]uint32, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i] = crc32ForwardTable()
		}(i)
	}
	wg.Wait()

	for _, tbl := range tables {
		assert.Same(t, tables[0], tbl)
	}
}

func TestCryptoAlgorithms(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		want string
	}{
		{MD5, "25f9e794323b453885f5181f1b624d0b"},
		{SHA1, "f7c3bc1d808e04732adf679965ccc34ca7ae3441"},
		{SHA256, "15e2b0d3c33891ebb0f1ef609ec419420c20e320ce94c65fbc8c3312448eb225"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			d, err := Reader(strings.NewReader(checkInput), tt.alg, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}

	for _, alg := range []Algorithm{SHA384, SHA512} {
		d, err := Reader(strings.NewReader(checkInput), alg, 0)
		require.NoError(t, err)
		h, _ := alg.New()
		assert.Len(t, d, h.Size())
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"crc32", CRC32, false},
		{"CRC16-Reverse", CRC16Reverse, false},
		{" sha256 ", SHA256, false},
		{"", DefaultAlgorithm, false},
		{"blake3", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				var ve *models.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "algorithm", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlgorithmsSorted(t *testing.T) {
	all := Algorithms()
	assert.Len(t, all, 9)
	for i := 1; i < len(all); i++ {
		assert.Less(t, string(all[i-1]), string(all[i]))
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	content := bytes.Repeat([]byte{0xAB}, 3*DefaultBufferSize+17)
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Run("MatchesInMemory", func(t *testing.T) {
		d, err := File(context.Background(), path, SHA256)
		require.NoError(t, err)
		sum := sha256.Sum256(content)
		assert.Equal(t, Digest(sum[:]), d)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := File(context.Background(), filepath.Join(dir, "missing"), CRC32)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrHashFailure)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("CancelledBeforeOpen", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := File(ctx, path, CRC32)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestDigestEqual(t *testing.T) {
	a := Digest{1, 2}
	assert.True(t, a.Equal(Digest{1, 2}))
	assert.False(t, a.Equal(Digest{1, 3}))
	assert.False(t, a.Equal(nil))
	assert.False(t, Digest(nil).Equal(nil))
}
