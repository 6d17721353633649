package textenc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "utf-8"},
		{"UTF-8", "utf-8"},
		{"utf8", "utf-8"},
		{"latin1", "windows-1252"},
		{"utf-16le", "utf-16le"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("klingon-8")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownEncoding))
}

func TestRoundTripWindows1252(t *testing.T) {
	p, err := Resolve("windows-1252")
	require.NoError(t, err)

	encoded, err := p.Encode([]byte("café"))
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, encoded)

	decoded, err := p.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "café", string(decoded))
}

func TestDecodeStripsBOM(t *testing.T) {
	p := MustResolve("utf-8")

	got, err := p.Decode([]byte("\xef\xbb\xbfhello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = p.Decode([]byte{0xff, 0xfe, 'h', 0, 'i', 0})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))

	got, err = p.Decode([]byte{0xfe, 0xff, 0, 'h', 0, 'i'})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestCurrentIsLazyAndOverridable(t *testing.T) {
	t.Cleanup(func() { SetCurrent(nil) })

	SetCurrent(nil)
	assert.Equal(t, DefaultName, Current().Name())

	SetCurrent(MustResolve("windows-1252"))
	assert.Equal(t, "windows-1252", Current().Name())

	SetCurrent(nil)
	assert.Equal(t, DefaultName, Current().Name())
}
