package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeIBM437_ASCIIPassesThrough(t *testing.T) {
	in := []byte("plain_ascii.txt")
	assert.Equal(t, string(in), decodeIBM437(in))
}

func TestDecodeIBM437_HighBytesTranscode(t *testing.T) {
	cases := []struct {
		name string
		in   byte
		want rune
	}{
		{"Ccedilla", 0x80, 'Ç'},
		{"eacute", 0x82, 'é'},
		{"Ntilde", 0xA5, 'Ñ'},
		{"fullblock", 0xDB, '█'},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeIBM437([]byte{tc.in})
			assert.Equal(t, string(tc.want), got)
		})
	}
}

func TestDecodeIBM437_MixedASCIIAndHighBytes(t *testing.T) {
	in := []byte{'c', 'a', 'f', 0x82} // "caf" + é
	assert.Equal(t, "café", decodeIBM437(in))
}

func TestHasHighByte(t *testing.T) {
	assert.False(t, hasHighByte([]byte("ascii_only.txt")))
	assert.False(t, hasHighByte(nil))
	assert.True(t, hasHighByte([]byte{'a', 0x82, 'b'}))
	assert.True(t, hasHighByte([]byte{0xFF}))
}
