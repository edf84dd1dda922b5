package slip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEscapesEndAndEsc(t *testing.T) {
	got := Encode([]byte{0xC0, 0x01, 0xDB, 0x02})
	want := []byte{0xDB, 0xDC, 0x01, 0xDB, 0xDD, 0x02, 0xC0}
	assert.Equal(t, want, got)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01, 0x02, 0x03},
		{END, ESC, END, ESC},
		{ESC, ESCEND, ESCESC},
		make([]byte, 300),
	}
	for _, src := range cases {
		encoded := Encode(src)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, src, decoded)
	}
}

func TestEncodeEmitsExactlyOneTerminator(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	encoded := Encode(src)
	count := 0
	for _, b := range encoded {
		if b == END {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, END, encoded[len(encoded)-1])
}

func TestDecoderBareEndIsEmptyFrame(t *testing.T) {
	dec := NewDecoder(0)
	frame, done, err := dec.Feed(END)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, frame)
}

func TestDecoderEscapeThenEndIsError(t *testing.T) {
	dec := NewDecoder(0)
	_, _, err := dec.Feed(ESC)
	require.NoError(t, err)
	_, _, err = dec.Feed(END)
	assert.ErrorIs(t, err, ErrBadEscape)
}

func TestDecoderInvalidEscapeByte(t *testing.T) {
	dec := NewDecoder(0)
	_, _, err := dec.Feed(ESC)
	require.NoError(t, err)
	_, _, err = dec.Feed(0x42)
	assert.ErrorIs(t, err, ErrBadEscape)
}

func TestDecoderOverflow(t *testing.T) {
	dec := NewDecoder(2)
	_, _, err := dec.Feed(0x01)
	require.NoError(t, err)
	_, _, err = dec.Feed(0x02)
	require.NoError(t, err)
	_, _, err = dec.Feed(0x03)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDecodeIncompleteFrameErrors(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}
