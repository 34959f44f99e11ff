package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, tag := range Tags() {
		h := Header{Tag: tag, Size: 0xA1B2C3D4}
		b := AppendHeader(nil, h)
		require.Len(t, b, HeaderSize)

		got, err := DecodeHeader(b)
		require.NoError(t, err)
		assert.Equal(t, h, got)

		fixed := make([]byte, HeaderSize)
		EncodeHeader(fixed, h)
		assert.Equal(t, b, fixed)
	}
}

func TestHeaderLayoutIsLittleEndian(t *testing.T) {
	b := AppendHeader(nil, Header{Tag: TagFloat64, Size: 8})
	assert.Equal(t, []byte{2, 0, 0, 0, 8, 0, 0, 0}, b)
}

func TestDecodeHeaderShort(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		_, err := DecodeHeader(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformedHeader, "len %d", n)
	}
}

func TestDecodeHeaderUnknownTag(t *testing.T) {
	_, err := DecodeHeader([]byte{7, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrMalformedHeader)

	_, err = DecodeHeader([]byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrMalformedHeader)

	h, err := DecodeHeader([]byte{0, 0, 0, 0, 1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, TagBool, h.Tag)
}

func TestTagNumbering(t *testing.T) {
	want := map[TypeTag]uint32{
		TagBool:            0,
		TagInt32:           1,
		TagFloat64:         2,
		TagUtf8String:      3,
		TagFloat64Array:    4,
		TagUtf8StringArray: 5,
		TagJSONDocument:    6,
	}
	for tag, n := range want {
		assert.Equal(t, n, uint32(tag), tag.String())
		assert.True(t, tag.Valid(), tag.String())
	}
	assert.False(t, TypeTag(7).Valid())
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "Float64Array", TagFloat64Array.String())
	assert.Equal(t, "JsonDocument", TagJSONDocument.String())
	assert.Equal(t, "TypeTag(42)", TypeTag(42).String())
	assert.Equal(t, "Invalid", TagInvalid.String())
	assert.False(t, TagInvalid.Valid())
	assert.Len(t, Tags(), 7)
}
