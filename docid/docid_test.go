package docid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/format"
)

var le = endian.GetLittleEndianEngine()

func TestArray_RoundTrip(t *testing.T) {
	docids := []uint16{1, 5, 100, 65000}
	buf := EncodeArray(docids, le)
	require.Equal(t, docids, DecodeArray(buf, le))
}

func TestRLE_RoundTrip(t *testing.T) {
	docids := []uint16{1, 2, 3, 4, 10, 11, 12, 500}
	buf := EncodeRLE(docids, le)

	got, err := DecodeRLE(buf, le)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestRLE_CorruptShortBuffer(t *testing.T) {
	_, err := DecodeRLE([]byte{1}, le)
	require.Error(t, err)
}

func TestBitmap_RoundTrip(t *testing.T) {
	docids := []uint16{0, 1, 8, 9, 65535}
	buf := EncodeBitmap(docids)

	got, err := DecodeBitmap(buf)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestDecode_Dispatch(t *testing.T) {
	docids := []uint16{3, 4, 5}
	buf := EncodeArray(docids, le)

	got, err := Decode(format.CompressionArray, buf, le)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestDecode_DeltaReservedIsUnreachable(t *testing.T) {
	_, err := Decode(format.CompressionDelta, nil, le)
	require.Error(t, err)
}

func TestChoose_SparseUsesArrayOrRLE(t *testing.T) {
	docids := []uint16{1, 2, 3}
	typ, body := Choose(docids, le)
	require.Contains(t, []format.CompressionType{format.CompressionArray, format.CompressionRle}, typ)

	got, err := Decode(typ, body, le)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestChoose_RunUsesRLE(t *testing.T) {
	docids := make([]uint16, 1000)
	for i := range docids {
		docids[i] = uint16(i)
	}
	typ, body := Choose(docids, le)
	require.Equal(t, format.CompressionRle, typ)

	got, err := Decode(typ, body, le)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestChoose_DenseScatterUsesBitmap(t *testing.T) {
	docids := make([]uint16, 0, 10000)
	for i := 0; i < 65535; i += 2 {
		docids = append(docids, uint16(i))
	}
	typ, body := Choose(docids, le)
	require.Equal(t, format.CompressionBitmap, typ)

	got, err := Decode(typ, body, le)
	require.NoError(t, err)
	require.Equal(t, docids, got)
}

func TestSortUnique(t *testing.T) {
	docids := []uint16{5, 1, 1, 3, 2, 5}
	require.Equal(t, []uint16{1, 2, 3, 5}, SortUnique(docids))
}
