package taximport

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParserHeader(t *testing.T) {
	t.Run("valid header", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte("TAID,RATE\n1,6.25\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader([]string{"TAID", "RATE"}))
	})

	t.Run("bom stripped", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("TAID,RATE\n")...)
		parser, err := ParseFromBytes(data)
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader([]string{"TAID"}))
	})

	t.Run("missing required column", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte("TAID\n1\n"))
		require.NoError(t, err)
		err = parser.ParseHeader([]string{"TAID", "RATE"})
		require.ErrorIs(t, err, ErrInvalidHeader)
		assert.Contains(t, err.Error(), "RATE")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ParseFromBytes([]byte{})
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := ParseFromBytes([]byte{0xFF, 0xFE, 0x00, 0x41})
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("header only file hits EOF on read", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte("TAID,RATE\n"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader([]string{"TAID"}))

		_, err = parser.ReadRow()
		assert.Equal(t, io.EOF, err)
	})
}

func TestCSVParserReadRow(t *testing.T) {
	parser, err := ParseFromBytes([]byte("TAID, RATE \n 1 ,6.25\n2\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader([]string{"TAID", "RATE"}))

	t.Run("fields trimmed and keyed by header", func(t *testing.T) {
		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, 2, row.LineNumber)
		assert.Equal(t, "1", row.Get("TAID"))
		assert.Equal(t, "6.25", row.Get("RATE"))
		assert.False(t, row.IsEmpty())
	})

	t.Run("short row fills missing columns", func(t *testing.T) {
		row, err := parser.ReadRow()
		require.NoError(t, err)
		assert.Equal(t, "2", row.Get("TAID"))
		assert.Equal(t, "", row.Get("RATE"))
	})
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	ec.Add(NewRowError(2, "FROM", ErrCodeImportInvalidType, "expected integer"))
	ec.Add(NewRowErrorWithValue(3, "TO", ErrCodeImportInvalidType, "expected integer", "abc"))
	ec.Add(NewRowError(4, "", ErrCodeImportInvalidRange, "inverted range"))

	assert.True(t, ec.HasErrors())
	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2, "capped at the limit")
	assert.True(t, ec.IsTruncated())
	assert.Contains(t, ec.String(), "3 error(s) found")
}

func TestRowErrorMessage(t *testing.T) {
	withColumn := NewRowError(5, "FROM", ErrCodeImportInvalidType, "expected integer")
	assert.Equal(t, "row 5, column 'FROM': expected integer", withColumn.Error())

	bare := NewRowError(5, "", ErrCodeImportInvalidRange, "inverted range")
	assert.Equal(t, "row 5: inverted range", bare.Error())
}
