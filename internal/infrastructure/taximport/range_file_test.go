package taximport

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msphost/taxengine/internal/domain/tax"
)

const rangeHeader = "FROM,TO,STREET,ZIP,COUNTY_TAID,CITY_TAID,TRANSIT1_TAID,TRANSIT2_TAID,SPD1_TAID,SPD2_TAID,SPD3_TAID,SPD4_TAID\n"

func zipWithEntry(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sequence() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestExtractCountyCSV(t *testing.T) {
	t.Run("csv entry extracted", func(t *testing.T) {
		payload := []byte(rangeHeader)
		data := zipWithEntry(t, "bexar.csv", payload)

		got, err := ExtractCountyCSV(data)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("txt entry accepted", func(t *testing.T) {
		data := zipWithEntry(t, "BEXAR.TXT", []byte(rangeHeader))
		_, err := ExtractCountyCSV(data)
		assert.NoError(t, err)
	})

	t.Run("no csv entry", func(t *testing.T) {
		data := zipWithEntry(t, "readme.md", []byte("not data"))
		_, err := ExtractCountyCSV(data)
		assert.ErrorIs(t, err, ErrNoCSVEntry)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := ExtractCountyCSV([]byte("plainly not a zip"))
		assert.ErrorIs(t, err, ErrInvalidZip)
	})
}

func TestParseRangeFile(t *testing.T) {
	quarter := tax.Quarter{Year: 2026, Q: 1}

	t.Run("valid rows mapped and tagged", func(t *testing.T) {
		data := []byte(rangeHeader +
			"17400,17499,O'CONNOR ST,78247,4227000,1015000,3227000,,5000100,,,\n" +
			"100,199,MAIN,78201,4227000,,,,,,,\n")

		result, err := ParseRangeFile(data, "tx", quarter, sequence())
		require.NoError(t, err)
		assert.Equal(t, 2, result.RowsRead)
		assert.False(t, result.Errors.HasErrors())
		require.Len(t, result.Records, 2)

		rec := result.Records[0]
		assert.Equal(t, "TX", rec.State)
		assert.Equal(t, "78247", rec.Zip)
		assert.Equal(t, "OCONNOR", rec.Street, "street normalized like query input")
		assert.Equal(t, 17400, rec.AddressFrom)
		assert.Equal(t, 17499, rec.AddressTo)
		assert.Equal(t, quarter, rec.Quarter)
		assert.Equal(t, int64(1), rec.ImportSeq)

		require.NotNil(t, rec.County)
		assert.Equal(t, tax.TAID("4227000"), *rec.County)
		require.NotNil(t, rec.SPD1)
		assert.Nil(t, rec.Transit2, "empty slot stays nil")

		assert.Equal(t, int64(2), result.Records[1].ImportSeq, "sequence advances per row")
	})

	t.Run("invalid rows skipped not fatal", func(t *testing.T) {
		data := []byte(rangeHeader +
			"abc,17499,OCONNOR,78247,4227000,,,,,,,\n" + // bad FROM
			"200,100,MAIN,78201,4227000,,,,,,,\n" + // inverted range
			"100,199,,78201,4227000,,,,,,,\n" + // missing street
			"100,199,ELM,78201,4227000,,,,,,,\n") // valid

		result, err := ParseRangeFile(data, "TX", quarter, sequence())
		require.NoError(t, err)
		assert.Equal(t, 4, result.RowsRead)
		assert.Equal(t, 3, result.Errors.TotalCount())
		require.Len(t, result.Records, 1)
		assert.Equal(t, "ELM", result.Records[0].Street)

		errs := result.Errors.Errors()
		assert.Equal(t, ErrCodeImportInvalidType, errs[0].Code)
		assert.Equal(t, ErrCodeImportInvalidRange, errs[1].Code)
		assert.Equal(t, ErrCodeImportRequiredField, errs[2].Code)
	})

	t.Run("blank lines ignored", func(t *testing.T) {
		data := []byte(rangeHeader + "\n100,199,ELM,78201,4227000,,,,,,,\n\n")
		result, err := ParseRangeFile(data, "TX", quarter, sequence())
		require.NoError(t, err)
		assert.Equal(t, 1, result.RowsRead)
		assert.Len(t, result.Records, 1)
	})

	t.Run("missing column fails the file", func(t *testing.T) {
		data := []byte("FROM,TO,STREET,ZIP\n100,199,ELM,78201\n")
		_, err := ParseRangeFile(data, "TX", quarter, sequence())
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})
}
