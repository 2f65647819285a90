package dataprocessing

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bedpulse/pkg/contracts/domain"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	return NewParser(slog.Default(), DefaultDSTRule())
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "plain cells",
			line: "Hedrick,Double,Female,10",
			want: []string{"Hedrick", "Double", "Female", "10"},
		},
		{
			name: "quoted delimiter is literal",
			line: `"Sproul, North",Triple,12`,
			want: []string{"Sproul, North", "Triple", "12"},
		},
		{
			name: "quotes are stripped",
			line: `"Hedrick","10"`,
			want: []string{"Hedrick", "10"},
		},
		{
			name: "no delimiter yields single cell",
			line: "Hedrick Hall",
			want: []string{"Hedrick Hall"},
		},
		{
			name: "empty cells preserved",
			line: ",Female,10",
			want: []string{"", "Female", "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line, ','))
		})
	}
}

func TestInferColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    ColumnMap
	}{
		{
			name:    "canonical headers",
			headers: []string{"Building", "Room Type", "Gender", "Bed Spaces", "Last Updated"},
			want:    ColumnMap{Building: 0, RoomType: 1, Gender: 2, BedSpaces: 3, UpdatedAt: 4},
		},
		{
			name:    "alternate naming",
			headers: []string{"Residence Hall", "Unit", "Sex", "Available", "Updated"},
			want:    ColumnMap{Building: 0, RoomType: 1, Gender: 2, BedSpaces: 3, UpdatedAt: 4},
		},
		{
			name:    "permuted order",
			headers: []string{"Beds", "Gender", "Building"},
			want:    ColumnMap{Building: 2, RoomType: -1, Gender: 1, BedSpaces: 0, UpdatedAt: -1},
		},
		{
			name:    "case insensitive with quotes",
			headers: []string{`"BUILDING"`, `"bed spaces"`},
			want:    ColumnMap{Building: 0, RoomType: -1, Gender: -1, BedSpaces: 1, UpdatedAt: -1},
		},
		{
			name:    "ambiguous bed headers resolve to first match",
			headers: []string{"Building", "Bed Type", "Beds Available"},
			// "Bed Type" contains both "bed" and "type"; first match wins
			// for both roles, which is the documented (if risky) behavior.
			want: ColumnMap{Building: 0, RoomType: 1, Gender: -1, BedSpaces: 1, UpdatedAt: -1},
		},
		{
			name:    "nothing resolvable",
			headers: []string{"Foo", "Bar"},
			want:    ColumnMap{Building: -1, RoomType: -1, Gender: -1, BedSpaces: -1, UpdatedAt: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumns(tt.headers))
		})
	}
}

func TestParseCSV(t *testing.T) {
	p := newTestParser(t)

	t.Run("defaults for missing optional columns", func(t *testing.T) {
		result, err := p.ParseCSV("Building,Gender,Beds\nHedrick,Female,10\nHedrick,Male,5\n")
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)

		assert.Equal(t, domain.Row{Building: "Hedrick", RoomType: "Unknown", Gender: "Female", BedSpaces: 10}, result.Rows[0])
		assert.Equal(t, domain.Row{Building: "Hedrick", RoomType: "Unknown", Gender: "Male", BedSpaces: 5}, result.Rows[1])
		assert.Nil(t, result.UpdatedAt)
	})

	t.Run("blank building line skipped", func(t *testing.T) {
		result, err := p.ParseCSV("Building,Gender,Beds\nHedrick,Female,10\n,Female,10\nRieber,Male,4\n")
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "Hedrick", result.Rows[0].Building)
		assert.Equal(t, "Rieber", result.Rows[1].Building)
	})

	t.Run("malformed bed count coerces to zero", func(t *testing.T) {
		result, err := p.ParseCSV("Building,Beds\nHedrick,n/a\nRieber,\n")
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, 0, result.Rows[0].BedSpaces)
		assert.Equal(t, 0, result.Rows[1].BedSpaces)
	})

	t.Run("row count matches non-blank data lines", func(t *testing.T) {
		result, err := p.ParseCSV("Building,Beds\nA,1\nB,2\nC,3\n")
		require.NoError(t, err)
		assert.Len(t, result.Rows, 3)
	})

	t.Run("fewer than two lines is empty not error", func(t *testing.T) {
		for _, raw := range []string{"", "Building,Beds", "Building,Beds\n"} {
			result, err := p.ParseCSV(raw)
			require.NoError(t, err)
			assert.Empty(t, result.Rows)
		}
	})

	t.Run("unresolvable required columns fail structurally", func(t *testing.T) {
		result, err := p.ParseCSV("Foo,Bar\nHedrick,10\n")
		require.ErrorIs(t, err, ErrColumnsUnresolved)
		assert.Nil(t, result)
	})

	t.Run("updated at resolved from first data row", func(t *testing.T) {
		result, err := p.ParseCSV("Building,Beds,Last Updated\nHedrick,10,3/8/2026 12:00 AM\n")
		require.NoError(t, err)
		require.NotNil(t, result.UpdatedAt)
		_, offset := result.UpdatedAt.Zone()
		assert.Equal(t, -7*3600, offset)
	})
}

func TestParseCSVColumnOrderIndependence(t *testing.T) {
	p := newTestParser(t)

	a, err := p.ParseCSV("Building,Room Type,Gender,Beds\nHedrick,Double,Female,10\n")
	require.NoError(t, err)
	b, err := p.ParseCSV("Beds,Gender,Room Type,Building\n10,Female,Double,Hedrick\n")
	require.NoError(t, err)

	assert.Equal(t, a.Rows, b.Rows)
}

func TestParseWorkbook(t *testing.T) {
	p := newTestParser(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Building", "Gender", "Beds"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Hedrick", "Female", 10}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Hedrick", "Male", 5}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	result, err := p.ParseWorkbook(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Hedrick", result.Rows[0].Building)
	assert.Equal(t, 10, result.Rows[0].BedSpaces)
}

func TestParseWorkbookNoResolvableSheet(t *testing.T) {
	p := newTestParser(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Foo", "Bar"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"x", "y"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = p.ParseWorkbook(buf.Bytes())
	assert.ErrorIs(t, err, ErrColumnsUnresolved)
}
