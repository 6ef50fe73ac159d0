package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/visitor-arrivals/internal/domain/arrivals"
	"github.com/FACorreiaa/visitor-arrivals/internal/domain/transform/reader"
)

const header = "Rank,Country,January,February,March,April,May,June,July,August,September,October,Jan-Oct Total,% Share,RankingType\n"

func readFrame(t *testing.T, body string) *reader.Frame {
	t.Helper()
	f, err := reader.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	return f
}

func TestTransform_JapanScenario(t *testing.T) {
	frame := readFrame(t, header+
		`1,JAPAN,"1,234",1100,1200,1300,1400,1500,1600,1700,1800,"2,000","14,834",12.5,Ranking by Nationality`+"\n")

	year, err := arrivals.YearFromFilename("2023-visitor-arrivals.csv")
	require.NoError(t, err)

	result, err := Transform(frame, year)
	require.NoError(t, err)
	require.Len(t, result.Records, arrivals.MonthCount)

	want := []int{1234, 1100, 1200, 1300, 1400, 1500, 1600, 1700, 1800, 2000}
	for i, rec := range result.Records {
		assert.Equal(t, "JAPAN", rec.Country)
		assert.Equal(t, "Nationality", rec.Type)
		assert.Equal(t, 2023, rec.Year)
		assert.Equal(t, i+1, rec.Month)
		assert.Equal(t, want[i], rec.Arrivals)
	}
}

func TestTransform_PivotYieldsOneRecordPerMonth(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	countries := []string{"JAPAN", "KOREA", "USA", "CHINA"}
	for i, c := range countries {
		b.WriteString(strings.Join([]string{"1", c, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "55", "1", "Ranking by Country of Residence"}, ","))
		if i < len(countries)-1 {
			b.WriteString("\n")
		}
	}

	result, err := Transform(readFrame(t, b.String()), 2024)
	require.NoError(t, err)

	assert.Equal(t, len(countries), result.InputRows)
	require.Len(t, result.Records, len(countries)*arrivals.MonthCount)
	for i, rec := range result.Records {
		assert.Equal(t, countries[i/arrivals.MonthCount], rec.Country)
		assert.Equal(t, i%arrivals.MonthCount+1, rec.Month)
		assert.Equal(t, rec.Month, rec.Arrivals)
		assert.Equal(t, "Residence", rec.Type)
	}

	parts := result.Partitions()
	assert.Len(t, parts, arrivals.MonthCount)
	assert.Len(t, parts[arrivals.PartitionKey{Year: 2024, Month: 3, Type: "Residence"}], len(countries))
}

func TestTransform_Idempotent(t *testing.T) {
	frame := readFrame(t, header+
		"1, JAPAN ,1-000,2,3,4,5,6,7,8,9,10,55,1,Ranking by Nationality\n"+
		"2,KOREA,x,2,3,4,5,6,7,8,9,10,55,1,Unknown\n")
	before := frame.Clone()

	first, err := Transform(frame, 2023)
	require.NoError(t, err)
	second, err := Transform(frame, 2023)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, frame, "input frame is not modified")
}

func TestTransform_DropsInvalidRows(t *testing.T) {
	frame := readFrame(t, header+
		"1,JAPAN,abc,,-,3.9,4,5,6,7,8,9999999999,1,1,Ranking by Nationality\n"+
		"2,KOREA,1,2,3,4,5,6,7,8,9,10,55,1,\n"+
		"3,USA,1,2,3,4,5,6,7,8,9,10,55,1,   \n"+
		"4,,1,2,3,4,5,6,7,8,9,10,55,1,TOTAL\n")

	result, err := Transform(frame, 2023)
	require.NoError(t, err)

	assert.Equal(t, 4, result.InputRows)
	assert.Equal(t, 2, result.UntypedRows)

	months := make([]int, 0, len(result.Records))
	for _, rec := range result.Records {
		assert.Equal(t, "JAPAN", rec.Country)
		months = append(months, rec.Month)
	}
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9}, months)
	assert.Equal(t, 3, result.Records[0].Arrivals, "decimals truncate")
	assert.Equal(t, 4+10, result.DroppedRecords)
}

func TestTransform_StripsHyphensEverywhere(t *testing.T) {
	frame := readFrame(t, header+"1,GUINEA-BISSAU,1-234,2,3,4,5,6,7,8,9,10,55,1,Ranking by Nationality\n")

	result, err := Transform(frame, 2023)
	require.NoError(t, err)
	require.NotEmpty(t, result.Records)

	assert.Equal(t, "GUINEABISSAU", result.Records[0].Country)
	assert.Equal(t, 1234, result.Records[0].Arrivals)
}

func TestTransform_OptionalColumns(t *testing.T) {
	frame := readFrame(t, " Country ,January,February,March,April,May,June,July,August,September,October, RankingType \n"+
		"JAPAN,1,2,3,4,5,6,7,8,9,10,Ranking by Nationality\n")

	result, err := Transform(frame, 2023)
	require.NoError(t, err)
	assert.Len(t, result.Records, arrivals.MonthCount)
}

func TestTransform_MissingRequiredColumn(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"country", "Rank,January,February,March,April,May,June,July,August,September,October,RankingType\n"},
		{"ranking type", "Country,January,February,March,April,May,June,July,August,September,October\n"},
		{"month", "Country,January,February,March,April,May,June,July,August,September,RankingType\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(readFrame(t, tt.header), 2023)
			assert.ErrorIs(t, err, arrivals.ErrMissingColumn)
		})
	}
}

func TestDeriveType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ranking by Nationality", "Nationality"},
		{"Ranking by Country of Residence", "Residence"},
		{"  Unknown  ", "Unknown"},
		{"TOTAL", "TOTAL"},
		{"Ranking (all)", "Ranking (all)"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveType(tt.in))
		})
	}
}

func TestCastArrivals(t *testing.T) {
	tests := []struct {
		in     reader.Cell
		want   int
		wantOK bool
	}{
		{reader.Str("1234"), 1234, true},
		{reader.Str(" 1,234 "), 1234, true},
		{reader.Str("12.9"), 12, true},
		{reader.Str(".5"), 0, true},
		{reader.Str("2147483647"), 2147483647, true},
		{reader.Str("2147483648"), 0, false},
		{reader.Str("12a"), 0, false},
		{reader.Str("."), 0, false},
		{reader.Str("-7.9"), -7, true},
		{reader.Str("12."), 12, true},
		{reader.Str("2147483647.99"), 2147483647, true},
		{reader.Str("-2147483649"), 0, false},
		{reader.Str("99999999999999999999"), 0, false},
		{reader.Str("1e3"), 0, false},
		{reader.Str("1.2.3"), 0, false},
		{reader.Str(""), 0, false},
		{reader.Null(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in.Value, func(t *testing.T) {
			got, ok := CastArrivals(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthOrdinal(t *testing.T) {
	n, ok := MonthOrdinal(" October ")
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = MonthOrdinal("November")
	assert.False(t, ok)
}
