package arrivals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingType_String(t *testing.T) {
	assert.Equal(t, "Ranking by Nationality", RankingByNationality.String())
	assert.Equal(t, "Ranking by Country of Residence", RankingByCountryOfResidence.String())
	assert.Equal(t, "Unknown", RankingUnknown.String())
}

func TestExtractColumns(t *testing.T) {
	assert.Equal(t, []string{
		"Rank", "Country", "January", "February", "March", "April", "May", "June", "July",
		"August", "September", "October", "Jan-Oct Total", "% Share", "RankingType",
	}, ExtractColumns())
}

func TestMonthNumber(t *testing.T) {
	for i, name := range MonthNames() {
		n, ok := MonthNumber(name)
		require.True(t, ok, name)
		assert.Equal(t, i+1, n)
	}

	_, ok := MonthNumber("November")
	assert.False(t, ok)
	_, ok = MonthNumber(" January")
	assert.False(t, ok)
}

func TestYearFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    int
		wantErr bool
	}{
		{"leading year", "2023-visitor-arrivals.csv", 2023, false},
		{"year in path ignored", "staging/1999/arrivals-2024.csv", 2024, false},
		{"first run wins", "arrivals_2022_v2023.csv", 2022, false},
		{"longer digit run", "report-20231.csv", 2023, false},
		{"no year", "visitor-arrivals.csv", 0, true},
		{"three digits only", "report-202.csv", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := YearFromFilename(tt.key)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoYearInFilename)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupByPartition(t *testing.T) {
	records := []Record{
		{Country: "JAPAN", Type: "Nationality", Year: 2023, Month: 1, Arrivals: 10},
		{Country: "KOREA", Type: "Nationality", Year: 2023, Month: 1, Arrivals: 20},
		{Country: "JAPAN", Type: "Residence", Year: 2023, Month: 1, Arrivals: 5},
		{Country: "JAPAN", Type: "Nationality", Year: 2023, Month: 2, Arrivals: 7},
	}

	groups := GroupByPartition(records)
	require.Len(t, groups, 3)
	assert.Len(t, groups[PartitionKey{Year: 2023, Month: 1, Type: "Nationality"}], 2)
	assert.Equal(t, "Year=2023/Month=2/Type=Nationality", records[3].Key().Path())
}

func TestPartitionKey_PathEscapesType(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"Nationality", "Year=2023/Month=1/Type=Nationality"},
		{"Country of Residence", "Year=2023/Month=1/Type=Country of Residence"},
		{"Foo/", "Year=2023/Month=1/Type=Foo%2F"},
		{"Total %", "Year=2023/Month=1/Type=Total %25"},
		{"a=b:c", "Year=2023/Month=1/Type=a%3Db%3Ac"},
		{"tab\there", "Year=2023/Month=1/Type=tab%09here"},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			key := PartitionKey{Year: 2023, Month: 1, Type: tt.typ}
			assert.Equal(t, tt.want, key.Path())
		})
	}
}
