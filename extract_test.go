package votetool

import (
	"reflect"
	"testing"
)

func TestStandingsBlockParser(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		want      []Entry
		wantTotal int
	}{
		{
			name: "ranked list with separators",
			page: "1. Cutler Whitaker - 35.4%\n2. Dylan Papushak - 18.0%\nTotal: 12,345 votes",
			want: []Entry{
				{Name: "Cutler Whitaker", Percentage: 35.4},
				{Name: "Dylan Papushak", Percentage: 18.0},
			},
			wantTotal: 12345,
		},
		{
			name: "bare names without ranks",
			page: "Cutler Whitaker 35%\nDylan Papushak 18%",
			want: []Entry{
				{Name: "Cutler Whitaker", Percentage: 35},
				{Name: "Dylan Papushak", Percentage: 18},
			},
		},
		{
			name: "noise lines skipped",
			page: "Poll results\n\nCutler Whitaker: 35.4%\nshare this poll\nDylan Papushak: 18.0%",
			want: []Entry{
				{Name: "Cutler Whitaker", Percentage: 35.4},
				{Name: "Dylan Papushak", Percentage: 18.0},
			},
		},
		{
			name: "case-insensitive duplicates collapse to first",
			page: "Cutler Whitaker - 35.4%\nCUTLER WHITAKER - 12.0%\nDylan Papushak - 18.0%",
			want: []Entry{
				{Name: "Cutler Whitaker", Percentage: 35.4},
				{Name: "Dylan Papushak", Percentage: 18.0},
			},
		},
		{
			name: "entries listed out of rank order come back sorted",
			page: "Dylan Papushak - 18.0%\nCutler Whitaker - 35.0%\nAvery Lindqvist - 12.0%",
			want: []Entry{
				{Name: "Cutler Whitaker", Percentage: 35.0},
				{Name: "Dylan Papushak", Percentage: 18.0},
				{Name: "Avery Lindqvist", Percentage: 12.0},
			},
		},
		{
			name: "empty page",
			page: "",
			want: nil,
		},
	}

	parser := StandingsBlockParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser(tt.page)
			if err != nil {
				t.Fatalf("parser error: %v", err)
			}
			if !reflect.DeepEqual(got.Entries, tt.want) {
				t.Errorf("Entries = %v, want %v", got.Entries, tt.want)
			}
			if got.TotalVotes != tt.wantTotal {
				t.Errorf("TotalVotes = %d, want %d", got.TotalVotes, tt.wantTotal)
			}
		})
	}
}

func TestRegexParser(t *testing.T) {
	parser, err := RegexParser(
		`<td class="name">([^<]+)</td>\s*<td>([\d.]+)%</td>`,
		`id="total">([\d,]+)<`,
	)
	if err != nil {
		t.Fatalf("RegexParser() error: %v", err)
	}

	page := `<tr><td class="name">Cutler Whitaker</td> <td>35.4%</td></tr>
<tr><td class="name">Dylan Papushak</td> <td>18.0%</td></tr>
<span id="total">12,345</span>`

	got, err := parser(page)
	if err != nil {
		t.Fatalf("parser error: %v", err)
	}
	want := []Entry{
		{Name: "Cutler Whitaker", Percentage: 35.4},
		{Name: "Dylan Papushak", Percentage: 18.0},
	}
	if !reflect.DeepEqual(got.Entries, want) {
		t.Errorf("Entries = %v, want %v", got.Entries, want)
	}
	if got.TotalVotes != 12345 {
		t.Errorf("TotalVotes = %d, want 12345", got.TotalVotes)
	}
}

func TestRegexParserValidation(t *testing.T) {
	tests := []struct {
		name         string
		entryPattern string
		totalPattern string
	}{
		{"invalid entry pattern", `([a-z`, ""},
		{"too few entry groups", `([a-z]+)%`, ""},
		{"invalid total pattern", `(\w+) ([\d.]+)%`, `[0-9`},
		{"total pattern without group", `(\w+) ([\d.]+)%`, `total \d+`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RegexParser(tt.entryPattern, tt.totalPattern); err == nil {
				t.Error("RegexParser() succeeded, want error")
			}
		})
	}
}

func TestMustRegexParserPanicsOnInvalidPattern(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRegexParser did not panic on invalid pattern")
		}
	}()
	MustRegexParser(`([a-z`, "")
}

func TestJSONStandingsParser(t *testing.T) {
	parser := JSONStandingsParser()

	got, err := parser(`{"results":[{"name":"Cutler Whitaker","percentage":35.4},{"name":"Dylan Papushak","percentage":18.0}],"total":9000}`)
	if err != nil {
		t.Fatalf("parser error: %v", err)
	}
	want := []Entry{
		{Name: "Cutler Whitaker", Percentage: 35.4},
		{Name: "Dylan Papushak", Percentage: 18.0},
	}
	if !reflect.DeepEqual(got.Entries, want) {
		t.Errorf("Entries = %v, want %v", got.Entries, want)
	}
	if got.TotalVotes != 9000 {
		t.Errorf("TotalVotes = %d, want 9000", got.TotalVotes)
	}

	if _, err := parser("not json"); err == nil {
		t.Error("parser accepted invalid JSON")
	}
}

func TestJSONStandingsParserSortsByPercentage(t *testing.T) {
	parser := JSONStandingsParser()

	got, err := parser(`{"results":[{"name":"Dylan Papushak","percentage":18.0},{"name":"Cutler Whitaker","percentage":35.4}],"total":9000}`)
	if err != nil {
		t.Fatalf("parser error: %v", err)
	}
	want := []Entry{
		{Name: "Cutler Whitaker", Percentage: 35.4},
		{Name: "Dylan Papushak", Percentage: 18.0},
	}
	if !reflect.DeepEqual(got.Entries, want) {
		t.Errorf("Entries = %v, want %v", got.Entries, want)
	}
}
