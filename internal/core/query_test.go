package core

import (
	"reflect"
	"testing"
	"time"
)

func day(s string) Date {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return Date{t}
}

func sampleTable() *Table {
	return &Table{
		Columns: RequiredColumns,
		Records: []GradeRecord{
			{StudentID: 1, StudentName: "Anna", Subject: "Math", Grade: 4.5, Date: day("2024-01-10")},
			{StudentID: 2, StudentName: "Boris", Subject: "Physics", Grade: 3, Date: day("2024-01-15")},
			{StudentID: 1, StudentName: "Anna", Subject: "Physics", Grade: 5, Date: day("2024-02-01")},
			{StudentID: 3, StudentName: "Clara", Subject: "math", Grade: 4, Date: day("2024-03-01")},
		},
	}
}

func int64p(v int64) *int64 { return &v }

func timep(s string) *time.Time {
	d := day(s).Time
	return &d
}

func TestGetFiltered(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantIDs []int64
	}{
		{name: "zero filter keeps all", filter: Filter{}, wantIDs: []int64{1, 2, 1, 3}},
		{name: "by student", filter: Filter{StudentID: int64p(1)}, wantIDs: []int64{1, 1}},
		{name: "unknown student", filter: Filter{StudentID: int64p(99)}, wantIDs: nil},
		{name: "subject ignores case", filter: Filter{Subject: "MATH"}, wantIDs: []int64{1, 3}},
		{name: "inclusive start", filter: Filter{Start: timep("2024-01-15")}, wantIDs: []int64{2, 1, 3}},
		{name: "inclusive end", filter: Filter{End: timep("2024-01-15")}, wantIDs: []int64{1, 2}},
		{
			name:    "combined",
			filter:  Filter{StudentID: int64p(1), Subject: "physics", Start: timep("2024-01-01"), End: timep("2024-12-31")},
			wantIDs: []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFiltered(sampleTable(), tt.filter)
			var ids []int64
			for _, r := range got.Records {
				ids = append(ids, r.StudentID)
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("GetFiltered() ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestGetFiltered_DoesNotModifyInput(t *testing.T) {
	table := sampleTable()
	before := table.Clone()

	got := GetFiltered(table, Filter{StudentID: int64p(2)})
	got.Records[0].Grade = 1
	got.Columns[0] = "changed"

	if !reflect.DeepEqual(table, before) {
		t.Error("GetFiltered modified its input")
	}
}

func TestGetFiltered_ZeroFilterCopiesTable(t *testing.T) {
	table := sampleTable()

	got := GetFiltered(table, Filter{})
	if !reflect.DeepEqual(got, table) {
		t.Fatalf("GetFiltered(zero) = %+v, want a copy of the table", got)
	}
	got.Records[0].Grade = 1
	if table.Records[0].Grade == 1 {
		t.Error("zero filter returned the input records, want a copy")
	}
}

func TestGetFiltered_DistinctStudentsAreDisjoint(t *testing.T) {
	table := sampleTable()

	byOne := GetFiltered(table, Filter{StudentID: int64p(1)})
	if got := GetFiltered(byOne, Filter{StudentID: int64p(2)}); got.Len() != 0 {
		t.Errorf("filtering by 1 then 2 gave %d rows, want 0", got.Len())
	}
}

func TestGetFiltered_StudentsPartitionTable(t *testing.T) {
	table := sampleTable()

	total := 0
	seen := make(map[GradeKey]int)
	for _, s := range Students(table) {
		part := GetFiltered(table, Filter{StudentID: int64p(s.StudentID)})
		for _, r := range part.Records {
			if r.StudentID != s.StudentID {
				t.Errorf("record for %d in partition %d", r.StudentID, s.StudentID)
			}
			seen[r.Key()]++
		}
		total += part.Len()
	}

	if total != table.Len() {
		t.Errorf("partition sizes sum to %d, want %d", total, table.Len())
	}
	for _, r := range table.Records {
		if seen[r.Key()] != 1 {
			t.Errorf("record %+v appears %d times across partitions, want 1", r.Key(), seen[r.Key()])
		}
	}
}

func TestParseFilterDate(t *testing.T) {
	got, ok := ParseFilterDate("2024-01-15")
	if !ok || got == nil || got.Format(DateLayout) != "2024-01-15" {
		t.Errorf("ParseFilterDate(valid) = %v, %v", got, ok)
	}

	got, ok = ParseFilterDate("")
	if !ok || got != nil {
		t.Errorf("ParseFilterDate(empty) = %v, %v, want nil, true", got, ok)
	}

	if _, ok := ParseFilterDate("not-a-date"); ok {
		t.Error("ParseFilterDate(invalid) ok = true, want false")
	}
}

func TestStudentsAndSubjects(t *testing.T) {
	table := sampleTable()

	wantStudents := []StudentRef{
		{StudentID: 1, StudentName: "Anna"},
		{StudentID: 2, StudentName: "Boris"},
		{StudentID: 3, StudentName: "Clara"},
	}
	if got := Students(table); !reflect.DeepEqual(got, wantStudents) {
		t.Errorf("Students() = %v, want %v", got, wantStudents)
	}

	wantSubjects := []string{"Math", "Physics", "math"}
	if got := Subjects(table); !reflect.DeepEqual(got, wantSubjects) {
		t.Errorf("Subjects() = %v, want %v", got, wantSubjects)
	}
}
