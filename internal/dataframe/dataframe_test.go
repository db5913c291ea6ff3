package dataframe

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSVRoundTrip(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	df, err := ReadCSV(path, ',')
	if err != nil {
		t.Fatal(err)
	}
	if df.NRows() != 2 || df.NCols() != 2 {
		t.Fatalf("shape = %d x %d", df.NRows(), df.NCols())
	}
	col, err := df.Column("b")
	if err != nil {
		t.Fatal(err)
	}
	if len(col.Data) != 2 || col.Data[0] != 2 || col.Data[1] != 4 {
		t.Fatalf("column b = %#v", col)
	}
}

func TestMixedTypeColumnStaysString(t *testing.T) {
	path := writeTempCSV(t, "name,score\nalice,10\nbob,notanumber\n")
	df, err := ReadCSV(path, ',')
	if err != nil {
		t.Fatal(err)
	}
	col, ok := df.column("score")
	if !ok || col.Kind != ColString {
		t.Fatalf("expected score column to fall back to string, got %#v", col)
	}
}

func TestSortByAndSelect(t *testing.T) {
	path := writeTempCSV(t, "a,b\n3,x\n1,y\n2,z\n")
	df, err := ReadCSV(path, ',')
	if err != nil {
		t.Fatal(err)
	}
	sorted, err := df.SortBy("a", true)
	if err != nil {
		t.Fatal(err)
	}
	aCol, _ := sorted.column("a")
	if aCol.Nums[0] != 1 || aCol.Nums[1] != 2 || aCol.Nums[2] != 3 {
		t.Fatalf("sorted a = %v", aCol.Nums)
	}
	sel, err := df.Select("b")
	if err != nil {
		t.Fatal(err)
	}
	if sel.NCols() != 1 {
		t.Fatalf("select: got %d cols", sel.NCols())
	}
}

func TestWriteCSVThenReadBack(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	df, err := ReadCSV(path, ',')
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "out.csv")
	if err := df.WriteCSV(out, ','); err != nil {
		t.Fatal(err)
	}
	df2, err := ReadCSV(out, ',')
	if err != nil {
		t.Fatal(err)
	}
	if df2.NRows() != 2 || df2.NCols() != 2 {
		t.Fatalf("round trip shape = %d x %d", df2.NRows(), df2.NCols())
	}
}

func TestRowReturnsStruct(t *testing.T) {
	path := writeTempCSV(t, "a,b\n1,2\n3,4\n")
	df, err := ReadCSV(path, ',')
	if err != nil {
		t.Fatal(err)
	}
	row, err := df.Row(0)
	if err != nil {
		t.Fatal(err)
	}
	if row.Fields["A"].ToDouble() != 1 {
		t.Fatalf("row = %#v", row)
	}
}
