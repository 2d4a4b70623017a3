package table

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const studentsCSV = `student_id,name,age,gpa,absences,risk_score,risk_label
S1,Ana,19,3.2,2,0.1,Low
S2,Ben,22,1.9,14,0.9,High
S3,"Cy, Jr",20,NA,5,0.5,Medium
`

func readStudents(t *testing.T) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(studentsCSV))
	require.NoError(t, err)
	return tbl
}

func annotated(t *testing.T) *Result {
	t.Helper()
	tbl := readStudents(t).DropDerived()
	res, err := tbl.Annotate([]risk.Record{
		{Score: 0.25, Label: risk.LabelLow},
		{Score: 0.85, Label: risk.LabelHigh},
		{Score: 0.4, Label: risk.LabelMedium},
	})
	require.NoError(t, err)
	return res
}

func TestRead(t *testing.T) {
	tbl := readStudents(t)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"student_id", "name", "age", "gpa", "absences", ScoreColumn, LabelColumn}, tbl.Columns())
	assert.Equal(t, "Cy, Jr", tbl.Row(2)[1])
	assert.Equal(t, 3, tbl.Index("gpa"))
	assert.Equal(t, -1, tbl.Index("missing"))
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyInput))

	_, err = Read(strings.NewReader("a,b\n1,2,3\n"))
	assert.True(t, errors.Is(err, ErrMalformedInput))

	_, err = Read(strings.NewReader("a,b\n\"1,2\n"))
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestRead_StripsByteOrderMark(t *testing.T) {
	tbl, err := Read(strings.NewReader("\ufeffage,gpa\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "gpa"}, tbl.Columns())
}

func TestNew_DuplicateColumns(t *testing.T) {
	tbl, err := New([]string{"a", "a", "b", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "b", "a.2"}, tbl.Columns())
}

func TestDropDerived(t *testing.T) {
	tbl := readStudents(t)
	dropped := tbl.DropDerived()
	assert.Equal(t, []string{"student_id", "name", "age", "gpa", "absences"}, dropped.Columns())
	assert.Equal(t, []string{"S1", "Ana", "19", "3.2", "2"}, dropped.Row(0))

	// original is untouched
	assert.Len(t, tbl.Columns(), 7)

	// nothing to drop returns the same table
	assert.Same(t, dropped, dropped.DropDerived())
}

func TestNumeric(t *testing.T) {
	tbl := readStudents(t)
	assert.Equal(t, []string{"age", "gpa", "absences", ScoreColumn}, tbl.Numeric())
	assert.Equal(t, []string{"age", "gpa", "absences"}, tbl.DropDerived().Numeric())
}

func TestNumeric_NoRows(t *testing.T) {
	tbl, err := Read(strings.NewReader("age,gpa\n"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Numeric())

	m, err := tbl.Matrix()
	require.NoError(t, err)
	assert.Equal(t, 0, m.Cols())
	assert.Equal(t, 0, m.Len())
}

func TestNumeric_Cells(t *testing.T) {
	tests := []struct {
		cell    string
		numeric bool
	}{
		{"1", true},
		{"-2.5", true},
		{"1e3", true},
		{" 4 ", true},
		{"", true},
		{"NA", true},
		{"null", true},
		{"abc", false},
		{"True", false},
		{"1,000", false},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			tbl, err := New([]string{"x"}, [][]string{{tt.cell}})
			require.NoError(t, err)
			assert.Equal(t, tt.numeric, len(tbl.Numeric()) == 1)
		})
	}
}

func TestMatrix(t *testing.T) {
	m, err := readStudents(t).DropDerived().Matrix()
	require.NoError(t, err)
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []float64{19, 3.2, 2}, m.Row(0))
	assert.Equal(t, []float64{22, 1.9, 14}, m.Row(1))

	last := m.Row(2)
	assert.Equal(t, 20.0, last[0])
	assert.True(t, math.IsNaN(last[1]))
	assert.Equal(t, 5.0, last[2])
}

func TestAnnotate(t *testing.T) {
	res := annotated(t)
	assert.Equal(t, []string{"student_id", "name", "age", "gpa", "absences"}, res.Columns)
	require.Equal(t, 3, res.Len())
	for i, row := range res.Rows {
		assert.Equal(t, i, row.Index)
	}
	assert.Equal(t, 0.85, res.Rows[1].Score)
	assert.Equal(t, risk.LabelHigh, res.Rows[1].Label)
}

func TestAnnotate_ReplacesExistingRiskColumns(t *testing.T) {
	res, err := readStudents(t).Annotate(make([]risk.Record, 3))
	require.NoError(t, err)
	assert.NotContains(t, res.Columns, ScoreColumn)
	assert.NotContains(t, res.Columns, LabelColumn)
}

func TestAnnotate_CountMismatch(t *testing.T) {
	_, err := readStudents(t).Annotate([]risk.Record{{Score: 1, Label: risk.LabelHigh}})
	assert.Error(t, err)
}

func TestTop(t *testing.T) {
	res := annotated(t)

	top := res.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Index)
	assert.Equal(t, 2, top[1].Index)

	all := res.Top(0)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 0}, []int{all[0].Index, all[1].Index, all[2].Index})

	// sorting does not reorder the result
	assert.Equal(t, 0, res.Rows[0].Index)
}

func TestTop_StableOnTies(t *testing.T) {
	tbl, err := New([]string{"x"}, [][]string{{"1"}, {"2"}, {"3"}})
	require.NoError(t, err)
	res, err := tbl.Annotate([]risk.Record{
		{Score: 0.5, Label: risk.LabelMedium},
		{Score: 0.9, Label: risk.LabelHigh},
		{Score: 0.5, Label: risk.LabelMedium},
	})
	require.NoError(t, err)

	top := res.Top(DefaultTop)
	assert.Equal(t, []int{1, 0, 2}, []int{top[0].Index, top[1].Index, top[2].Index})
}

func TestLookup(t *testing.T) {
	res := annotated(t)

	row, err := res.Lookup(2)
	require.NoError(t, err)
	assert.Equal(t, 0.4, row.Score)
	assert.Equal(t, risk.LabelMedium, row.Label)

	v, ok := res.Value(row, "name")
	assert.True(t, ok)
	assert.Equal(t, "Cy, Jr", v)

	_, ok = res.Value(row, "nope")
	assert.False(t, ok)

	_, err = res.Lookup(3)
	assert.True(t, errors.Is(err, ErrRowNotFound))
	_, err = res.Lookup(-1)
	assert.True(t, errors.Is(err, ErrRowNotFound))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, Summary{Total: 3, High: 1, Medium: 1, Low: 1}, annotated(t).Summary())
}

func TestWriteCSV_Golden(t *testing.T) {
	res := annotated(t)

	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf, res.Top(0)))

	g := goldie.New(t)
	g.Assert(t, "annotated", buf.Bytes())
}

func TestRow_Encoding(t *testing.T) {
	row := annotated(t).Rows[1]

	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":1,"values":["S2","Ben","22","1.9","14"],"risk_score":0.85,"risk_label":"High"}`, string(b))

	y, err := yaml.Marshal(row)
	require.NoError(t, err)
	assert.Contains(t, string(y), "risk_score: 0.85")
	assert.Contains(t, string(y), "risk_label: High")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.85", FormatScore(0.85))
	assert.Equal(t, "1", FormatScore(1))
	assert.Equal(t, "0.00001", FormatScore(1e-5))
}
