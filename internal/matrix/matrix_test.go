package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": Binary, "binary": Binary, "count": Count} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("weighted")
	assert.Error(t, err)

	assert.Equal(t, "count", Count.String())
	assert.Equal(t, "binary", Binary.String())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		cols []string
		data [][]Entry
		msg  string
	}{
		{"row count", []string{"a"}, []string{"x"}, nil, "have 0 rows"},
		{"duplicate row", []string{"a", "a"}, []string{"x"}, [][]Entry{nil, nil}, "duplicate row label"},
		{"duplicate col", []string{"a"}, []string{"x", "x"}, [][]Entry{nil}, "duplicate column label"},
		{"out of range", []string{"a"}, []string{"x"}, [][]Entry{{{Col: 1, Value: 1}}}, "out of range"},
		{"unsorted", []string{"a"}, []string{"x", "y"}, [][]Entry{{{Col: 1, Value: 1}, {Col: 0, Value: 1}}}, "strictly increasing"},
		{"zero", []string{"a"}, []string{"x"}, [][]Entry{{{Col: 0, Value: 0}}}, "explicit zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rows, tt.cols, tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMatrix_Accessors(t *testing.T) {
	m, err := New(
		[]string{"rs1", "rs2"},
		[]string{"A", "B", "C"},
		[][]Entry{{{Col: 0, Value: 1}, {Col: 2, Value: 3}}, nil},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, m.At(0, 2))
	assert.Equal(t, 0, m.At(0, 1))
	assert.Equal(t, 0, m.At(1, 0))
	assert.Equal(t, 2, m.NNZ())
	assert.Equal(t, 1, m.RowIndex("rs2"))
	assert.Equal(t, -1, m.RowIndex("rs9"))
	assert.Equal(t, 2, m.ColIndex("C"))
	assert.Equal(t, -1, m.ColIndex("Z"))

	d := m.Dense()
	require.NotNil(t, d)
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 3.0, d.At(0, 2))
	assert.Equal(t, 0.0, d.At(1, 1))
}

func TestMatrix_Equal(t *testing.T) {
	a, err := New([]string{"rs1"}, []string{"A"}, [][]Entry{{{Col: 0, Value: 1}}})
	require.NoError(t, err)
	b, err := New([]string{"rs1"}, []string{"A"}, [][]Entry{{{Col: 0, Value: 1}}})
	require.NoError(t, err)
	c, err := New([]string{"rs1"}, []string{"A"}, [][]Entry{{{Col: 0, Value: 2}}})
	require.NoError(t, err)
	d, err := New([]string{"rs2"}, []string{"A"}, [][]Entry{nil})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}
