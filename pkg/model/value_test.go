package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	v := Some(12.5)
	f, ok := v.Get()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)
	assert.False(t, v.IsNA())
	assert.Equal(t, "12.5", v.String())

	assert.True(t, NA().IsNA())
	assert.True(t, Some(math.NaN()).IsNA())
	assert.Equal(t, -1.0, NA().Or(-1))
	assert.Equal(t, "NA", NA().String())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NA().Equal(NA()))
	assert.True(t, Some(1).Equal(Some(1)))
	assert.False(t, Some(1).Equal(Some(2)))
	assert.False(t, Some(0).Equal(NA()))
}

func TestWellKey(t *testing.T) {
	a := WellKey{Name: "W1", X: Some(10), Y: Some(20)}
	b := WellKey{Name: "W1", X: Some(10), Y: Some(20)}
	c := WellKey{Name: "W1"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, c.Equal(WellKey{Name: "W1"}))
	assert.False(t, WellKey{Name: "  "}.Valid())
	assert.Equal(t, "W1", c.String())
	assert.Equal(t, "W1 (10, 20)", a.String())
}

func TestBatchAppend(t *testing.T) {
	b := NewBatch("test", []string{"Name", "Depth"})
	b.Append("W1", 10.0)
	b.Append("W2")

	assert.Equal(t, 2, b.Len())
	assert.True(t, b.HasColumn("Depth"))
	assert.False(t, b.HasColumn("Top"))
	assert.Equal(t, "W1", b.Rows[0]["Name"])
	assert.Nil(t, b.Rows[1]["Depth"])
}
