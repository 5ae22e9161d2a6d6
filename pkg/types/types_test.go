package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOfOracleType(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"NUMBER", Numeric},
		{"number(10,2)", Numeric},
		{"PLS_INTEGER", Numeric},
		{"VARCHAR2(30)", Text},
		{"clob", Text},
		{"DATE", Date},
		{"TIMESTAMP(6) WITH TIME ZONE", Date},
		{"BOOLEAN", Boolean},
		{"SDO_GEOMETRY", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryOfOracleType(tt.name), "type %q", tt.name)
	}
}

func TestCollectionKindOrdering(t *testing.T) {
	assert.True(t, KindTableOf.IsOrdered())
	assert.True(t, KindVarray.IsOrdered())
	assert.False(t, KindIndexBy.IsOrdered())
	assert.False(t, KindRecord.IsOrdered())
	assert.False(t, KindRowType.IsOrdered())
}

func TestInlineTypeDefinitionField(t *testing.T) {
	def := &InlineTypeDefinition{
		Name: "emp_rec",
		Kind: KindRecord,
		Fields: []RecordField{
			{Name: "empno", OracleType: "number", Category: Numeric},
			{Name: "ename", OracleType: "varchar2", Category: Text},
		},
	}

	f, ok := def.Field("ENAME")
	assert.True(t, ok)
	assert.Equal(t, Text, f.Category)

	_, ok = def.Field("missing")
	assert.False(t, ok)

	assert.Equal(t, Record, def.Type().Category)
	assert.Same(t, def, def.Type().Definition)
}
