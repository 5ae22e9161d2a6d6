package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/pkg/types"
)

func numList(name string) *types.InlineTypeDefinition {
	return &types.InlineTypeDefinition{Name: name, Kind: types.KindTableOf, ElementType: "number", ElementCategory: types.Numeric}
}

func TestRegisterAndResolveCaseInsensitive(t *testing.T) {
	r := New()
	r.RegisterType("Num_List_T", numList("num_list_t"))

	def, ok := r.ResolveType("NUM_LIST_T")
	require.True(t, ok)
	assert.Equal(t, "num_list_t", def.Name)

	_, ok = r.ResolveType("other_t")
	assert.False(t, ok)
}

func TestNilRegistrationIgnored(t *testing.T) {
	r := New()
	r.RegisterType("", numList("x"))
	r.RegisterType("t", nil)
	r.RegisterVariable("", types.UnknownType)

	_, ok := r.ResolveType("t")
	assert.False(t, ok)
}

func TestBlockShadowingAndPop(t *testing.T) {
	r := New()
	outer := numList("t")
	r.RegisterType("t", outer)
	r.RegisterVariable("v", types.InferredType{Category: types.Numeric})

	r.PushBlock()
	inner := &types.InlineTypeDefinition{Name: "t", Kind: types.KindVarray, Limit: 5}
	r.RegisterType("t", inner)
	r.RegisterVariable("v", types.InferredType{Category: types.Text})

	def, ok := r.ResolveType("t")
	require.True(t, ok)
	assert.Same(t, inner, def)
	vt, _ := r.ResolveVariable("V")
	assert.Equal(t, types.Text, vt.Category)

	r.PopBlock()

	def, ok = r.ResolveType("t")
	require.True(t, ok)
	assert.Same(t, outer, def)
	vt, _ = r.ResolveVariable("v")
	assert.Equal(t, types.Numeric, vt.Category)
}

func TestRegistrationIsBlockLocalOnly(t *testing.T) {
	r := New()
	r.PushBlock()
	r.RegisterType("inner_t", numList("inner_t"))
	r.PopBlock()

	// the declaration died with its block; it never leaked outward
	_, ok := r.ResolveType("inner_t")
	assert.False(t, ok)
}

func TestTierCascade(t *testing.T) {
	r := New()
	r.RegisterSchemaType("t", numList("schema_t"))
	def, _ := r.ResolveType("t")
	assert.Equal(t, "schema_t", def.Name)

	r.RegisterPackageType("t", numList("pkg_t"))
	def, _ = r.ResolveType("t")
	assert.Equal(t, "pkg_t", def.Name)

	r.RegisterType("t", numList("block_t"))
	def, _ = r.ResolveType("t")
	assert.Equal(t, "block_t", def.Name)
}

func TestOutermostBlockNeverPopped(t *testing.T) {
	r := New()
	r.PopBlock()
	r.PopBlock()
	assert.Equal(t, 1, r.Depth())

	r.RegisterVariable("v", types.InferredType{Category: types.Date})
	vt, ok := r.ResolveVariable("v")
	require.True(t, ok)
	assert.Equal(t, types.Date, vt.Category)
}

func TestPackageVariables(t *testing.T) {
	r := New()
	r.RegisterPackageVariable("g_counter", types.InferredType{Category: types.Numeric, OracleName: "number"})

	vt, ok := r.ResolveVariable("G_COUNTER")
	require.True(t, ok)
	assert.Equal(t, "number", vt.OracleName)
}
