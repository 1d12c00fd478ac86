package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueNativeRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"name":    String("ingest"),
		"retries": Int(3),
		"ratio":   Float(0.5),
		"enabled": Bool(true),
		"tags":    List([]Value{String("a"), String("b")}),
		"missing": Null(),
	})

	native := v.Native()
	back := FromNative(native)

	name, ok := back.Get("name").String()
	require.True(t, ok)
	assert.Equal(t, "ingest", name)

	retries, ok := back.Get("retries").Float()
	require.True(t, ok, "Float() reads the KindInt value FromNative rebuilds from int64")
	assert.Equal(t, float64(3), retries)

	tags, ok := back.Get("tags").List()
	require.True(t, ok)
	require.Len(t, tags, 2)
	first, _ := tags[0].String()
	assert.Equal(t, "a", first)

	assert.True(t, back.Get("missing").IsNull())
	assert.True(t, back.Get("nonexistent").IsNull())
}

func TestValueJSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"count": Int(7),
		"label": String("build"),
	})

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))

	label, ok := decoded.Get("label").String()
	require.True(t, ok)
	assert.Equal(t, "build", label)

	// Numbers decoded from JSON always come back as KindFloat.
	count, ok := decoded.Get("count").Float()
	require.True(t, ok)
	assert.Equal(t, float64(7), count)
}

func TestValueCloneIsDeep(t *testing.T) {
	inner := List([]Value{String("original")})
	original := Map(map[string]Value{"items": inner})

	clone := original.Clone()

	fields, ok := clone.Map()
	require.True(t, ok)
	items, ok := fields["items"].List()
	require.True(t, ok)
	require.Len(t, items, 1)

	// Mutating the clone's backing slice must not affect the original.
	items[0] = String("mutated")
	origFields, _ := original.Map()
	origItems, _ := origFields["items"].List()
	origFirst, _ := origItems[0].String()
	assert.Equal(t, "original", origFirst)
}

func TestValueFloatCoercesInt(t *testing.T) {
	v := Int(42)
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, float64(42), f)

	_, ok = String("x").Int()
	assert.False(t, ok)
}
