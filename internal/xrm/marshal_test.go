package xrm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tags := DefaultTypeTags()
	tests := []struct {
		name string
		val  AttributeValue
	}{
		{"null", Null{}},
		{"string", String("Acme")},
		{"int", Int(42)},
		{"float", Float(3.5)},
		{"bool", Bool(true)},
		{"reference", EntityReference{ID: "1a2b3c4d-0000-0000-0000-000000000000", LogicalName: "account", Name: "Acme"}},
		{"reference_no_name", EntityReference{ID: "1a2b3c4d-0000-0000-0000-000000000000", LogicalName: "account"}},
		{"optionset", OptionSetValue{Value: 2}},
		{"multiselect", OptionSetValueCollection{Values: []int64{1, 2, 3}}},
		{"money", Money{Value: 500000.25}},
		{"datetime", DateTime{ISO: "2024-06-01T12:00:00Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeValue(tt.val, tags)
			decoded, err := DecodeValue(encoded, tags)
			require.NoError(t, err)
			assert.Equal(t, tt.val, decoded)
		})
	}
}

func TestDecodeValueNumbers(t *testing.T) {
	tags := DefaultTypeTags()

	v, err := DecodeValue(float64(7), tags)
	require.NoError(t, err)
	assert.Equal(t, Int(7), v, "whole float64 decodes to Int")

	v, err = DecodeValue(float64(7.5), tags)
	require.NoError(t, err)
	assert.Equal(t, Float(7.5), v)
}

func TestDecodeValueUnknownTag(t *testing.T) {
	_, err := DecodeValue(map[string]any{TypeTagKey: "Mystery"}, DefaultTypeTags())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value tag")
}

func TestCustomTypeTags(t *testing.T) {
	tags := TypeTags{
		EntityReference:     "ref",
		OptionSet:           "opt",
		OptionSetCollection: "opts",
		Money:               "cash",
		DateTime:            "when",
	}
	encoded := EncodeValue(Money{Value: 10}, tags)
	m, ok := encoded.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cash", m[TypeTagKey])

	decoded, err := DecodeValue(encoded, tags)
	require.NoError(t, err)
	assert.Equal(t, Money{Value: 10}, decoded)

	// The default tag set must not understand the custom encoding.
	_, err = DecodeValue(encoded, DefaultTypeTags())
	assert.Error(t, err)
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	tags := DefaultTypeTags()
	bag := AttributeBag{
		"zeta":  String("z"),
		"alpha": Int(1),
		"mid":   Bool(false),
	}
	data, err := MarshalCanonical(bag, tags)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":1,"mid":false,"zeta":"z"}`, string(data))
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	tags := DefaultTypeTags()
	doc := map[string]any{
		"b": []any{int64(1), "two", true, nil},
		"a": map[string]any{"nested": Float(2.5)},
	}
	first, err := MarshalCanonical(doc, tags)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(doc, tags)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical("<a> & <b>", DefaultTypeTags())
	require.NoError(t, err)
	assert.Equal(t, `"<a> & <b>"`, string(data))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// e + combining acute accent normalizes to the precomposed form.
	decomposed := "café"
	precomposed := "café"
	a, err := MarshalCanonical(decomposed, DefaultTypeTags())
	require.NoError(t, err)
	b, err := MarshalCanonical(precomposed, DefaultTypeTags())
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalWholeFloats(t *testing.T) {
	data, err := MarshalCanonical(Money{Value: 500000}, DefaultTypeTags())
	require.NoError(t, err)
	assert.Equal(t, `{"type":"Money","value":500000}`, string(data))
}
