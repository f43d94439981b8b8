package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMarshalUnmarshalRoundTrip(t *testing.T) {
	original := Metadata{
		"division": "retail",
		"category": "lending",
		"products": []string{"home loan", "savings account"},
	}

	bytes, err := original.Marshal()
	require.NoError(t, err)

	var restored Metadata
	require.NoError(t, restored.Unmarshal(bytes))
	assert.Equal(t, "retail", restored["division"])
	assert.Equal(t, "lending", restored["category"])
}

func TestMetadataValueScanRoundTrip(t *testing.T) {
	original := Metadata{"page_label": "Schedule 2"}

	value, err := original.Value()
	require.NoError(t, err)

	var restored Metadata
	require.NoError(t, restored.Scan(value))
	assert.Equal(t, "Schedule 2", restored["page_label"])
}

func TestMetadataUnmarshalNilLeavesEmptyMap(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Unmarshal(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestMetadataUnmarshalMetadataValueCopiesDirectly(t *testing.T) {
	source := Metadata{"division": "business"}
	var m Metadata
	require.NoError(t, m.Unmarshal(source))
	assert.Equal(t, "business", m["division"])
}

func TestMetadataUnmarshalInvalidJSONFails(t *testing.T) {
	var m Metadata
	assert.Error(t, m.Unmarshal([]byte(`{not json}`)))
}

func TestMetadataUnmarshalRejectsNonByteValue(t *testing.T) {
	var m Metadata
	err := m.Unmarshal(12345)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected []byte")
}
