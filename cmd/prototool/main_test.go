package main

import (
	"encoding/json"
	"testing"

	"go-markboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleActivity = `{"id": 12, "user_id": 3, "action": "file_edited", "resource_type": "file",
	"resource_id": 9, "details": "Updated file notes.md: content", "created_at": "2024-05-01T08:00:00Z"}`

func TestEncodeDecode(t *testing.T) {
	for _, format := range []string{"hex", "base64"} {
		t.Run(format, func(t *testing.T) {
			payload, err := encode(sampleActivity, format)
			require.NoError(t, err)

			out, err := decode(payload, format, "activity")
			require.NoError(t, err)

			var entry model.ActivityLog
			require.NoError(t, json.Unmarshal([]byte(out), &entry))
			assert.Equal(t, uint(12), entry.ID)
			assert.Equal(t, "file_edited", entry.Action)
			require.NotNil(t, entry.ResourceID)
			assert.Equal(t, uint(9), *entry.ResourceID)
			assert.Equal(t, "2024-05-01T08:00:00Z", entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		})
	}
}

func TestDecodeRawView(t *testing.T) {
	payload, err := encode(sampleActivity, "hex")
	require.NoError(t, err)

	out, err := decode(payload, "hex", "raw")
	require.NoError(t, err)
	assert.Contains(t, out, `"action"`)
	assert.Contains(t, out, `"file_edited"`)
}

func TestInvalidArguments(t *testing.T) {
	_, err := encode("not json", "hex")
	assert.Error(t, err)
	_, err = encode(sampleActivity, "binary")
	assert.Error(t, err)
	_, err = decode("zz", "hex", "activity")
	assert.Error(t, err)
	_, err = decode("00", "octal", "activity")
	assert.Error(t, err)
	_, err = decode("", "hex", "tree")
	assert.Error(t, err)
}
