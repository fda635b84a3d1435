package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleParams struct {
	ContactID string   `json:"contact_id" description:"Contact identifier"`
	Stage     string   `json:"stage" enum:"lead,quoted,won"`
	Limit     int      `json:"limit,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	DueAt     *string  `json:"due_at" format:"date-time"`
	internal  string
}

func TestCreateSchema(t *testing.T) {
	s := CreateSchema(sampleParams{})

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.ElementsMatch(t, []any{"contact_id", "stage"}, s["required"])

	props := s["properties"].(map[string]any)
	require.Len(t, props, 5)
	assert.Equal(t, "Contact identifier", props["contact_id"].(map[string]any)["description"])
	assert.Equal(t, []any{"lead", "quoted", "won"}, props["stage"].(map[string]any)["enum"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
	assert.Equal(t, map[string]any{"type": "string"}, props["tags"].(map[string]any)["items"])
	assert.Equal(t, "date-time", props["due_at"].(map[string]any)["format"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	assert.Equal(t, "object", CreateSchema(42)["type"])
	assert.Equal(t, "object", CreateSchema(nil)["type"])
}

func TestDecode(t *testing.T) {
	var p sampleParams
	require.NoError(t, Decode(map[string]any{"contact_id": "c1", "limit": float64(5)}, &p))
	assert.Equal(t, "c1", p.ContactID)
	assert.Equal(t, 5, p.Limit)

	assert.Error(t, Decode(map[string]any{"limit": "five"}, &p))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Hi {{ default \"there\" .Name }}", map[string]any{"Name": ""})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)

	out, err = RenderTemplate("plain", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	_, err = RenderTemplate("{{ .Broken", nil)
	assert.Error(t, err)
}
