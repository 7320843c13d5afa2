package broadcast

import (
	"docflow/internal/domain"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadKind(t *testing.T) {
	doc := domain.DocumentView{ID: "d1", Title: "Plan"}

	assert.Equal(t, KindCreate, NewCreate("acme", doc, "").Data.Kind())
	assert.Equal(t, KindUpdate, NewUpdate("acme", doc, "").Data.Kind())
	assert.Equal(t, KindDelete, NewDelete("acme", "d1", "").Data.Kind())
	assert.Equal(t, KindResync, NewResync("acme", "").Data.Kind())

	// an update notice without the document cannot be applied incrementally
	assert.Equal(t, KindResync, Payload{Organization: "acme", DocumentID: "d1"}.Kind())
}

func TestMessageJSONShape(t *testing.T) {
	raw, err := json.Marshal(NewDelete("acme", "d1", "tab-1"))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "UPDATE", generic["type"])

	data := generic["data"].(map[string]any)
	assert.Equal(t, "acme", data["organization"])
	assert.Equal(t, "d1", data["documentId"])
	assert.Equal(t, "DELETE", data["type"])
	assert.NotZero(t, data["timestamp"])
	assert.NotContains(t, data, "newDocument")
	assert.NotContains(t, data, "document")
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, NewResync("acme", "").Validate())

	missingOrg := NewResync("", "")
	assert.Error(t, missingOrg.Validate())

	wrongType := NewResync("acme", "")
	wrongType.Type = "PING"
	assert.Error(t, wrongType.Validate())

	badMarker := NewDelete("acme", "d1", "")
	badMarker.Data.Type = "REMOVE"
	assert.Error(t, badMarker.Validate())
}

func TestDecode(t *testing.T) {
	msg, err := decode([]byte(`{"type":"UPDATE","data":{"organization":"acme","timestamp":1}}`))
	require.NoError(t, err)
	assert.Equal(t, KindResync, msg.Data.Kind())

	_, err = decode([]byte(`{"type":"UPDATE","data":{}}`))
	assert.Error(t, err)

	_, err = decode([]byte(`not json`))
	assert.Error(t, err)
}
