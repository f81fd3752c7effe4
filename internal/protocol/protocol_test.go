package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeLayerWireFormat(t *testing.T) {
	msg := NewChangeLayer("ja")
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ChangeLayer":{"new":"ja"}}`, string(b))
}

func TestReloadNumWireFormat(t *testing.T) {
	msg := NewReloadNum(1)
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ReloadNum":{"index":1}}`, string(b))
}

func TestEmptyMessageFailsToMarshal(t *testing.T) {
	_, err := json.Marshal(ClientMessage{})
	assert.Error(t, err)
}

func TestServerResponseOk(t *testing.T) {
	var resp ServerResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Ok"}`), &resp))
	assert.Equal(t, StatusOK, resp.Status)
	assert.Nil(t, resp.Msg)
}

func TestServerResponseError(t *testing.T) {
	var resp ServerResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"Error","msg":"bad layer"}`), &resp))
	assert.Equal(t, StatusError, resp.Status)
	require.NotNil(t, resp.Msg)
	assert.Equal(t, "bad layer", *resp.Msg)
}
