package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

type msg struct {
	Token string `json:"token,omitempty"`
	N     int    `json:"n"`
}

func TestJSON_Registered(t *testing.T) {
	c := encoding.GetCodec(Name)
	require.NotNil(t, c)
	assert.Equal(t, Name, c.Name())
}

func TestJSON_EmptyPayload(t *testing.T) {
	var m msg
	require.NoError(t, JSON{}.Unmarshal(nil, &m))
	assert.Equal(t, msg{}, m)
}

func TestJSON_Malformed(t *testing.T) {
	var m msg
	err := JSON{}.Unmarshal([]byte("{"), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec: unmarshal")
}

func TestJSON_Encode(t *testing.T) {
	b, err := JSON{}.Marshal(&msg{N: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":3}`, string(b))
}
