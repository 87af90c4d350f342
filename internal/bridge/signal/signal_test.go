package signal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantErr  bool
		wantName string
		wantArgs map[string]any
	}{
		{
			name:     "name and args",
			payload:  `{"name":"ping","args":{"n":1}}`,
			wantName: "ping",
			wantArgs: map[string]any{"n": float64(1)},
		},
		{
			name:     "args absent",
			payload:  `{"name":"ping"}`,
			wantName: "ping",
			wantArgs: map[string]any{},
		},
		{
			name:     "args null",
			payload:  `{"name":"ping","args":null}`,
			wantName: "ping",
			wantArgs: map[string]any{},
		},
		{
			name:     "extra fields ignored",
			payload:  `{"name":"ping","args":{},"id":7}`,
			wantName: "ping",
			wantArgs: map[string]any{},
		},
		{name: "empty", payload: ``, wantErr: true},
		{name: "null", payload: `null`, wantErr: true},
		{name: "not json", payload: `ping`, wantErr: true},
		{name: "string", payload: `"ping"`, wantErr: true},
		{name: "array", payload: `[{"name":"ping"}]`, wantErr: true},
		{name: "missing name", payload: `{"args":{}}`, wantErr: true},
		{name: "numeric name", payload: `{"name":42}`, wantErr: true},
		{name: "empty name", payload: `{"name":""}`, wantErr: true},
		{name: "args array", payload: `{"name":"ping","args":[1,2]}`, wantErr: true},
		{name: "args string", payload: `{"name":"ping","args":"x"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Parse([]byte(tt.payload))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformed)
				assert.Equal(t, Signal{}, sig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, sig.Name)
			assert.Equal(t, tt.wantArgs, sig.Args)
		})
	}
}

func TestParseRejectsOversizedPayload(t *testing.T) {
	big := `{"name":"ping","args":{"blob":"` + strings.Repeat("x", MaxPayloadSize) + `"}}`
	_, err := Parse([]byte(big))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncode(t *testing.T) {
	data, err := Encode(Signal{Name: "pong"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"pong","args":{}}`, string(data))

	sig, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, New("pong", nil), sig)

	_, err = Encode(Signal{})
	assert.ErrorIs(t, err, ErrEmptyName)
}
