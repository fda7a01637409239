package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Command
		wantErr error
	}{
		{"join", `{"type":"join"}`, JoinCmd{}, nil},
		{"start", `{"type":"start"}`, StartCmd{}, nil},
		{"restart", `{"type":"restart","id":"P1"}`, RestartCmd{ID: "P1"}, nil},
		{"throw", `{"type":"throw","id":"P2","vx":0.5,"vy":-1}`, ThrowCmd{ID: "P2", VX: 0.5, VY: -1}, nil},
		{"throw zero", `{"type":"throw","id":"P2","vx":0,"vy":0}`, ThrowCmd{ID: "P2"}, nil},
		{"throw missing vy", `{"type":"throw","id":"P2","vx":1}`, nil, ErrMalformedMessage},
		{"throw wrong type", `{"type":"throw","vx":"fast","vy":1}`, nil, ErrMalformedMessage},
		{"not json", `hello`, nil, ErrMalformedMessage},
		{"unknown", `{"type":"chat"}`, nil, ErrUnknownMessage},
		{"no type", `{}`, nil, ErrUnknownMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand([]byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinaryUsesJSONFieldNames(t *testing.T) {
	gs := GameState{
		Phase:   "playing",
		Owner:   "P1",
		Players: []PlayerState{{ID: "P1", Name: "Ann", Ball: BallState{X: 10.5, Y: 20}}},
		Goal:    GoalState{X: 600, Y: 300, R: GoalRadius},
		Tick:    42,
		Now:     testNow,
	}
	data, err := EncodeBinary(NewStateMsg(gs))
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(data, &generic))
	assert.Equal(t, MsgState, generic["type"])
	require.Contains(t, generic, "game")

	var back StateMsg
	require.NoError(t, DecodeBinary(data, &back))
	if diff := cmp.Diff(NewStateMsg(gs), back); diff != "" {
		t.Errorf("state changed through msgpack (-want +got):\n%s", diff)
	}
}

func TestNewToastFormats(t *testing.T) {
	assert.Equal(t, ToastMsg{Type: MsgToast, Message: "Ann joined"}, NewToast("%s joined", "Ann"))
}
