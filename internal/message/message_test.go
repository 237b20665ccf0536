// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package message

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsNonObjects(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	require.Error(t, err)

	_, err = Decode([]byte(`null`))
	require.Error(t, err)

	m, err := Decode([]byte(`{"cmd":"PAUSE"}`))
	require.NoError(t, err)
	cmd, ok := m.Cmd()
	assert.True(t, ok)
	assert.Equal(t, "PAUSE", cmd)
}

func TestIsStopRequiresMatchingKey(t *testing.T) {
	m := Message{KeyCmd: CmdStop, KeyStopKey: "abc"}
	assert.True(t, m.IsStop("abc"))
	assert.False(t, m.IsStop("other"))

	assert.False(t, Message{KeyCmd: "PAUSE", KeyStopKey: "abc"}.IsStop("abc"))
	assert.False(t, Message{KeyCmd: CmdStop}.IsStop(""))
}

func TestStringsAcceptsDecodedJSON(t *testing.T) {
	m, err := Decode([]byte(`{"cmd":"TELLABOUT","content_ids":["tivo:ct.1", 42]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"tivo:ct.1", "42"}, m.Strings("content_ids"))
	assert.Nil(t, m.Strings("missing"))
}

func TestIntHandlesJSONNumbers(t *testing.T) {
	m, err := Decode([]byte(`{"total_count":3}`))
	require.NoError(t, err)
	n, ok := m.Int(KeyTotalCount)
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestSuccessAndFailureEnvelopes(t *testing.T) {
	ok := Success("WHATSON", "recordings", []string(nil))
	assert.Equal(t, StatusSuccess, ok.Status())
	assert.Equal(t, 0, ok[KeyTotalCount])
	assert.Equal(t, []string{}, ok["recordings"])

	fail := Failure("WHENIS", errors.New("boom"))
	assert.Equal(t, StatusError, fail.Status())
	assert.Equal(t, "boom", fail[KeyError])
	assert.Equal(t, "WHENIS", fail[KeyCmd])
}

func TestNormalizeCmd(t *testing.T) {
	assert.Equal(t, "whatson", NormalizeCmd(" WhatsOn "))
}
