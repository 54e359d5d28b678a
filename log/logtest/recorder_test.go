/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crptclient/log"
)

func TestRecorder(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.Warn("pending items are discarded", log.Int("discarded", 3), log.String("reason", "stop requested"))
	logRecorder.Info("dispatcher stopped")

	require.Len(t, logRecorder.Entries(), 2)

	_, found := logRecorder.FindEntry("unknown")
	require.False(t, found)

	entry, found := logRecorder.FindEntry("pending items are discarded")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)

	discarded, found := entry.IntField("discarded")
	require.True(t, found)
	require.EqualValues(t, 3, discarded)

	reason, found := entry.StringField("reason")
	require.True(t, found)
	require.Equal(t, "stop requested", reason)

	_, found = entry.StringField("missing")
	require.False(t, found)

	require.Len(t, logRecorder.EntriesAtLevel(log.LevelInfo), 1)

	logRecorder.Reset()
	require.Empty(t, logRecorder.Entries())
}

func TestRecorder_With(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.With(log.String("item_id", "c1")).Error("item execution failed")
	logRecorder.WithLevel(log.LevelWarn).Debug("item executed")

	entries := logRecorder.Entries()
	require.Len(t, entries, 1)
	itemID, found := entries[0].StringField("item_id")
	require.True(t, found)
	require.Equal(t, "c1", itemID)
}
