package history

import (
	"testing"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/stretchr/testify/require"
)

func TestRows_SortedWithOwnFlag(t *testing.T) {
	s := NewState().LoadHistory(general, chat.HistoryBatch{
		"10": {ID: 10, Username: "me", MessageContent: "third"},
		"2":  {ID: 2, Username: "a", MessageContent: "first"},
		"9":  {ID: 9, Username: "b", MessageContent: "second", MessageType: chat.MessageTypeEmote},
	})

	rows := Rows(s)
	require.Len(t, rows, 3)
	require.Equal(t, []int64{2, 9, 10}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})
	for _, r := range rows {
		require.False(t, r.Own, "nobody is own before login")
	}

	rows = Rows(s.OnLogin("me"))
	require.False(t, rows[0].Own)
	require.True(t, rows[2].Own)
	require.Equal(t, chat.MessageTypeEmote, rows[1].MessageType)
}

func TestLastFinalized(t *testing.T) {
	_, ok := LastFinalized(NewState())
	require.False(t, ok)

	s := NewState().LoadHistory(general, chat.HistoryBatch{
		"1": {ID: 1, Username: "a", MessageContent: "one"},
		"3": {ID: 3, Username: "a", MessageContent: "three"},
	})
	s = s.ApplyTypingUpdate(general, chat.TypingBatch{"4": typing("draft", general, "b")})

	m, ok := LastFinalized(s)
	require.True(t, ok)
	require.Equal(t, int64(3), m.ID)
}
