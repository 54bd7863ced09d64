package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingMessenger struct {
	sent map[string][]string
	fail map[string]bool
}

func (m *recordingMessenger) Start() error { return nil }
func (m *recordingMessenger) Stop() error  { return nil }

func (m *recordingMessenger) Send(chatID string, text string) error {
	if m.fail[chatID] {
		return errors.New("chat " + chatID + " unreachable")
	}
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

func TestBroadcastSendsToEveryChat(t *testing.T) {
	m := &recordingMessenger{sent: map[string][]string{}, fail: map[string]bool{"-100": true}}
	err := Broadcast(m, []int64{7, -100, 42}, "online")
	assert.ErrorContains(t, err, "chat -100 unreachable")
	assert.Equal(t, []string{"online"}, m.sent["7"])
	assert.Equal(t, []string{"online"}, m.sent["42"])
	assert.NotContains(t, m.sent, "-100")

	assert.NoError(t, Broadcast(m, nil, "x"))
}

func TestChatsAreSorted(t *testing.T) {
	tg := newGateway(nil, nil, []int64{42, 7, -100})
	assert.Equal(t, []int64{-100, 7, 42}, tg.Chats())
}
