package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/puppetry/internal/runner"
	"github.com/rahul/puppetry/internal/steps"
	"github.com/rahul/puppetry/internal/store"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		args []string
	}{
		{"/presets", "presets", []string{}},
		{"/run mug https://p.test/1", "run", []string{"mug", "https://p.test/1"}},
		{"/RUN@puppetry_bot mug", "run", []string{"mug"}},
		{"  /status  ", "status", []string{}},
		{"hello", "", nil},
		{"", "", nil},
	}
	for _, tc := range cases {
		cmd, args := parseCommand(tc.text)
		assert.Equal(t, tc.cmd, cmd, tc.text)
		assert.Equal(t, tc.args, args, tc.text)
	}
}

type memPresets map[string]store.Preset

func (m memPresets) Names() ([]string, error) {
	return []string{"mug"}, nil
}

func (m memPresets) Get(name string) (store.Preset, error) {
	p, ok := m[name]
	if !ok {
		return store.Preset{}, store.ErrPresetNotFound
	}
	return p, nil
}

type nopBrowser struct{ closed int }

func (b *nopBrowser) Alive() bool                                    { return true }
func (b *nopBrowser) Acquire(ctx context.Context) (steps.Page, error) { return nil, nil }
func (b *nopBrowser) Close() error                                   { b.closed++; return nil }

type outbox struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (o *outbox) send(chatID int64, text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[chatID] = append(o.sent[chatID], text)
	return nil
}

func newTestGateway(t *testing.T) (*TelegramGateway, *outbox, *nopBrowser) {
	t.Helper()
	var list []steps.Step
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"log","message":"hi"}]`), &list))

	b := &nopBrowser{}
	r := runner.New(b, nil)
	tg := newGateway(r, memPresets{"mug": {Steps: list}}, []int64{7})
	r.Notifier = tg
	out := &outbox{sent: map[int64][]string{}}
	tg.send = out.send
	return tg, out, b
}

func TestRunCommandNotifiesOnFinish(t *testing.T) {
	tg, out, _ := newTestGateway(t)

	reply := tg.handle(context.Background(), 7, "/run mug")
	assert.Equal(t, "▶ Running mug", reply)
	require.NoError(t, tg.Stop())

	out.mu.Lock()
	defer out.mu.Unlock()
	require.Len(t, out.sent[7], 1)
	assert.True(t, strings.HasPrefix(out.sent[7][0], "✅ mug done"))
}

func TestCommands(t *testing.T) {
	tg, _, b := newTestGateway(t)
	ctx := context.Background()

	assert.Equal(t, "Presets:\nmug", tg.handle(ctx, 7, "/presets"))
	assert.Contains(t, tg.handle(ctx, 7, "/run ghost"), "puppet not found")
	assert.Contains(t, tg.handle(ctx, 7, "/run"), "Usage")
	assert.Equal(t, "Browser closed.", tg.handle(ctx, 7, "/reset"))
	assert.Equal(t, 1, b.closed)
	assert.True(t, strings.HasPrefix(tg.handle(ctx, 7, "/status"), "IDLE"))
	assert.Empty(t, tg.handle(ctx, 7, "just chatting"))
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "✅ ad-hoc run done (2 loop(s))", summaryText(runner.Summary{Loops: 2}))
	assert.Equal(t, "❌ mug failed: boom", summaryText(runner.Summary{Preset: "mug", Err: errors.New("boom")}))
}

func TestSendRejectsBadChatID(t *testing.T) {
	tg, _, _ := newTestGateway(t)
	assert.Error(t, tg.Send("abc", "x"))
	assert.NoError(t, tg.Send("7", "x"))
}
