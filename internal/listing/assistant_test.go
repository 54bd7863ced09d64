package listing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/puppetry/internal/steps"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return m.reply, m.err
}

func TestTitleFromLocalImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "mug.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nfake"), 0644))

	model := &fakeModel{reply: "  Blue Ceramic Mug 12oz \n"}
	a := NewAssistant(model, NewPromptManager(""), nil)
	title, err := a.Title(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "Blue Ceramic Mug 12oz", title)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	parts := model.messages[1].Parts
	require.Len(t, parts, 2)
	bin, ok := parts[1].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", bin.MIMEType)
}

func TestTitleFromURL(t *testing.T) {
	model := &fakeModel{reply: "Lamp"}
	a := NewAssistant(model, nil, nil)
	_, err := a.Title(context.Background(), "https://img.test/lamp.jpg")
	require.NoError(t, err)
	part, ok := model.messages[1].Parts[1].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Equal(t, "https://img.test/lamp.jpg", part.URL)
}

func TestTitleMissingImage(t *testing.T) {
	a := NewAssistant(&fakeModel{}, nil, nil)
	_, err := a.Title(context.Background(), filepath.Join(t.TempDir(), "none.jpg"))
	require.Error(t, err)
}

func TestPriceAndErrors(t *testing.T) {
	model := &fakeModel{reply: "$19.99 is typical"}
	a := NewAssistant(model, nil, nil)
	raw, err := a.Price(context.Background(), "Blue Mug")
	require.NoError(t, err)
	assert.Equal(t, "$19.99 is typical", raw)
	assert.Equal(t, "19.99", steps.ExtractPrice(raw))

	model.err = errors.New("quota")
	_, err = a.Price(context.Background(), "Blue Mug")
	require.ErrorIs(t, err, model.err)
}

func TestNoModelMeansNoCredential(t *testing.T) {
	var a *Assistant
	_, err := a.Title(context.Background(), "x.jpg")
	assert.ErrorIs(t, err, steps.ErrNoCredential)

	_, err = NewOpenAIModel("", "gpt-4o-mini", "")
	assert.ErrorIs(t, err, steps.ErrNoCredential)
}

func TestPromptOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "title.md"), []byte("Custom title prompt\n"), 0644))
	pm := NewPromptManager(dir)
	assert.Equal(t, "Custom title prompt", pm.GetTitlePrompt())
	assert.Equal(t, defaultPricePrompt, pm.GetPricePrompt())
}
