package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyrag/internal/domain"
	"policyrag/internal/service"
)

type fakeAsker struct {
	answer *service.Answer
	err    error
	asked  []string
}

func (f *fakeAsker) Ask(_ context.Context, q string) (*service.Answer, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_AskAndBrowseSources(t *testing.T) {
	svc := &fakeAsker{answer: &service.Answer{
		Text: "Late returns are fined one dollar per day.",
		Sources: []domain.SearchResult{
			{Chunk: domain.Chunk{Path: "policies/library.txt", Text: "Books are due in two weeks. Late returns are fined."}, Score: 0.8},
			{Chunk: domain.Chunk{Path: "policies/fees.txt", Text: "Fees are payable each term."}, Score: 0.4},
		},
	}}
	m := sized(t, New(svc, "12 chunks indexed", time.Second))
	assert.Contains(t, m.View(), "Policy Assistant")
	assert.Contains(t, m.View(), "12 chunks indexed")

	m.input.SetValue("  late returns?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, "", m.input.Value())

	msg := m.askCmd("late returns?")()
	next, _ = m.Update(msg)
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, []string{"late returns?"}, svc.asked)
	assert.Contains(t, m.renderPage(), "Late returns are fined one dollar per day.")
	assert.Contains(t, m.status, "2 sources")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderPage(), "Source 1/2  library.txt")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Contains(t, m.renderPage(), "Source 2/2  fees.txt")
}

func TestModel_ShowsErrors(t *testing.T) {
	svc := &fakeAsker{err: errors.New("index not ready")}
	m := sized(t, New(svc, "", 0))
	next, _ := m.Update(m.askCmd("anything")())
	m = next.(Model)
	assert.Contains(t, m.status, "Error: index not ready")
	assert.Equal(t, "No answer yet.", m.renderPage())
}

func TestModel_EmptyEnterDoesNothing(t *testing.T) {
	m := sized(t, New(&fakeAsker{}, "", 0))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, next.(Model).busy)
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Parking is free. Exams are held in May. Fees are due."
	out := highlightBestSentence(text, "when are exams")
	assert.Contains(t, out, "Parking is free.")
	assert.Contains(t, out, "Exams are held in May.")
	assert.Contains(t, highlightBestSentence(text, ""), "Fees are due.")
}
