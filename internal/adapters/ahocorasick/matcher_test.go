package ahocorasick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_SinglePhrase(t *testing.T) {
	m, err := New([]string{"free money"})
	require.NoError(t, err)
	assert.Equal(t, []string{"free money"}, m.Match("get free money now"))
}

func TestMatcher_MultiplePhrases(t *testing.T) {
	m, err := New([]string{"act now", "free money", "click here"})
	require.NoError(t, err)
	got := m.Match("free money! click here and act now")
	assert.Equal(t, []string{"free money", "click here", "act now"}, got)
}

func TestMatcher_RepeatedOccurrences(t *testing.T) {
	m, err := New([]string{"buy now"})
	require.NoError(t, err)
	assert.Equal(t, []string{"buy now", "buy now"}, m.Match("buy now, buy now"))
}

func TestMatcher_WholeWordsOnly(t *testing.T) {
	m, err := New([]string{"free money"})
	require.NoError(t, err)
	assert.Nil(t, m.Match("carefree moneybags"))
}

func TestMatcher_NoMatch(t *testing.T) {
	m, err := New([]string{"auth"})
	require.NoError(t, err)
	assert.Nil(t, m.Match("hello world"))
}

func TestMatcher_Rebuild(t *testing.T) {
	m, err := New([]string{"old phrase"})
	require.NoError(t, err)
	require.NoError(t, m.Rebuild([]string{"new phrase"}))

	assert.Nil(t, m.Match("old phrase"))
	assert.Equal(t, []string{"new phrase"}, m.Match("new phrase"))
	assert.Equal(t, 1, m.Len())
}

func TestMatcher_RejectsEmptyPhrase(t *testing.T) {
	_, err := New([]string{"ok", ""})
	assert.Error(t, err)
}

func TestMatcher_CaseSensitive(t *testing.T) {
	// Caller normalizes case before matching.
	m, err := New([]string{"free money"})
	require.NoError(t, err)
	assert.Nil(t, m.Match("FREE MONEY"))
}

func TestMatcher_Empty(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, m.Match("anything"))
}
