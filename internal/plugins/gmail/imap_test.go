package gmail

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteEscapesDoubleQuotes(t *testing.T) {
	require.Equal(t, `"hello \"world\""`, quote(`hello "world"`))
}

func TestMessageIDFallsBackToDateAndFrom(t *testing.T) {
	msg := &mail.Message{Header: mail.Header{
		"Date": []string{"Mon, 1 Jan 2024 00:00:00 +0000"},
		"From": []string{"a@example.com"},
	}}
	require.Equal(t, "Mon, 1 Jan 2024 00:00:00 +0000a@example.com", messageID(msg))
}

func TestMessageIDPrefersMessageIdHeader(t *testing.T) {
	msg := &mail.Message{Header: mail.Header{
		"Message-Id": []string{"<abc123@mail.gmail.com>"},
	}}
	require.Equal(t, "abc123@mail.gmail.com", messageID(msg))
}
