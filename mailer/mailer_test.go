package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderBoardInvite(t *testing.T) {
	t.Parallel()

	msg, err := RenderBoardInvite(BoardInvite{
		To:             "x@y.com",
		BoardName:      "Roadmap",
		AcceptLink:     "http://localhost:8080/invitations/accept?token=abc",
		ExpiresInHours: 48,
	})
	require.NoError(t, err)
	require.Equal(t, "x@y.com", msg.To)
	require.Equal(t, "Invitation to join board: Roadmap", msg.Subject)
	require.Contains(t, msg.Body, "Someone invited you")
	require.Contains(t, msg.Body, "/invitations/accept?token=abc")
	require.Contains(t, msg.Body, "48 hours")
}

func TestRenderAddedToBoard(t *testing.T) {
	t.Parallel()

	msg, err := RenderAddedToBoard(AddedToBoard{To: "x@y.com", BoardName: "Roadmap", AdderName: "Ann", BoardLink: "http://app/boards/1"})
	require.NoError(t, err)
	require.Equal(t, "You've been added to board: Roadmap", msg.Subject)
	require.Contains(t, msg.Body, "Ann added you")
}

func TestLogMailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, l.SendBoardInvite(context.Background(), BoardInvite{To: "x@y.com", BoardName: "B"}))
	require.Contains(t, buf.String(), "Invitation to join board: B")
}

func TestNewSMTP(t *testing.T) {
	t.Parallel()

	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@example.com"})
	require.NoError(t, err)
	require.Equal(t, "noreply@example.com", s.from)

	_, err = NewSMTP(SMTPConfig{Host: "", Port: 25})
	require.Error(t, err)
}
