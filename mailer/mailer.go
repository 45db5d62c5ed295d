// Package mailer sends the plain-text board notification emails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// Mailer is the notification sink used by board and invitation flows.
type Mailer interface {
	SendBoardInvite(ctx context.Context, msg BoardInvite) error
	SendAddedToBoard(ctx context.Context, msg AddedToBoard) error
}

type BoardInvite struct {
	To             string
	BoardName      string
	InviterName    string
	AcceptLink     string
	ExpiresInHours int
}

type AddedToBoard struct {
	To        string
	BoardName string
	AdderName string
	BoardLink string
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

var boardInviteTmpl = template.Must(template.New("board-invite").Parse(
	`Hello,

{{.InviterName}} invited you to join the board "{{.BoardName}}".

Accept the invitation:
{{.AcceptLink}}

This link expires in {{.ExpiresInHours}} hours. If you were not expecting this email you can ignore it.
`))

var addedToBoardTmpl = template.Must(template.New("added-to-board").Parse(
	`Hello,

{{.AdderName}} added you to the board "{{.BoardName}}".

Open the board:
{{.BoardLink}}
`))

func RenderBoardInvite(m BoardInvite) (Message, error) {
	if m.InviterName == "" {
		m.InviterName = "Someone"
	}
	body, err := render(boardInviteTmpl, m)
	if err != nil {
		return Message{}, err
	}
	return Message{To: m.To, Subject: "Invitation to join board: " + m.BoardName, Body: body}, nil
}

func RenderAddedToBoard(m AddedToBoard) (Message, error) {
	if m.AdderName == "" {
		m.AdderName = "Someone"
	}
	body, err := render(addedToBoardTmpl, m)
	if err != nil {
		return Message{}, err
	}
	return Message{To: m.To, Subject: "You've been added to board: " + m.BoardName, Body: body}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
