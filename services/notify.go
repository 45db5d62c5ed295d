package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/utils"
)

const mailTimeout = 30 * time.Second

// Broadcaster publishes board events to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, boardID uint, ev realtime.Event)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, uint, realtime.Event) {}

// Notifier sends emails off the request path. Failures are logged, never
// returned and never retried.
type Notifier struct {
	mailer mailer.Mailer
	wg     sync.WaitGroup
}

func NewNotifier(m mailer.Mailer) *Notifier {
	return &Notifier{mailer: m}
}

func (n *Notifier) BoardInvite(ctx context.Context, msg mailer.BoardInvite) {
	n.dispatch(ctx, "board-invite", msg.To, func(ctx context.Context) error {
		return n.mailer.SendBoardInvite(ctx, msg)
	})
}

func (n *Notifier) AddedToBoard(ctx context.Context, msg mailer.AddedToBoard) {
	n.dispatch(ctx, "added-to-board", msg.To, func(ctx context.Context) error {
		return n.mailer.SendAddedToBoard(ctx, msg)
	})
}

func (n *Notifier) dispatch(ctx context.Context, template, to string, send func(context.Context) error) {
	log := utils.LoggerFrom(ctx)
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			log.Error("email dispatch failed",
				slog.String("template", template),
				slog.String("to", to),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until every in-flight email has been attempted.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
