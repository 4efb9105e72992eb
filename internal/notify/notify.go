// Package notify defines the outbound notification contract. Actual email
// delivery lives outside this service; the engine only decides when a
// notification is due and hands it off.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Dispatcher sends authentication-failure notifications. attempt is
// 1-indexed and never exceeds 3.
type Dispatcher interface {
	SendAuthNotification(ctx context.Context, destinationEmail string, attempt int) error
}

// LogDispatcher is the default Dispatcher: it records the notification in
// the log and nothing else. Useful for development and as a stand-in when
// no mail relay is wired up.
type LogDispatcher struct {
	Logger zerolog.Logger
}

func (d *LogDispatcher) SendAuthNotification(_ context.Context, destinationEmail string, attempt int) error {
	d.Logger.Info().
		Str("email", destinationEmail).
		Int("attempt", attempt).
		Msg("Auth notification due (no dispatcher configured, logging only)")
	return nil
}
