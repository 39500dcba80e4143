package labsdk

import (
	"context"
	"sync"

	"github.com/aussiebroadwan/labdesk/pkg/slogx"
)

// recovery tracks the one session recovery flow allowed at a time. done is
// the in-flight flow's completion signal; every trigger that arrives while it
// is set joins that flow instead of starting another.
type recovery struct {
	mu   sync.Mutex
	done chan struct{}
}

// start runs fn in the background unless a flow is already running, and
// reports whether this call started it.
func (r *recovery) start(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return false
	}

	done := make(chan struct{})
	r.done = done

	go func() {
		defer func() {
			r.mu.Lock()
			r.done = nil
			r.mu.Unlock()
			close(done)
		}()
		fn()
	}()

	return true
}

func (r *recovery) wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startRecovery begins the token-expiry flow: ask the user, then log out and
// go to the login screen whatever they answer.
func (c *Client) startRecovery(ctx context.Context) {
	// The flow outlives the failed call but keeps its logger.
	ctx = context.WithoutCancel(ctx)
	log := slogx.FromContext(ctx)

	started := c.recovery.start(func() {
		relogin, err := c.prompter().Confirm(ctx, Prompt{
			Title:        "Notice",
			Message:      msgSessionExpired,
			ConfirmLabel: "Log in again",
			CancelLabel:  "Cancel",
		})
		if err != nil {
			log.Warn("session expiry prompt failed", "err", err)
		}
		log.Info("session expired", "relogin", relogin)

		if c.session != nil {
			c.session.Logout(ctx)
		}
		if c.Navigator != nil {
			if err := c.Navigator.Replace(ctx, LoginRoute); err != nil {
				log.Warn("redirect to login failed", "err", err)
			}
		}
	})

	if !started {
		log.Debug("session recovery already in progress")
	}
}
