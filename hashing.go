package fangauth

import "context"

// acquireHashSlot blocks until a PBKDF2 slot is free or ctx is done.
func (e *Engine) acquireHashSlot(ctx context.Context) (release func(), err error) {
	select {
	case e.hashSlots <- struct{}{}:
		return func() { <-e.hashSlots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) verifyPassword(ctx context.Context, pw, stored string) (bool, error) {
	release, err := e.acquireHashSlot(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	return e.hasher.Verify(pw, stored), nil
}

func (e *Engine) hashPassword(ctx context.Context, pw string) (string, error) {
	release, err := e.acquireHashSlot(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return e.hasher.Hash(pw)
}

// HashSlotsInUse reports how many password derivations are running right now.
func (e *Engine) HashSlotsInUse() int {
	if e == nil {
		return 0
	}
	return len(e.hashSlots)
}
