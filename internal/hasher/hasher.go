package hasher

import (
	"context"
	"errors"
	"sync"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// ErrClosed is returned by Hash after Close has been called.
var ErrClosed = errors.New("hasher is closed")

type result struct {
	hash string
	err  error
}

type job struct {
	password []byte
	out      chan<- result
}

// Hasher hashes passwords with bcrypt on a fixed pool of workers so that
// concurrent registrations cannot saturate every CPU.
type Hasher struct {
	jobs chan job
	cost int

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New starts a Hasher with the given number of workers using bcrypt.DefaultCost.
func New(workers int) *Hasher {
	if workers < 1 {
		workers = 1
	}

	h := &Hasher{
		jobs: make(chan job),
		cost: bcrypt.DefaultCost,
		done: make(chan struct{}),
	}

	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go h.worker()
	}

	return h
}

func (h *Hasher) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case j := <-h.jobs:
			hash, err := bcrypt.GenerateFromPassword(j.password, h.cost)
			j.out <- result{hash: string(hash), err: err}
		}
	}
}

// Hash returns a salted bcrypt digest of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	out := make(chan result, 1)

	select {
	case <-h.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	case h.jobs <- job{password: []byte(password), out: out}:
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-out:
		if errors.Is(res.err, bcrypt.ErrPasswordTooLong) {
			return "", apperrors.ErrPasswordTooLong
		}
		return res.hash, res.err
	}
}

// Verify reports whether candidate matches hash. A malformed hash never matches.
func (h *Hasher) Verify(hash, candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		logger.Log.Warnw("password hash could not be compared", "error", err)
	}
	return err == nil
}

// Close stops the workers. Pending Hash calls return ErrClosed.
func (h *Hasher) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}
