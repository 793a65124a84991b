package scheduler

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Pool bounds how many units of work are in flight at once. Units carry
// no ordering or priority; every unit settles before Wait returns.
// Panics and errors are contained per unit so one bad account cannot
// abort the rest of the batch.
type Pool struct {
	g *errgroup.Group
}

func NewPool(limit int) *Pool {
	g := new(errgroup.Group)
	g.SetLimit(limit)
	return &Pool{g: g}
}

func (p *Pool) Go(fn func() error) {
	p.g.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("work unit panicked")
			}
		}()
		if err := fn(); err != nil {
			log.Error().Err(err).Msg("work unit failed")
		}
		return nil
	})
}

// Wait blocks until every submitted unit has settled.
func (p *Pool) Wait() {
	_ = p.g.Wait()
}
