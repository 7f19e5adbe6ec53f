// Command gridbuf-demo runs Conway's Game of Life on a shared grid, with one goroutine computing
// generations and several renderers copying published frames into transfer buffers, the way a
// display loop would before uploading them. It doesn't display anything; it reports what the
// renderers saw.
package main

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"honnef.co/go/gridbuf"
	"honnef.co/go/gridbuf/grid"
	"honnef.co/go/gridbuf/life"
	"honnef.co/go/gridbuf/pixel"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	cfg, err := loadConfig(os.Args[0], os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	st, err := run(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	st.print(cfg)
}

// ticker calls fn every interval until ctx is done.
func ticker(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

type renderStats struct {
	// Frames rendered, including repeats of an unchanged frame.
	Frames int
	// Distinct generations seen.
	Generations int
	// Last alive count.
	Alive int
}

type stats struct {
	Generations uint64
	Alive       int
	Renderers   []renderStats
}

var (
	colorAlive = pixel.PackRGBA(0xff, 0xff, 0xff, 0xff)
	colorDead  = pixel.PackRGBA(0x00, 0x00, 0x00, 0xff)
)

// renderer is one display loop. It keeps its own transfer buffer, which is the only state that
// outlives a Render call. Generation 0 is the unseeded grid and is never rendered.
type renderer struct {
	h        gridbuf.Handle[uint8]
	cells    []uint8
	transfer []pixel.RGBA
	lastGen  uint64
	stats    renderStats
}

func newRenderer(h gridbuf.Handle[uint8]) *renderer {
	n := h.Width() * h.Height()
	return &renderer{
		h:        h,
		cells:    make([]uint8, n),
		transfer: make([]pixel.RGBA, n),
	}
}

func (r *renderer) frame() {
	r.stats.Frames++
	gen := r.h.Generation()
	if gen == r.lastGen {
		return
	}
	r.h.Render(func(v grid.View[uint8]) {
		v.CopyTo(r.cells)
	})
	// Conversion happens outside of Render; the visitor only copies.
	alive := 0
	for i, c := range r.cells {
		if c == life.Alive {
			r.transfer[i] = colorAlive
			alive++
		} else {
			r.transfer[i] = colorDead
		}
	}
	r.lastGen = gen
	r.stats.Generations++
	r.stats.Alive = alive
}

func run(ctx context.Context, cfg Config) (*stats, error) {
	h := gridbuf.New[uint8](cfg.Width, cfg.Height)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	h.Update(func(g *grid.Grid[uint8]) { life.Seed(g, rng, cfg.Density) })

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	// The only writer.
	eg.Go(func() error {
		ticker(ctx, cfg.Tick, func() { h.UpdateFrom(life.Step) })
		return nil
	})

	renderers := make([]*renderer, cfg.Readers)
	for i := range renderers {
		r := newRenderer(h.Clone())
		renderers[i] = r
		eg.Go(func() error {
			ticker(ctx, cfg.Frame, r.frame)
			return nil
		})
	}

	eg.Go(func() error {
		p := message.NewPrinter(language.English)
		ticker(ctx, cfg.Report, func() {
			var alive int
			h.Render(func(v grid.View[uint8]) { alive = life.AliveCount(v) })
			log.Print(p.Sprintf("generation %d: %d alive", h.Generation(), alive))
		})
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	st := &stats{Generations: h.Generation()}
	h.Render(func(v grid.View[uint8]) { st.Alive = life.AliveCount(v) })
	for _, r := range renderers {
		st.Renderers = append(st.Renderers, r.stats)
	}
	return st, nil
}

func (st *stats) print(cfg Config) {
	p := message.NewPrinter(language.English)
	log.Print(p.Sprintf("%dx%d grid, %v: %d generations, %d alive",
		cfg.Width, cfg.Height, cfg.Duration, st.Generations, st.Alive))
	for i, r := range st.Renderers {
		log.Print(p.Sprintf("renderer %d: %d frames, %d distinct generations, %d alive in last frame",
			i, r.Frames, r.Generations, r.Alive))
	}
}
