package view

import "sync"

// VisibilityToggle applies the same pending/rollback discipline as the
// rating control to a playlist's public flag. A failed request leaves
// IsPublic at its pre-request value.
type VisibilityToggle struct {
	mu      sync.Mutex
	public  bool
	pending bool
	gen     uint64
}

func NewVisibilityToggle(public bool) *VisibilityToggle {
	return &VisibilityToggle{public: public}
}

type VisibilityPending struct {
	vt   *VisibilityToggle
	gen  uint64
	done bool
	prev bool

	// Target is the value the request should persist.
	Target bool
}

// Begin flips the flag optimistically and returns the pending request, or
// ErrToggleBusy while one is already outstanding.
func (vt *VisibilityToggle) Begin() (*VisibilityPending, error) {
	vt.mu.Lock()
	defer vt.mu.Unlock()

	if vt.pending {
		return nil, ErrToggleBusy
	}

	p := &VisibilityPending{
		vt:   vt,
		gen:  vt.gen,
		prev: vt.public,
	}

	vt.public = !vt.public
	vt.pending = true
	p.Target = vt.public

	return p, nil
}

func (p *VisibilityPending) Resolve(err error) bool {
	p.vt.mu.Lock()
	defer p.vt.mu.Unlock()

	if p.done {
		return false
	}
	p.done = true

	if p.gen != p.vt.gen {
		return false
	}

	p.vt.pending = false
	if err != nil {
		p.vt.public = p.prev
	}

	return true
}

func (vt *VisibilityToggle) Invalidate() {
	vt.mu.Lock()
	vt.gen++
	vt.pending = false
	vt.mu.Unlock()
}

func (vt *VisibilityToggle) IsPublic() bool {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	return vt.public
}
