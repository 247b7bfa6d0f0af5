/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ghosts

// Holder identifies whoever holds a ghost name.
type Holder struct {
	First  string `json:"first" yaml:"first" toml:"first"`
	Family string `json:"family" yaml:"family" toml:"family"`
	Email  string `json:"email" yaml:"email" toml:"email"`
}

// Record is one slot in the pool. Name is fixed at load time; the holder
// fields and Taken change with every claim and release.
type Record struct {
	Name   string
	Holder Holder
	Taken  bool
}

func (r *Record) claim(h Holder) {
	r.Holder = h
	r.Taken = true
}

func (r *Record) release() {
	r.Holder = Holder{}
	r.Taken = false
}
