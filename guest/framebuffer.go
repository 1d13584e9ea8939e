package guest

// FramebufferRegion is a (linear-memory offset, width, height) triple
// declared by a guest via host_set_framebuffer.
// Invariant: offset + 4*w*h <= current linear-memory size at the
// moment the host reads it; a violation is a guest fault, not a host
// fault, and the compositor simply skips the blit for that tick rather
// than trapping.
type FramebufferRegion struct {
	Offset uint32
	W, H   uint32
}

// ByteLength returns the number of RGBA bytes the region covers.
func (r FramebufferRegion) ByteLength() uint32 {
	return 4 * r.W * r.H
}

// Framebuffer re-resolves a previously registered region against the
// current memory snapshot and returns a borrowed pixel slice, or
// ok=false if the region is out of bounds (the guest grew or never grew
// into it, or shrank relative to a stale registration). The host never
// retains this slice across guest execution - it is materialized fresh
// on every call, per and §4.4's zero-copy-without-aliasing
// requirement.
func (g *Instance) Framebuffer() (pixels []byte, ok bool) {
	if g.fbRegion == nil {
		return nil, false
	}
	r := *g.fbRegion
	buf, err := g.bridge.ReadBytes(r.Offset, r.ByteLength())
	if err != nil {
		return nil, false
	}
	return buf, true
}
