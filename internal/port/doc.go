// Package port finds a free TCP port for the bundler's dev server and the
// static file server.
//
// The algorithm is sequential probing:
//
//	preferred, preferred+1, preferred+2, ... (at most limit candidates)
//
// Each candidate is probed by binding a listener and closing it again, so
// the answer comes from the operating system itself. The port is not kept
// reserved: the delegated process binds it a moment later, and the OS
// reclaims it when that process exits.
package port
