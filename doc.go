// Package tes and its supporting packages implement the core of a
// Third Eye Scene client: the wire protocol (wire), typed vertex/index
// storage (buffer), the shape family (shape), mesh resources (mesh),
// file/network framing (stream, source), the scene coordinator
// (handler), bounds culling (bounds), settings (config), and the
// tesrec recording CLI (cmd/tesrec). See spec.md and SPEC_FULL.md for
// the protocol and behaviour this module implements.
package tes
