// Package detector polls for an injected capability, typically a browser
// wallet object, until it appears or a timeout elapses.
//
// A Detector probes once right away, again on every idle slot the
// Environment offers, and on the DOMContentLoaded and load lifecycle
// events when the page has not reached them yet. Whichever attempt
// succeeds first wins: the value is stored, every pending probe is torn
// down and the detect signal fires exactly once.
//
//	d := detector.New(func() (Wallet, bool) { return lookup() },
//		detector.WithTimeout(5*time.Second))
//	d.OnDetect(func() { ... })
package detector
