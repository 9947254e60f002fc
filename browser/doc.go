// Package browser connects wallet detection to a live browser page driven
// by playwright.
//
// Environment adapts a page to detector.Environment: idle requests run the
// page's requestIdleCallback and the page's DOMContentLoaded and load
// events are forwarded to detector listeners. PageWallet calls an injected
// wallet object through page evaluation, and GlobalProbe detects one by
// the name of its window global.
package browser
