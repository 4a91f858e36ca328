// Command ownership fingerprints content, checks it against the registered
// corpus and records ownership claims.
//
// Commands that touch the corpus (check, register) go through a running
// daemon when its socket answers and otherwise open the record store
// directly. `ownership daemon` runs the long-lived process in the foreground.
package main
