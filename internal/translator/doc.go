// Package translator wires capture, payload preparation and the backend exchange into the
// two operations exposed to user interfaces: toggling a recording and replaying the last
// translated audio.
package translator
