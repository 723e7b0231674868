// Package playback plays audio clips addressed as data URIs.
// Playback is always best-effort: callers log failures and carry on.
package playback
