// Package payload turns a captured blob into the base64 audio payload sent to the translator.
// Audio is normalized to 16-bit PCM WAV when a decoder exists for its MIME type; any failure
// falls back to the original bytes with their original type.
package payload
