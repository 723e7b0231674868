// Package audio handles the audio formats used by the translator client.
// It implements the PCM buffer model, encoding of decoded audio into the canonical
// 16-bit PCM WAV container, and a MIME-keyed registry of decoders (WAV, raw PCM, Ogg/Opus).
package audio
