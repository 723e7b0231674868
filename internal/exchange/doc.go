// Package exchange sends encoded audio payloads to the translator backend and interprets the reply.
//
// Client performs the POST {base}/speech/translate round trip. Exchange layers the user-facing
// behavior on top: it renders the transcript and translation through a Display, plays any
// synthesized audio and keeps it for later replay.
package exchange
