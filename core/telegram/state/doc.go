// Package state keeps per-user dialogue sessions in memory.
//
// A session records which flow a user is in, the current step, the answers
// collected so far and the id of the last prompt the bot sent. Updates for
// the same user are serialized so two quick messages cannot both advance
// from the same step.
package state
