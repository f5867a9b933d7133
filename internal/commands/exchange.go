package commands

// ExchangeCommands is the topic exchange every cmd.* command is published
// and consumed on.
const ExchangeCommands = "audio_ops"
