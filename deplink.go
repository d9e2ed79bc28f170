package deplink

// Version is the engine version, reported by the CLI.
const Version = "0.1.0"
