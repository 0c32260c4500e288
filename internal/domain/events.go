package domain

// Event names published to channel subscribers. Payloads are JSON objects;
// the websocket envelope is {"event": <name>, "channel_id": <id>, "payload": <payload>, "ts": <time>}.
const (
	EventSessionStarted  = "session.started"
	EventSessionStopped  = "session.stopped"
	EventSessionPaused   = "session.paused"
	EventSessionResumed  = "session.resumed"
	EventPlayerJoined    = "player.joined"
	EventPlayerLeft      = "player.left"
	EventSpectatorJoined = "spectator.joined"
	EventSpectatorLeft   = "spectator.left"
	EventGameLoaded      = "game.loaded"
	EventStateSaved      = "state.saved"
	EventStateLoaded     = "state.loaded"
	EventInput           = "input"
	EventEmulatorCommand = "emulator.command"
)
