// internal/multiplayer/errors.go
package multiplayer

import "errors"

var (
	// ErrRoomNotFound indicates the requested room does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomNotJoinable indicates the room is no longer accepting players.
	ErrRoomNotJoinable = errors.New("room is not accepting players")

	// ErrRoomFull indicates the room is at capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrInvalidInviteCode indicates a wrong or missing code for a private room.
	ErrInvalidInviteCode = errors.New("invalid invite code")

	// ErrNotRoomOwner indicates the caller does not own the room.
	ErrNotRoomOwner = errors.New("only the room owner can do that")

	// ErrNotEnoughPlayers indicates a game needs at least two players.
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")

	// ErrNoChallengeAvailable indicates no active challenge matched the room filters.
	ErrNoChallengeAvailable = errors.New("no challenge available for room settings")

	// ErrInvalidRoomConfig indicates a bad name or player cap at creation.
	ErrInvalidRoomConfig = errors.New("invalid room configuration")

	// ErrNotInRoom indicates the caller is not a member of the room.
	ErrNotInRoom = errors.New("user is not in the room")

	// ErrNoHintsLeft indicates the room's hint allowance is exhausted.
	ErrNoHintsLeft = errors.New("no hints left")
)
