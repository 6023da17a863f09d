// Package wire defines the closed sum types of inbound commands and
// outbound events that cross the Session Layer boundary (spec §6, §9
// "dynamic schema-less event payloads ... define a closed sum type").
//
// The envelope shape itself is a direct carry of the teacher's
// internal/message.go Message[T] generic: an {event, data} JSON
// object. Everything beyond the envelope is new, since the teacher's
// payloads belong to a drawing game, not a buzzer.
package wire

import (
	"encoding/json"

	"github.com/adabra/server/internal/room"
)

// Inbound is the raw envelope read off the socket before the event
// name is known to dispatch to a concrete payload type.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is a fully-materialized envelope ready to marshal and send.
type Outbound[T any] struct {
	Event string `json:"event"`
	Data  T      `json:"data"`
}

// Encode marshals an event name and payload into a wire frame. It is
// the one place broadcasting code turns a Go value into bytes, so a
// room's lock never needs to be held across json.Marshal.
func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Outbound[any]{Event: event, Data: data})
}

// Client -> Server event names (spec §6).
const (
	EvJoinRoom           = "joinRoom"
	EvRejoinRoom         = "rejoinRoom"
	EvSetTeam            = "setTeam"
	EvSetTeamName        = "setTeamName"
	EvPlayerFocus        = "playerFocus"
	EvBuzz               = "buzz"
	EvFalseStartAttempt  = "falseStartAttempt"
	EvHostSetTeamCount   = "hostSetTeamCount"
	EvHostSetDuration    = "hostSetDuration"
	EvHostNextRound      = "hostNextRound"
	EvHostBeepStart      = "hostBeepStart"
	EvHostPauseTimer     = "hostPauseTimer"
	EvHostCorrect        = "hostCorrect"
	EvHostIncorrect      = "hostIncorrect"
	EvHostAdjustScore    = "hostAdjustScore"
	EvHostSetFairPlay    = "hostSetFairPlay"
	EvHostUnblockFocus   = "hostUnblockFocus"
	EvHostRemoveTeam     = "hostRemoveTeam"
	EvHostEndRound       = "hostEndRound"
)

// Server -> Client event names (spec §6).
const (
	EvJoinedRoom    = "joinedRoom"
	EvTeamSet       = "teamSet"
	EvRoomState     = "roomState"
	EvBeep          = "beep"
	EvBuzzed        = "buzzed"
	EvBuzzRejected  = "buzzRejected"
	EvTimeUp        = "timeUp"
	EvCorrectFx     = "correctFx"
	EvKicked        = "kicked"
	EvErrorMsg      = "errorMsg"
)

// Inbound payloads (one struct per command that carries data; the
// data-less commands are dispatched on Event name alone).
type JoinRoomCmd struct {
	RoomCode string `json:"roomCode"`
	HostKey  string `json:"hostKey,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

type RejoinRoomCmd struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type SetTeamCmd struct {
	TeamID string `json:"teamId"`
}

type SetTeamNameCmd struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
}

type PlayerFocusCmd struct {
	Focused bool `json:"focused"`
}

type HostSetTeamCountCmd struct {
	Desired int `json:"desired"`
}

type HostSetDurationCmd struct {
	Seconds float64 `json:"seconds"`
}

type HostAdjustScoreCmd struct {
	TeamID string `json:"teamId"`
	Delta  int    `json:"delta"`
}

type HostSetFairPlayCmd struct {
	Enabled bool `json:"enabled"`
}

type HostUnblockFocusCmd struct {
	TeamID string `json:"teamId"`
}

type HostRemoveTeamCmd struct {
	TeamID string `json:"teamId"`
}

// Outbound payloads.
type JoinedRoomEvt struct {
	RoomCode string `json:"roomCode"`
	IsHost   bool   `json:"isHost"`
}

type TeamSetEvt struct {
	TeamID string `json:"teamId"`
	Locked bool   `json:"locked"`
}

type BuzzedEvt struct {
	TeamID   string `json:"teamId"`
	RoomCode string `json:"roomCode"`
}

type BuzzRejectedEvt struct {
	Reason room.RejectReason `json:"reason"`
}

type CorrectFxEvt struct {
	TeamID string `json:"teamId"`
}

type KickedEvt struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type ErrorMsgEvt struct {
	Message string `json:"message"`
}

const KickReasonRemovedByHost = "REMOVED_BY_HOST"
