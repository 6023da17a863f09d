package session

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/adabra/server/internal/hub"
	"github.com/adabra/server/internal/room"
	"github.com/adabra/server/internal/wire"
)

// decode is a small helper around json.Unmarshal that turns a decode
// failure into the same errorMsg path as any other bad command.
func (s *Session) decode(raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		s.sendError("malformed payload")
		return false
	}
	return true
}

// broadcastState encodes and fans out the full public snapshot. Called
// after every mutating transition, per spec §6: "After any mutating
// transition, the Session Layer emits to all subscribers of the room
// the full public view".
func (s *Session) broadcastState() {
	r := s.roomHub.Room
	r.Mu.Lock()
	view := r.View()
	r.Mu.Unlock()

	frame, err := wire.Encode(wire.EvRoomState, view)
	if err != nil {
		return
	}
	s.roomHub.Broadcast(frame)
}

func (s *Session) broadcastEvent(event string, data any) {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return
	}
	s.roomHub.Broadcast(frame)
}

// handleJoinRoom implements spec §4.4 joinRoom: attach this connection
// to a room, optionally claiming host authority via hostKey, and
// optionally resuming a prior identity via playerId.
func (s *Session) handleJoinRoom(raw json.RawMessage) {
	var cmd wire.JoinRoomCmd
	if !s.decode(raw, &cmd) {
		return
	}
	h, ok := s.registry.GetRoom(cmd.RoomCode)
	if !ok {
		s.sendError("room " + cmd.RoomCode + " does not exist")
		return
	}

	playerID := cmd.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	r := h.Room
	r.Mu.Lock()
	if r.KickedPlayers[playerID] {
		r.Mu.Unlock()
		s.sendEvent(wire.EvKicked, wire.KickedEvt{RoomCode: r.RoomCode, Reason: wire.KickReasonRemovedByHost})
		return
	}
	isHost := cmd.HostKey != "" && cmd.HostKey == r.HostKey
	boundTeam, alreadyBound := r.PlayerTeams[playerID]
	r.Touch(s.clock())
	r.Mu.Unlock()

	s.playerID = playerID
	s.isHost = isHost
	s.roomHub = h
	h.Subscribe(s)

	s.sendEvent(wire.EvJoinedRoom, wire.JoinedRoomEvt{RoomCode: r.RoomCode, IsHost: isHost})
	if alreadyBound {
		s.sendEvent(wire.EvTeamSet, wire.TeamSetEvt{TeamID: boundTeam, Locked: true})
	}
	s.broadcastState()
}

// handleRejoinRoom is the explicit reconnect path (spec §4.4
// rejoinRoom): identical wiring to joinRoom minus host-key handshake,
// since a rejoining host reconnects through the same join path with
// its key instead.
func (s *Session) handleRejoinRoom(raw json.RawMessage) {
	var cmd wire.RejoinRoomCmd
	if !s.decode(raw, &cmd) {
		return
	}
	h, ok := s.registry.GetRoom(cmd.RoomCode)
	if !ok {
		s.sendError("room " + cmd.RoomCode + " does not exist")
		return
	}

	r := h.Room
	r.Mu.Lock()
	if r.KickedPlayers[cmd.PlayerID] {
		r.Mu.Unlock()
		s.sendEvent(wire.EvKicked, wire.KickedEvt{RoomCode: r.RoomCode, Reason: wire.KickReasonRemovedByHost})
		return
	}
	boundTeam, alreadyBound := r.PlayerTeams[cmd.PlayerID]
	r.Touch(s.clock())
	r.Mu.Unlock()

	s.playerID = cmd.PlayerID
	s.isHost = false
	s.roomHub = h
	h.Subscribe(s)

	s.sendEvent(wire.EvJoinedRoom, wire.JoinedRoomEvt{RoomCode: r.RoomCode, IsHost: false})
	if alreadyBound {
		s.sendEvent(wire.EvTeamSet, wire.TeamSetEvt{TeamID: boundTeam, Locked: true})
	}
	s.broadcastState()
}

func (s *Session) handleSetTeam(raw json.RawMessage) {
	var cmd wire.SetTeamCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.SetTeam(s.playerID, cmd.TeamID)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.sendEvent(wire.EvTeamSet, wire.TeamSetEvt{TeamID: cmd.TeamID, Locked: false})
	s.broadcastState()
}

func (s *Session) handleSetTeamName(raw json.RawMessage) {
	var cmd wire.SetTeamNameCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.SetTeamName(s.playerID, cmd.TeamID, cmd.Name)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handlePlayerFocus(raw json.RawMessage) {
	var cmd wire.PlayerFocusCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	r.PlayerFocus(s.playerID, cmd.Focused, s.clock())
	r.Mu.Unlock()
	s.broadcastState()
}

// handleBuzz covers both "buzz" and "falseStartAttempt": per the
// decision recorded in DESIGN.md, a false-start attempt is routed
// through the identical PlayerBuzz transition and the phase itself
// (not the event name) decides whether it is a lockout or a real buzz.
// Only the armed -> locked path is a real buzz-in: a lobby false start
// is accepted (the team is barred for the round) but must not emit
// `buzzed`, since the room never left lobby and nobody is answering.
func (s *Session) handleBuzz() {
	r := s.roomHub.Room
	r.Mu.Lock()
	outcome := r.PlayerBuzz(s.playerID, s.clock())
	teamID := r.PlayerTeams[s.playerID]
	r.Mu.Unlock()

	if !outcome.Accepted {
		s.sendEvent(wire.EvBuzzRejected, wire.BuzzRejectedEvt{Reason: outcome.Reason})
		return
	}
	if outcome.Locked {
		s.broadcastEvent(wire.EvBuzzed, wire.BuzzedEvt{TeamID: teamID, RoomCode: s.roomHub.Room.RoomCode})
	}
	s.broadcastState()
}

func (s *Session) requireHost() bool {
	if !s.isHost {
		s.sendError(room.ErrNotHost.Error())
		return false
	}
	return true
}

func (s *Session) handleHostSetTeamCount(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostSetTeamCountCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostSetTeamCount(cmd.Desired)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handleHostSetDuration(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostSetDurationCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostSetDuration(cmd.Seconds)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

// handleHostSimple dispatches the host commands that take no payload
// beyond the implicit nowMs, sharing one path for hostNextRound,
// hostPauseTimer, and hostIncorrect.
func (s *Session) handleHostSimple(fn func(*room.Room, int64) error) {
	if !s.requireHost() {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := fn(r, s.clock())
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handleHostBeepStart() {
	if !s.requireHost() {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostBeepStart(s.clock())
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastEvent(wire.EvBeep, struct{}{})
	s.broadcastState()
}

func (s *Session) handleHostCorrect() {
	if !s.requireHost() {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	teamID := r.LockedByTeamID
	err := r.HostCorrect(s.clock())
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastEvent(wire.EvCorrectFx, wire.CorrectFxEvt{TeamID: teamID})
	s.broadcastState()
}

func (s *Session) handleHostAdjustScore(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostAdjustScoreCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostAdjustScore(cmd.TeamID, cmd.Delta)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handleHostSetFairPlay(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostSetFairPlayCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostSetFairPlay(cmd.Enabled)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handleHostUnblockFocus(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostUnblockFocusCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostUnblockFocus(cmd.TeamID)
	if err == nil {
		r.Touch(s.clock())
	}
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func (s *Session) handleHostRemoveTeam(raw json.RawMessage) {
	if !s.requireHost() {
		return
	}
	var cmd wire.HostRemoveTeamCmd
	if !s.decode(raw, &cmd) {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	kickedPlayerID, err := r.HostRemoveTeam(cmd.TeamID, s.clock())
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if kickedPlayerID != "" {
		s.roomHub.SendToPlayer(kickedPlayerID, mustEncode(wire.EvKicked, wire.KickedEvt{
			RoomCode: r.RoomCode,
			Reason:   wire.KickReasonRemovedByHost,
		}))
		s.roomHub.KickPlayer(kickedPlayerID)
	}
	s.broadcastState()
}

func (s *Session) handleHostEndRound() {
	if !s.requireHost() {
		return
	}
	r := s.roomHub.Room
	r.Mu.Lock()
	err := r.HostEndRound(s.clock())
	r.Mu.Unlock()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.broadcastState()
}

func mustEncode(event string, data any) []byte {
	frame, err := wire.Encode(event, data)
	if err != nil {
		return nil
	}
	return frame
}

var _ hub.Sink = (*Session)(nil)
