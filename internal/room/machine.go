package room

import "strings"

// Every function below assumes the caller already holds r.Mu for the
// entire read-mutate-touch sequence (spec §5: "hold the lock from the
// first read to the broadcast"). None of them perform I/O; the caller
// is responsible for snapshotting r.View() and broadcasting after
// releasing the lock.

// clearRoundState clears the per-round bookkeeping that hostBeepStart
// and hostNextRound both reset (spec §4.2 table).
func (r *Room) clearRoundState() {
	r.LockedOutTeams = make(map[string]bool)
	r.FalseStartTeams = make(map[string]bool)
	r.FocusLockedTeams = make(map[string]bool)
	r.LastBuzz = nil
	r.FirstBuzzTeamID = ""
	r.LockedByPlayerID = ""
	r.LockedByTeamID = ""
}

// HostBeepStart arms the round: lobby -> armed.
func (r *Room) HostBeepStart(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	r.clearRoundState()
	r.RemainingMs = r.DurationMs
	r.TimerRunning = true
	r.TimerLastTickAt = nowMs
	r.TimeUpAt = 0
	r.Phase = PhaseArmed
	r.Touch(nowMs)
	return nil
}

// BuzzOutcome describes whether a player buzz changed room state, for
// the session layer to decide which events to emit.
type BuzzOutcome struct {
	Accepted bool
	Locked   bool         // true only for the armed -> locked path; false for a lobby false start
	Reason   RejectReason // meaningful only when !Accepted
}

// PlayerBuzz applies a buzz attempt from playerID (bound to teamID).
// It implements both the lobby false-start path and the armed
// first-buzz-wins path of spec §4.2's transition table.
func (r *Room) PlayerBuzz(playerID string, nowMs int64) BuzzOutcome {
	if r.KickedPlayers[playerID] {
		return BuzzOutcome{Reason: RejectKicked}
	}
	teamID, hasTeam := r.PlayerTeams[playerID]
	if !hasTeam {
		return BuzzOutcome{Reason: RejectNoTeam}
	}

	switch r.Phase {
	case PhaseLobby:
		// False start: barred for the round, but state stays lobby.
		r.LockedOutTeams[teamID] = true
		r.FalseStartTeams[teamID] = true
		r.Touch(nowMs)
		return BuzzOutcome{Accepted: true}

	case PhaseArmed:
		if r.LockedOutTeams[teamID] {
			return BuzzOutcome{Reason: RejectTeamLockedOut}
		}
		if r.FairPlayEnabled && r.FocusLockedTeams[teamID] {
			return BuzzOutcome{Reason: RejectFocusLocked}
		}
		if r.RemainingMs <= 0 {
			return BuzzOutcome{Reason: RejectTimeUp}
		}

		r.LockedByPlayerID = playerID
		r.LockedByTeamID = teamID
		r.LastBuzz = &Buzz{By: playerID, TeamID: teamID}
		if r.FirstBuzzTeamID == "" {
			r.FirstBuzzTeamID = teamID
		}
		r.TimerRunning = false
		r.Phase = PhaseLocked
		r.Touch(nowMs)
		return BuzzOutcome{Accepted: true, Locked: true}

	default: // locked
		return BuzzOutcome{Reason: RejectNotArmed}
	}
}

// HostPauseTimer implements the "true pause" decision recorded in
// DESIGN.md for spec §9's open question: it resets remainingMs to
// durationMs and forces the round back to lobby.
func (r *Room) HostPauseTimer(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	if r.Phase != PhaseArmed {
		return ErrWrongPhase
	}
	r.clearRoundState()
	r.RemainingMs = r.DurationMs
	r.TimerRunning = false
	r.Phase = PhaseLobby
	r.Touch(nowMs)
	return nil
}

// Tick advances the countdown by the wall-clock delta and reports
// whether the round just expired. The Timer Service calls this once
// per room per 200ms tick while TimerRunning is true (spec §4.3).
func (r *Room) Tick(nowMs int64) (timedUp bool) {
	if !r.TimerRunning {
		return false
	}
	delta := nowMs - r.TimerLastTickAt
	if delta < 0 {
		delta = 0
	}
	r.RemainingMs -= delta
	if r.RemainingMs < 0 {
		r.RemainingMs = 0
	}
	r.TimerLastTickAt = nowMs

	if r.RemainingMs == 0 {
		r.TimerRunning = false
		r.TimeUpAt = nowMs
		r.clearRoundState()
		r.Phase = PhaseLobby
		r.Touch(nowMs)
		return true
	}
	return false
}

// HostCorrect awards the point and advances the round: locked -> lobby.
func (r *Room) HostCorrect(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	if r.Phase != PhaseLocked {
		return ErrWrongPhase
	}
	teamID := r.LockedByTeamID
	if t, ok := r.Teams[teamID]; ok {
		t.Score++
	}
	r.RoundNumber++
	r.clearRoundState()
	r.RemainingMs = r.DurationMs
	r.TimerRunning = false
	r.Phase = PhaseLobby
	r.Touch(nowMs)
	return nil
}

// HostIncorrect bars the answering team and resumes the clock:
// locked -> armed.
func (r *Room) HostIncorrect(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	if r.Phase != PhaseLocked {
		return ErrWrongPhase
	}
	if r.LockedByTeamID != "" {
		r.LockedOutTeams[r.LockedByTeamID] = true
	}
	r.LockedByPlayerID = ""
	r.LockedByTeamID = ""
	r.Phase = PhaseArmed
	if r.RemainingMs > 0 {
		r.TimerRunning = true
		r.TimerLastTickAt = nowMs
	} else {
		r.TimerRunning = false
	}
	r.Touch(nowMs)
	return nil
}

// HostNextRound forces a fresh round from any non-terminal phase.
func (r *Room) HostNextRound(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	r.RoundNumber++
	r.clearRoundState()
	r.RemainingMs = r.DurationMs
	r.TimerRunning = false
	r.TimeUpAt = 0
	r.Phase = PhaseLobby
	r.Touch(nowMs)
	return nil
}

// HostEndRound ends the game, computing the winner(s) by max score.
func (r *Room) HostEndRound(nowMs int64) error {
	if r.GameOver {
		return ErrGameOver
	}
	r.clearRoundState()
	r.TimerRunning = false
	r.Phase = PhaseLobby
	r.GameOver = true

	best := -1
	var leaders []string
	for _, id := range r.TeamOrder {
		t, ok := r.Teams[id]
		if !ok {
			continue
		}
		switch {
		case t.Score > best:
			best = t.Score
			leaders = []string{id}
		case t.Score == best:
			leaders = append(leaders, id)
		}
	}
	if len(leaders) == 1 {
		r.WinnerTeamID = leaders[0]
	} else if len(leaders) > 1 {
		names := make([]string, 0, len(leaders))
		for _, id := range leaders {
			if t, ok := r.Teams[id]; ok {
				names = append(names, t.Name)
			}
		}
		r.WinnerText = "Tie: " + strings.Join(names, ", ")
	}
	r.Touch(nowMs)
	return nil
}

// SetTeam claims a team for a player. Idempotent: calling it again
// with the same team is a no-op; calling it with a different team
// once already bound is ignored (spec §8 round-trip property).
func (r *Room) SetTeam(playerID, teamID string) error {
	if r.KickedPlayers[playerID] {
		return ErrKicked
	}
	if !r.HasTeam(teamID) {
		return ErrUnknownTeam
	}
	if existing, ok := r.PlayerTeams[playerID]; ok {
		if existing == teamID {
			return nil
		}
		return nil // ignored: already bound to a different team
	}
	if owner, taken := r.TeamTaken[teamID]; taken && owner != playerID {
		return ErrTeamAlreadyTaken
	}
	r.PlayerTeams[playerID] = teamID
	r.TeamTaken[teamID] = playerID
	return nil
}

// cleanName collapses internal whitespace runs to single spaces and
// trims the ends, per spec §4.4 setTeamName constraints.
func cleanName(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// SetTeamName renames a team exactly once per room lifetime.
func (r *Room) SetTeamName(playerID, teamID, rawName string) error {
	if !r.OwnsTeam(playerID, teamID) {
		return ErrNoTeam
	}
	if r.TeamNameLocked[teamID] {
		return ErrNameLocked
	}
	name := cleanName(rawName)
	if len(name) < MinTeamNameLen || len(name) > MaxTeamNameLen {
		return ErrNameLength
	}
	t, ok := r.Teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	t.Name = name
	r.TeamNameLocked[teamID] = true
	return nil
}

// PlayerFocus records a FairPlay focus-loss event. Only a loss of
// focus ever locks a team; regaining focus has no effect and must be
// cleared explicitly by the host (spec §4.2 FairPlay note).
func (r *Room) PlayerFocus(playerID string, focused bool, nowMs int64) {
	if focused {
		return
	}
	if !r.FairPlayEnabled {
		return
	}
	if r.Phase != PhaseArmed && r.Phase != PhaseLocked {
		return
	}
	teamID, ok := r.PlayerTeams[playerID]
	if !ok {
		return
	}
	r.FocusLockedTeams[teamID] = true
	r.Touch(nowMs)
}

// HostSetTeamCount appends default-named teams up to desired. A
// request equal to the current count is a no-op; a request below it
// is rejected with ErrTeamCountLower.
func (r *Room) HostSetTeamCount(desired int) error {
	if r.GameOver {
		return ErrGameOver
	}
	if desired < MinTeams || desired > MaxTeams {
		return ErrTeamCountRange
	}
	current := len(r.TeamOrder)
	if desired < current {
		return ErrTeamCountLower
	}
	for i := current + 1; i <= desired; i++ {
		id := intToTeamID(i)
		r.addDefaultTeam(id, defaultTeamName(i))
	}
	return nil
}

func intToTeamID(i int) string {
	return string(rune('0' + i))
}

func defaultTeamName(i int) string {
	return "Team " + intToTeamID(i)
}

// HostSetDuration updates the configured round length. remainingMs is
// only touched when the timer is not currently running, per spec §4.4.
func (r *Room) HostSetDuration(seconds float64) error {
	if r.GameOver {
		return ErrGameOver
	}
	if seconds <= 0 || seconds > 600 {
		return ErrDurationRange
	}
	ms := int64(seconds * 1000)
	if ms < MinDurationMs {
		ms = MinDurationMs
	}
	if ms > MaxDurationMs {
		ms = MaxDurationMs
	}
	r.DurationMs = ms
	if !r.TimerRunning {
		r.RemainingMs = ms
	}
	return nil
}

// HostAdjustScore applies a bounded delta to a team's score.
func (r *Room) HostAdjustScore(teamID string, delta int) error {
	if r.GameOver {
		return ErrGameOver
	}
	if delta < MinScoreDelta || delta > MaxScoreDelta {
		return ErrScoreDeltaRange
	}
	t, ok := r.Teams[teamID]
	if !ok {
		return ErrUnknownTeam
	}
	t.Score += delta
	return nil
}

// HostSetFairPlay toggles the FairPlay policy.
func (r *Room) HostSetFairPlay(enabled bool) error {
	if r.GameOver {
		return ErrGameOver
	}
	r.FairPlayEnabled = enabled
	return nil
}

// HostUnblockFocus clears a single team's focus lock.
func (r *Room) HostUnblockFocus(teamID string) error {
	if r.GameOver {
		return ErrGameOver
	}
	if !r.HasTeam(teamID) {
		return ErrUnknownTeam
	}
	delete(r.FocusLockedTeams, teamID)
	return nil
}

// HostRemoveTeam resets a team to its defaults and kicks its owning
// player. If the team was currently answering, the room unlocks back
// to armed and the clock resumes (spec §4.4, scenario 6).
func (r *Room) HostRemoveTeam(teamID string, nowMs int64) (kickedPlayerID string, err error) {
	if r.GameOver {
		return "", ErrGameOver
	}
	if !r.HasTeam(teamID) {
		return "", ErrUnknownTeam
	}

	if owner, ok := r.TeamTaken[teamID]; ok {
		kickedPlayerID = owner
		delete(r.TeamTaken, teamID)
		delete(r.PlayerTeams, owner)
		r.KickedPlayers[owner] = true
	}

	if t, ok := r.Teams[teamID]; ok {
		idx := teamIndex(r.TeamOrder, teamID)
		t.Name = defaultTeamName(idx + 1)
		t.Score = 0
	}
	delete(r.TeamNameLocked, teamID)
	delete(r.LockedOutTeams, teamID)
	delete(r.FalseStartTeams, teamID)
	delete(r.FocusLockedTeams, teamID)

	if r.LockedByTeamID == teamID {
		r.LockedByPlayerID = ""
		r.LockedByTeamID = ""
		r.Phase = PhaseArmed
		if r.RemainingMs > 0 {
			r.TimerRunning = true
			r.TimerLastTickAt = nowMs
		}
	}

	r.Touch(nowMs)
	return kickedPlayerID, nil
}

func teamIndex(order []string, teamID string) int {
	for i, id := range order {
		if id == teamID {
			return i
		}
	}
	return 0
}

// HandleLockHolderDisconnect is a documentation no-op: spec §4.2
// states that the lock-holder's disconnect must leave the room in
// phase=locked so the host can still rule. There is deliberately no
// state mutation here; the hub only stops routing to the dropped
// connection.
func (r *Room) HandleLockHolderDisconnect() {}
