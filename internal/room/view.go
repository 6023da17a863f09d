package room

// TakenTeam pairs a claimed team with its owning player, one entry of
// the public view's takenTeams list (spec §6).
type TakenTeam struct {
	TeamID   string `json:"teamId"`
	PlayerID string `json:"playerId"`
}

// PublicView is the roomState payload broadcast after every mutating
// transition. It is built with Room.Mu held and is a value type, so
// it is safe to hand to the broadcaster after the lock is released —
// the same snapshot-then-send discipline the teacher's
// BroadcastGameState uses.
//
// HostKey never appears here; spec §6 forbids sending it to clients.
type PublicView struct {
	RoomCode          string   `json:"roomCode"`
	MembersCount      int      `json:"membersCount"`
	TablesChosenCount int      `json:"tablesChosenCount"`
	Phase             Phase    `json:"phase"`
	RoundNumber       int      `json:"roundNumber"`
	DurationMs        int64    `json:"durationMs"`
	RemainingMs       int64    `json:"remainingMs"`
	TimerRunning      bool     `json:"timerRunning"`
	TimeUpAt          int64    `json:"timeUpAt,omitempty"`
	LockedByPlayerID  *string  `json:"lockedByPlayerId"`
	LockedByTeamID    *string  `json:"lockedByTeamId"`
	LastBuzz          *Buzz    `json:"lastBuzz"`
	LockedOutTeams    []string `json:"lockedOutTeams"`
	Teams             []Team   `json:"teams"`
	TakenTeams        []TakenTeam `json:"takenTeams"`
	TeamNameLocked    []string `json:"teamNameLocked"`
	FirstBuzzTeamID   *string  `json:"firstBuzzTeamId"`
	GameOver          bool     `json:"gameOver"`
	WinnerTeamID      *string  `json:"winnerTeamId"`
	WinnerText        *string  `json:"winnerText,omitempty"`
	FairPlayEnabled   bool     `json:"fairPlayEnabled"`
	FocusLockedTeams  []string `json:"focusLockedTeams"`
	FalseStartTeams   []string `json:"falseStartTeams"`
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func setToSlice(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// View builds the public snapshot. Caller must hold r.Mu.
func (r *Room) View() PublicView {
	teams := make([]Team, 0, len(r.TeamOrder))
	for _, id := range r.TeamOrder {
		if t, ok := r.Teams[id]; ok {
			teams = append(teams, *t)
		}
	}

	taken := make([]TakenTeam, 0, len(r.TeamTaken))
	for teamID, playerID := range r.TeamTaken {
		taken = append(taken, TakenTeam{TeamID: teamID, PlayerID: playerID})
	}

	return PublicView{
		RoomCode:          r.RoomCode,
		MembersCount:      r.MembersCount,
		TablesChosenCount: len(r.TeamTaken),
		Phase:             r.Phase,
		RoundNumber:       r.RoundNumber,
		DurationMs:        r.DurationMs,
		RemainingMs:       r.RemainingMs,
		TimerRunning:      r.TimerRunning,
		TimeUpAt:          r.TimeUpAt,
		LockedByPlayerID:  strOrNil(r.LockedByPlayerID),
		LockedByTeamID:    strOrNil(r.LockedByTeamID),
		LastBuzz:          r.LastBuzz,
		LockedOutTeams:    setToSlice(r.LockedOutTeams),
		Teams:             teams,
		TakenTeams:        taken,
		TeamNameLocked:    setToSlice(r.TeamNameLocked),
		FirstBuzzTeamID:   strOrNil(r.FirstBuzzTeamID),
		GameOver:          r.GameOver,
		WinnerTeamID:      strOrNil(r.WinnerTeamID),
		WinnerText:        strOrNil(r.WinnerText),
		FairPlayEnabled:   r.FairPlayEnabled,
		FocusLockedTeams:  setToSlice(r.FocusLockedTeams),
		FalseStartTeams:   setToSlice(r.FalseStartTeams),
	}
}
