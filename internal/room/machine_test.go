package room

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRoom() *Room {
	return New("ABCD", "hostkeyhostkeyhostkey123", 1000)
}

func bindTeam(t *testing.T, r *Room, playerID, teamID string) {
	t.Helper()
	require.NoError(t, r.SetTeam(playerID, teamID))
}

func TestHostBeepStartArms(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.HostBeepStart(2000))
	require.Equal(t, PhaseArmed, r.Phase)
	require.True(t, r.TimerRunning)
	require.Equal(t, r.DurationMs, r.RemainingMs)
}

func TestFairFirstBuzzWins(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	bindTeam(t, r, "p2", "2")
	require.NoError(t, r.HostBeepStart(1000))

	out := r.PlayerBuzz("p1", 1100)
	require.True(t, out.Accepted)
	require.True(t, out.Locked)
	require.Equal(t, PhaseLocked, r.Phase)
	require.False(t, r.TimerRunning)
	require.Equal(t, "1", r.LockedByTeamID)
	require.Equal(t, "p1", r.LockedByPlayerID)

	// second buzz from the loser is rejected, not a no-op silently
	// accepted: phase is locked, so NOT_ARMED.
	out2 := r.PlayerBuzz("p2", 1100)
	require.False(t, out2.Accepted)
	require.Equal(t, RejectNotArmed, out2.Reason)
}

func TestIncorrectThenResume(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	bindTeam(t, r, "p2", "2")
	require.NoError(t, r.HostBeepStart(0))
	r.PlayerBuzz("p1", 10)

	require.NoError(t, r.HostIncorrect(20))
	require.Equal(t, PhaseArmed, r.Phase)
	require.True(t, r.LockedOutTeams["1"])
	require.True(t, r.TimerRunning)

	out := r.PlayerBuzz("p1", 30)
	require.False(t, out.Accepted)
	require.Equal(t, RejectTeamLockedOut, out.Reason)

	out2 := r.PlayerBuzz("p2", 40)
	require.True(t, out2.Accepted)
	require.Equal(t, "2", r.LockedByTeamID)
}

func TestTimeUpReturnsToLobby(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.HostSetDuration(1)) // 1s
	require.NoError(t, r.HostBeepStart(0))

	require.False(t, r.Tick(999))
	require.Equal(t, int64(1), r.RemainingMs)

	require.True(t, r.Tick(1000))
	require.Equal(t, PhaseLobby, r.Phase)
	require.Equal(t, int64(0), r.RemainingMs)
	require.Equal(t, int64(1000), r.TimeUpAt)
}

func TestCorrectAwardsPointAndAdvancesRound(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	require.NoError(t, r.HostBeepStart(0))
	r.PlayerBuzz("p1", 10)

	require.NoError(t, r.HostCorrect(20))
	require.Equal(t, 1, r.Teams["1"].Score)
	require.Equal(t, 2, r.RoundNumber)
	require.Equal(t, PhaseLobby, r.Phase)
}

func TestSetTeamIsIdempotentAndSticky(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.SetTeam("p1", "1"))
	require.NoError(t, r.SetTeam("p1", "1")) // repeat same team: no-op
	require.Equal(t, "1", r.PlayerTeams["p1"])

	require.NoError(t, r.SetTeam("p1", "2")) // different team: ignored
	require.Equal(t, "1", r.PlayerTeams["p1"])
	_, taken := r.TeamTaken["2"]
	require.False(t, taken)
}

func TestSetTeamRejectsAlreadyTaken(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.SetTeam("p1", "1"))
	err := r.SetTeam("p2", "1")
	require.ErrorIs(t, err, ErrTeamAlreadyTaken)
}

func TestHostSetTeamCountBoundaries(t *testing.T) {
	r := newTestRoom()
	require.Error(t, r.HostSetTeamCount(1))
	require.Error(t, r.HostSetTeamCount(7))
	require.NoError(t, r.HostSetTeamCount(2)) // equal: no-op, no error
	require.Equal(t, 2, len(r.TeamOrder))
	require.NoError(t, r.HostSetTeamCount(6))
	require.Equal(t, 6, len(r.TeamOrder))
	require.Error(t, r.HostSetTeamCount(5)) // decrease: error
}

func TestHostSetDurationBoundaries(t *testing.T) {
	r := newTestRoom()
	require.Error(t, r.HostSetDuration(0))
	require.NoError(t, r.HostSetDuration(600))
	require.Error(t, r.HostSetDuration(600.1))
}

func TestTeamNameLength(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.SetTeam("p1", "1"))
	require.Error(t, r.SetTeamName("p1", "1", "A"))
	require.NoError(t, r.SetTeamName("p1", "1", "AB"))
	// second rename attempt is rejected even with a valid length
	require.ErrorIs(t, r.SetTeamName("p1", "1", "CD"), ErrNameLocked)
}

func TestTeamNameLengthUpperBound(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.SetTeam("p1", "1"))
	require.NoError(t, r.SetTeamName("p1", "1", "0123456789123456")) // 16 chars
	r2 := newTestRoom()
	require.NoError(t, r2.SetTeam("p1", "1"))
	require.Error(t, r2.SetTeamName("p1", "1", "01234567891234567")) // 17 chars
}

func TestLobbyBuzzIsFalseStart(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	out := r.PlayerBuzz("p1", 5)
	require.True(t, out.Accepted)
	require.False(t, out.Locked) // false start never transitions to locked
	require.Equal(t, PhaseLobby, r.Phase)
	require.True(t, r.LockedOutTeams["1"])
	require.True(t, r.FalseStartTeams["1"])
}

func TestBeepStartClearsFalseStart(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	r.PlayerBuzz("p1", 5)
	require.NoError(t, r.HostBeepStart(10))
	require.False(t, r.LockedOutTeams["1"])
	require.False(t, r.FalseStartTeams["1"])
}

func TestFocusLockRejectsBuzzWhenFairPlayEnabled(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	require.NoError(t, r.HostBeepStart(0))
	r.PlayerFocus("p1", false, 10)
	out := r.PlayerBuzz("p1", 20)
	require.False(t, out.Accepted)
	require.Equal(t, RejectFocusLocked, out.Reason)

	require.NoError(t, r.HostUnblockFocus("1"))
	out2 := r.PlayerBuzz("p1", 30)
	require.True(t, out2.Accepted)
}

func TestHostRemoveTeamWhileLockedResumesArmed(t *testing.T) {
	r := newTestRoom()
	bindTeam(t, r, "p1", "1")
	bindTeam(t, r, "p2", "2")
	require.NoError(t, r.HostBeepStart(0))
	r.PlayerBuzz("p2", 10)
	require.Equal(t, PhaseLocked, r.Phase)

	kicked, err := r.HostRemoveTeam("2", 20)
	require.NoError(t, err)
	require.Equal(t, "p2", kicked)
	require.Equal(t, PhaseArmed, r.Phase)
	require.True(t, r.TimerRunning)
	require.True(t, r.KickedPlayers["p2"])
	require.Equal(t, 0, r.Teams["2"].Score)
	require.Equal(t, "Team 2", r.Teams["2"].Name)
}

func TestHostEndRoundSingleWinner(t *testing.T) {
	r := newTestRoom()
	r.Teams["1"].Score = 3
	r.Teams["2"].Score = 1
	require.NoError(t, r.HostEndRound(10))
	require.True(t, r.GameOver)
	require.Equal(t, "1", r.WinnerTeamID)
	require.Empty(t, r.WinnerText)
}

func TestHostEndRoundTie(t *testing.T) {
	r := newTestRoom()
	r.Teams["1"].Score = 2
	r.Teams["2"].Score = 2
	require.NoError(t, r.HostEndRound(10))
	require.Empty(t, r.WinnerTeamID)
	require.NotEmpty(t, r.WinnerText)
}

func TestGameOverFreezesHostCommands(t *testing.T) {
	r := newTestRoom()
	require.NoError(t, r.HostEndRound(10))
	require.ErrorIs(t, r.HostBeepStart(20), ErrGameOver)
	require.ErrorIs(t, r.HostNextRound(20), ErrGameOver)
	require.ErrorIs(t, r.HostAdjustScore("1", 1), ErrGameOver)
}

func TestAdjustScoreRange(t *testing.T) {
	r := newTestRoom()
	require.Error(t, r.HostAdjustScore("1", 101))
	require.Error(t, r.HostAdjustScore("1", -101))
	require.NoError(t, r.HostAdjustScore("1", 100))
	require.Equal(t, 100, r.Teams["1"].Score)
}

func TestRoundNumberNeverDecreases(t *testing.T) {
	r := newTestRoom()
	start := r.RoundNumber
	require.NoError(t, r.HostNextRound(10))
	require.Greater(t, r.RoundNumber, start)
	require.NoError(t, r.HostNextRound(20))
	require.GreaterOrEqual(t, r.RoundNumber, start+1)
}
