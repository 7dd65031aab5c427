// Package protocol defines the tool surface shared by all agents: method
// names, the error taxonomy, and envelope validation. Everything on the
// wire beyond the JSON-RPC frame is specified here.
package protocol

// League Manager methods.
const (
	MethodRegisterPlayer    = "register_player"
	MethodRegisterReferee   = "register_referee"
	MethodReportMatchResult = "report_match_result"
	MethodGetStandings      = "get_standings"
	MethodGetLeagueStatus   = "get_league_status"
	MethodStartLeague       = "start_league"
	MethodRunNextRound      = "run_next_round"
	MethodRunAllRounds      = "run_all_rounds"
)

// Referee methods.
const (
	MethodAssignMatch    = "assign_match"
	MethodCancelMatch    = "cancel_match"
	MethodGetMatchStatus = "get_match_status"
)

// Player methods.
const (
	MethodGameInvite  = "game_invite"
	MethodRequestMove = "request_move"
	MethodRoundResult = "round_result"
	MethodGameOver    = "game_over"
)

// registrationMethods are exempt from the auth token requirement: an agent
// cannot hold a token before registering.
var registrationMethods = map[string]bool{
	MethodRegisterPlayer:  true,
	MethodRegisterReferee: true,
}

// IsRegistration reports whether the method is exempt from auth.
func IsRegistration(method string) bool {
	return registrationMethods[method]
}

// controlMethods form the operator control plane on the LM.
var controlMethods = map[string]bool{
	MethodStartLeague:  true,
	MethodRunNextRound: true,
	MethodRunAllRounds: true,
}

// IsControl reports whether the method belongs to the operator surface.
func IsControl(method string) bool {
	return controlMethods[method]
}
