package league

import (
	"context"

	"parity-league/internal/auth"
	"parity-league/internal/protocol"
	"parity-league/internal/rpc"
	"parity-league/models"
)

// MountHandlers registers the LM's tool surface on the rpc server. The
// control-plane methods additionally require the operator key hash to match
// the presented auth token; agent methods are guarded by the server's auth
// hook built in AuthHook.
func MountHandlers(server *rpc.Server, controller *Controller) {
	server.Register(protocol.MethodRegisterPlayer, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.RegisterPlayerParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return controller.RegisterPlayer(params)
	})

	server.Register(protocol.MethodRegisterReferee, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.RegisterRefereeParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		return controller.RegisterReferee(params)
	})

	server.Register(protocol.MethodReportMatchResult, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		var params models.ReportMatchResultParams
		if perr := protocol.DecodePayload(env.Payload, &params); perr != nil {
			return nil, perr
		}
		if _, senderID, err := models.SplitSender(env.Sender); err == nil && params.RefereeID == "" {
			params.RefereeID = senderID
		}
		return controller.ReportMatchResult(params)
	})

	server.Register(protocol.MethodGetStandings, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return controller.GetStandings()
	})

	server.Register(protocol.MethodGetLeagueStatus, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return controller.Status(""), nil
	})

	server.Register(protocol.MethodStartLeague, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return controller.StartLeague()
	})

	server.Register(protocol.MethodRunNextRound, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return controller.RunNextRound(ctx)
	})

	server.Register(protocol.MethodRunAllRounds, func(ctx context.Context, env *models.Envelope) (interface{}, error) {
		return controller.RunAllRounds(ctx)
	})
}

// AuthHook builds the LM's per-method auth check. Control-plane methods
// require the operator key; everything else is checked against the token the
// registry issued at registration. operatorKeyHash empty leaves the control
// plane open, for local runs.
func AuthHook(registry *Registry, tokens *auth.Service, operatorKeyHash string) rpc.AuthFunc {
	return func(method string, env *models.Envelope) error {
		role, agentID, err := models.SplitSender(env.Sender)
		if err != nil {
			return protocol.NewError(protocol.KindMalformedMessage, err.Error())
		}

		if protocol.IsControl(method) {
			if operatorKeyHash == "" {
				return nil
			}
			if role != models.SenderRoleOperator {
				return protocol.Errorf(protocol.KindAuthFailed,
					"%s requires an operator sender, got %s", method, role)
			}
			if !tokens.CheckOperatorKey(env.AuthToken, operatorKeyHash) {
				return protocol.NewError(protocol.KindAuthFailed, "bad operator key")
			}
			return nil
		}

		// Status reads stay open to any registered or anonymous caller.
		if method == protocol.MethodGetStandings || method == protocol.MethodGetLeagueStatus {
			return nil
		}

		return registry.ValidateToken(role, agentID, env.AuthToken)
	}
}
